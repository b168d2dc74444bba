package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/supersh-sh/supersh/core/shell"
)

// builtinCmd is the child half of a backgrounded builtin: the parent shell
// re-executes itself with this command, passing the command line as the
// argument and a state snapshot on stdin.
var builtinCmd = &cobra.Command{
	Use:    "builtin LINE",
	Short:  "Run a shell builtin against a state snapshot (internal).",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code := shell.RunBuiltinLine(args[0], os.Stdin, os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(builtinCmd)
}
