package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/supersh-sh/supersh/core/logger"
)

// logsCmd summarizes the JSONL event log per session.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Summarize the shell event log.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.EventLog == "" {
			return fmt.Errorf("event logging is disabled in %s", cfgPath)
		}
		fd, err := cfg.ReadEventLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		type sessionSummary struct {
			user     string
			commands int
			jobs     int
		}
		summaries := make(map[string]*sessionSummary)
		order := []string{}
		summary := func(id string) *sessionSummary {
			s, ok := summaries[id]
			if !ok {
				s = &sessionSummary{}
				summaries[id] = s
				order = append(order, id)
			}
			return s
		}

		if err := logger.ReadJSONLinesLog(fd, func(ev *logger.Event) {
			s := summary(ev.SessionID)
			switch {
			case ev.SessionStart != nil:
				s.user = ev.SessionStart.User
			case ev.Command != nil:
				s.commands++
			case ev.JobStart != nil:
				s.jobs++
			}
		}); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 8, 8, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintln(tw, "SESSION\tUSER\tCOMMANDS\tJOBS")
		for _, id := range order {
			s := summaries[id]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", id, s.user, s.commands, s.jobs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
}
