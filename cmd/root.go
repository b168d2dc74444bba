package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/spf13/cobra"

	"github.com/supersh-sh/supersh/core/config"
	"github.com/supersh-sh/supersh/core/histdb"
	"github.com/supersh-sh/supersh/core/logger"
	"github.com/supersh-sh/supersh/core/shell"
)

var cfgPath string

// loadConfig reads the config directory, falling back to the built-in
// defaults when none has been initialized.
func loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// rootCmd runs the interactive shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "supersh",
	Short: "A simple shell with background processing and history.",
	Long:  `An interactive command shell with bounded history, !N expansion and background jobs.`,
	RunE:  runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func runShell(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	defer shieldInterrupts(syscall.SIGINT, syscall.SIGTERM)()

	hist := shell.NewHistory(cfg.HistorySize)

	var db *histdb.Store
	if path := cfg.HistoryDBPath(); path != "" {
		db, err = histdb.Open(path)
		if err != nil {
			log.Printf("history persistence disabled: %v", err)
			db = nil
		} else {
			defer db.Close()
			preloadHistory(hist, db, cfg.HistorySize)
		}
	}

	var session *logger.SessionLogger
	if fd, err := cfg.OpenEventLog(); err != nil {
		log.Printf("event logging disabled: %v", err)
	} else if fd != nil {
		defer fd.Close()
		session = logger.NewJSONLinesLogger(fd).NewSession()
		session.Record(logger.Event{Type: "session_start", SessionStart: &logger.SessionStart{
			User: os.Getenv("USER"),
		}})
	}

	var onAppend func(*shell.ParsedCommand)
	if db != nil {
		sid := session.SessionID()
		onAppend = func(pc *shell.ParsedCommand) {
			// Best effort: a full disk must not break the prompt.
			_ = db.Save(histdb.Record{
				Session:    sid,
				Line:       pc.Line,
				Builtin:    pc.Builtin.Name(),
				Background: pc.Background,
			})
		}
	}

	sh, err := shell.NewShell(shell.Options{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		IsTerminal: readline.DefaultIsTerminal(),
		History:    hist,
		Log:        session,
		Motd:       cfg.Motd,
		OnAppend:   onAppend,
	})
	if err != nil {
		return err
	}
	defer sh.Close()

	return sh.Run()
}

// shieldInterrupts keeps the given signals from killing the shell without
// installing an ignore disposition: SIG_IGN survives exec and every child
// would inherit it, while a Notify handler is reset to the default in the
// child. The returned func restores normal delivery.
func shieldInterrupts(signals ...os.Signal) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		for range ch {
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

// preloadHistory replays persisted commands into the in-memory ring so !N
// references keep working across restarts.
func preloadHistory(hist *shell.History, db *histdb.Store, limit int) {
	recs, err := db.Recent(limit)
	if err != nil {
		log.Printf("loading history: %v", err)
		return
	}
	for _, rec := range recs {
		pc, err := shell.Parse(rec.Line, hist)
		if err != nil || pc == nil {
			continue
		}
		pc.Background = rec.Background
		hist.Append(pc)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
