package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/supersh-sh/supersh/core/config"
	"github.com/supersh-sh/supersh/core/logger"
	"github.com/supersh-sh/supersh/core/server"
)

// serveCmd exposes the shell over SSH.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shell over SSH on the configured port.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Println("Couldn't load config: did you run init?")
			return err
		}

		lg, closeLog, err := serveLogger(cfg, cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		srv, err := server.New(cfg, lg)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Fatal(err)
			}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs
		log.Printf("Got signal %q, terminating...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server shutdown failed: %s", err)
		}
		log.Print("Server exited")
		return nil
	},
}

// serveLogger writes events to the configured log file, or stderr when the
// event log is disabled.
func serveLogger(cfg *config.Configuration, cmd *cobra.Command) (*logger.Logger, func(), error) {
	fd, err := cfg.OpenEventLog()
	if err != nil {
		return nil, nil, err
	}
	if fd == nil {
		return logger.NewJSONLinesLogger(cmd.ErrOrStderr()), func() {}, nil
	}
	return logger.NewJSONLinesLogger(fd), func() { fd.Close() }, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
