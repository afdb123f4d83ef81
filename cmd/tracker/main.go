// Command tracker manages the internship application collection from the
// terminal, using the same storage configuration as the server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/interntrack/tracker/internal/application/service"
	"github.com/interntrack/tracker/internal/bootstrap"
	"github.com/interntrack/tracker/internal/config"
	"github.com/interntrack/tracker/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// session holds the tracker opened for one command invocation.
type session struct {
	tracker *service.Tracker
	close   func() error
}

// newRootCmd builds the command tree. The returned func closes the store if a
// command opened it; it runs even when the command failed.
func newRootCmd(stdout io.Writer) (*cobra.Command, func() error) {
	s := &session{}
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Internship application tracker",
		Long:          "Track internship applications: add and edit entries, filter and sort them, and move the collection in and out as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)
			tr, closeFn, err := bootstrap.Tracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			s.tracker, s.close = tr, closeFn
			return nil
		},
	}
	root.SetOut(stdout)
	root.AddCommand(
		newListCmd(s),
		newShowCmd(s),
		newAddCmd(s),
		newEditCmd(s),
		newExportCmd(s),
		newImportCmd(s),
		newOptionsCmd(s),
	)
	return root, func() error {
		if s.close == nil {
			return nil
		}
		return s.close()
	}
}

func main() {
	_ = godotenv.Load()
	// keep stdout clean for export and JSON output
	logger.SetOutput(os.Stderr)

	root, closeStore := newRootCmd(os.Stdout)
	err := root.ExecuteContext(context.Background())
	if cerr := closeStore(); cerr != nil {
		logger.Warnf("closing store: %v", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
