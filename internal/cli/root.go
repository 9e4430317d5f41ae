package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
)

var (
	configPath string
	logLevel   string
	outputJSON bool
)

// Execute runs the root cobra command. SIGINT and SIGTERM cancel the
// command's context instead of killing the process, so an interrupted render
// still removes its scratch directory before exiting.
func Execute() {
	ctx, stop := signalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clipforge",
		Short:         "Compose captioned meme videos with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to configuration file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newFontsCmd())

	return cmd
}
