package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/blockshield/internal/app"
	"github.com/HammerMeetNail/blockshield/internal/config"
	"github.com/HammerMeetNail/blockshield/internal/logging"
)

var (
	Version = "dev"
	Commit  = "none"

	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "blockshield",
	Short: "Operate the community block list",
	Long: `blockshield runs maintenance tasks against the community block list:
schema migrations, reconciling accounts with their Bluesky block lists, and
exporting or importing the community list document.

Configuration is read from the same environment variables as the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logging.SetDefaultLevel(logging.LevelDebug)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blockshield %s (commit: %s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(versionCmd, migrateCmd, syncCmd, syncAllCmd, exportCmd, importCmd)
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

var (
	loadConfig = config.Load
	openApp    = app.New
)

// withApp loads configuration, connects the stores, and runs fn.
func withApp(fn func(cmd *cobra.Command, a *app.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a, err := openApp(cfg, logging.Default, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a)
	}
}
