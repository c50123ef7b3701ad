package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/ucover/internal/config"
	"github.com/ludo-technologies/ucover/internal/constants"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/version"
)

var (
	// Version information (set via ldflags during build)
	Version = version.GetVersion()
)

// Global flags shared by every command
var (
	configPath string
	logLevel   string
	logJSON    bool
	noProgress bool
)

// CheckExitError carries a specific process exit code
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*CheckExitError); ok {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(constants.ExitError)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ucover",
		Short: "ucover - branch and line coverage for IL assemblies",
		Long: `ucover builds coverage models from disassembly dumps, replays the traces
recorded by instrumented test runs against them and writes coverage reports.

Typical workflow:
  ucover model bin/ -o project.json
  # run the instrumented tests, which write *.ucovertrace files
  ucover report --project project.json traces/ -f xml -o opencover.xml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from config, warn)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Write logs as JSON lines")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false,
		"Disable progress bars")

	rootCmd.AddCommand(modelCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// setupLogger installs the process logger. Flags win over the config file.
func setupLogger(cmd *cobra.Command, cfg *config.Config) error {
	level := cfg.Logging.Level
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	logger, err := logging.New(level, logJSON || cfg.Logging.JSON)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	return nil
}

// syncLogger flushes buffered log entries
func syncLogger() {
	_ = logging.Logger().Sync()
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ucover version %s\n", version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
