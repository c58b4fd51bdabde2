package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"todoapi/config"
	"todoapi/logger"
)

var (
	envFile      string
	logLevelFlag string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "todoapi",
	Short:         "Todo list REST API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if logLevelFlag != "" {
			loaded.LogLevel = strings.ToLower(logLevelFlag)
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
		}
		cfg = loaded

		logCfg := logger.DefaultConfig()
		logCfg.Level = cfg.LogLevel
		logCfg.Format = cfg.LogFormat
		logCfg.FilePath = cfg.LogFile
		if err := logger.Init(logCfg); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger.Debug("config loaded", "env", cfg.AppEnv, "port", cfg.Port)
		return nil
	},
}

// closeLogger is swapped in tests.
var closeLogger = logger.Close

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes args and closes the log file whether or not the command failed.
func run(args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if cerr := closeLogger(); cerr != nil && err == nil {
		err = fmt.Errorf("closing log file: %w", cerr)
	}
	return err
}
