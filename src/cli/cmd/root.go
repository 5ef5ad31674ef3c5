package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/droidplan/src/config"
	"github.com/sofmeright/droidplan/src/log"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "droidplan",
	Short: "Android build descriptor resolver",
	Long: `droidplan resolves an Android Gradle build descriptor (Kotlin DSL or
Groovy) into a build configuration and packaging plan, without running Gradle.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		h, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(h))

		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" || cmd.Name() == "schema" {
			return nil
		}
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .droidplan.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: "+strings.Join(log.Levels, ", "))
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: "+strings.Join(log.Formats, ", "))
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// baseDir is the directory relative config paths are resolved against:
// the config file's directory, or the working directory.
func baseDir() string {
	if cfgFile != "" {
		return filepath.Dir(cfgFile)
	}
	return "."
}

func resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir(), p)
}
