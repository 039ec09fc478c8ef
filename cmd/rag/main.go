// Command rag indexes course material and answers questions about it.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/app"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/config"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.AppConfig
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Course content question answering",
	Long: `rag indexes Physical AI & Humanoid Robotics course material into a vector
store and answers questions grounded in it.

Configuration is read from --config, ./config.yaml or
~/.config/course-rag/config.yaml, then overridden by environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	var err error
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	logrus.SetOutput(cmd.ErrOrStderr())
	return nil
}

// buildApp assembles the pipeline for one command run.
func buildApp(cmd *cobra.Command) (*app.App, error) {
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return a, nil
}
