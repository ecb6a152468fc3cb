// Package commands implements the codealong subcommands.
package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
)

const (
	flagSettings  = "settings"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagEnvFile   = "env-file"
	flagNoColor   = "no-color"

	defaultEnvFile = ".env"
)

// AddGlobalFlags registers the flags every subcommand shares.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String(flagSettings, "", "Settings file (default: ./codealong.yaml, ~/.config/codealong, /etc/codealong)")
	root.PersistentFlags().String(flagLogLevel, "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String(flagLogFormat, "", "Log format: text, json")
	root.PersistentFlags().String(flagEnvFile, defaultEnvFile, "Environment file loaded before settings")
	root.PersistentFlags().Bool(flagNoColor, false, "Disable colored output")
}

// loadEnv loads KEY=VALUE pairs into the environment. A missing default
// file is fine; a missing explicit one is an error.
func loadEnv(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString(flagEnvFile)
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed(flagEnvFile) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}

// loadSettings reads the settings file and environment, then applies the
// global flag overrides.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	err := loadEnv(cmd)
	if err != nil {
		return nil, err
	}

	path, _ := cmd.Flags().GetString(flagSettings)

	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString(flagLogLevel); level != "" {
		settings.Logging.Level = level
	}

	if format, _ := cmd.Flags().GetString(flagLogFormat); format != "" {
		settings.Logging.Format = format
	}

	return settings, nil
}
