package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel settings errors.
var (
	ErrInvalidWorkers      = errors.New("workers must not be negative")
	ErrInvalidBlameBackend = errors.New("unknown blame backend")
	ErrInvalidOutputFormat = errors.New("unknown output format")
	ErrInvalidSince        = errors.New("invalid since value")
)

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"json", "bulk", "table"}

// Settings holds run-level options for the codealong binary.
type Settings struct {
	Analysis  AnalysisSettings  `mapstructure:"analysis"`
	Output    OutputSettings    `mapstructure:"output"`
	Logging   LoggingSettings   `mapstructure:"logging"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

// AnalysisSettings controls the commit walk.
type AnalysisSettings struct {
	BlameBackend         string `mapstructure:"blame_backend"`
	Since                string `mapstructure:"since"`
	Workers              int    `mapstructure:"workers"`
	IgnoreUnknownAuthors bool   `mapstructure:"ignore_unknown_authors"`
	FailFast             bool   `mapstructure:"fail_fast"`
}

// OutputSettings controls where results go.
type OutputSettings struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
	Store  string `mapstructure:"store"`
	Chart  string `mapstructure:"chart"`
}

// LoggingSettings holds logging-specific configuration.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetrySettings holds OpenTelemetry and Prometheus configuration.
type TelemetrySettings struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	Insecure     bool   `mapstructure:"insecure"`
}

// LoadSettings loads settings from file and CODEALONG_* environment variables.
func LoadSettings(configPath string) (*Settings, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("codealong")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/codealong")
		viperCfg.AddConfigPath("/etc/codealong")
	}

	viperCfg.SetEnvPrefix("CODEALONG")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var settings Settings

	unmarshalErr := viperCfg.Unmarshal(&settings)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateSettings(&settings)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &settings, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.workers", DefaultWorkers)
	viperCfg.SetDefault("analysis.blame_backend", DefaultBlameBackend)
	viperCfg.SetDefault("analysis.ignore_unknown_authors", false)
	viperCfg.SetDefault("analysis.fail_fast", false)
	viperCfg.SetDefault("analysis.since", "")

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.path", "")
	viperCfg.SetDefault("output.store", "")
	viperCfg.SetDefault("output.chart", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.metrics_addr", "")
	viperCfg.SetDefault("telemetry.insecure", false)
}

func validateSettings(s *Settings) error {
	if s.Analysis.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, s.Analysis.Workers)
	}

	if s.Analysis.BlameBackend != BlameBackendProcess && s.Analysis.BlameBackend != BlameBackendNative {
		return fmt.Errorf("%w: %q", ErrInvalidBlameBackend, s.Analysis.BlameBackend)
	}

	if !slices.Contains(OutputFormats, s.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, s.Output.Format)
	}

	_, err := ParseSince(s.Analysis.Since, time.Now())
	if err != nil {
		return err
	}

	return nil
}

// ParseSince accepts a date (2006-01-02), an RFC3339 timestamp or a
// duration relative to now (720h). Empty means no lower bound.
func ParseSince(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, value)
}
