package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Configuration keys understood by LoadConfig.
const (
	KeyAPIKey            = "api_key"
	KeyChannelHandle     = "channel_handle"
	KeyOutputDir         = "output_dir"
	KeyAPIEndpoint       = "api_endpoint"
	KeyHTTPTimeout       = "http_timeout"
	KeyRunTimeout        = "run_timeout"
	KeyRequestsPerSecond = "requests_per_second"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyDaprPort          = "dapr_port"
	KeyJobName           = "job_name"
	KeyJobSchedule       = "job_schedule"
)

// Default configuration values.
const (
	DefaultChannelHandle = "IGN"
	DefaultOutputDir     = "./data"
	DefaultRunTimeout    = 60 * time.Minute
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultDaprPort      = 6000
	DefaultJobName       = "produce_json"
	// DefaultJobSchedule fires daily at 14:00 UTC. Dapr schedules carry a
	// leading seconds field.
	DefaultJobSchedule = "0 0 14 * * *"
)

// EnvPrefix prefixes every environment variable except API_KEY and CHANNEL_HANDLE.
const EnvPrefix = "VIDEO_STATS"

var (
	// ErrMissingAPIKey is returned by Validate when no API key is configured.
	ErrMissingAPIKey = errors.New("API key is required (set API_KEY or --api-key)")
	// ErrMissingChannelHandle is returned by Validate when no channel handle is configured.
	ErrMissingChannelHandle = errors.New("channel handle is required (set CHANNEL_HANDLE or --channel-handle)")
)

// Config holds everything one extraction run needs. It is built once at
// startup and passed explicitly to each stage.
type Config struct {
	APIKey            string        // YouTube Data API key
	ChannelHandle     string        // Channel handle, with or without the leading @
	OutputDir         string        // Existing directory snapshots are written to
	APIEndpoint       string        // Overrides the YouTube API base URL (tests, proxies)
	HTTPTimeout       time.Duration // Per-request timeout, 0 waits indefinitely
	RunTimeout        time.Duration // Whole-run timeout, 0 disables it
	RequestsPerSecond float64       // Request pacing, 0 is unlimited
	LogLevel          string
	LogFormat         string // "console" or "json"
	DaprPort          int
	JobName           string // Dapr job that triggers a run
	JobSchedule       string // Dapr cron schedule for JobName
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyChannelHandle, DefaultChannelHandle)
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyAPIEndpoint, "")
	v.SetDefault(KeyHTTPTimeout, time.Duration(0))
	v.SetDefault(KeyRunTimeout, DefaultRunTimeout)
	v.SetDefault(KeyRequestsPerSecond, 0.0)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyDaprPort, DefaultDaprPort)
	v.SetDefault(KeyJobName, DefaultJobName)
	v.SetDefault(KeyJobSchedule, DefaultJobSchedule)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The credentials keep the bare names used by existing deployments.
	_ = v.BindEnv(KeyAPIKey, "API_KEY")
	_ = v.BindEnv(KeyChannelHandle, "CHANNEL_HANDLE")
}

// LoadConfig reads configuration into a Config. Sources in increasing priority:
// defaults, the dotenv file at envFile (skipped when absent), the config file
// at configFile (required when non-empty), environment variables, and any
// flags already bound to v.
func LoadConfig(v *viper.Viper, envFile, configFile string) (Config, error) {
	SetDefaults(v)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read env file %s: %w", envFile, err)
			}
			log.Debug().Str("file", envFile).Msg("Loaded env file")
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to stat env file %s: %w", envFile, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		log.Debug().Str("file", configFile).Msg("Loaded config file")
	}

	cfg := Config{
		APIKey:            strings.TrimSpace(v.GetString(KeyAPIKey)),
		ChannelHandle:     strings.TrimSpace(v.GetString(KeyChannelHandle)),
		OutputDir:         v.GetString(KeyOutputDir),
		APIEndpoint:       v.GetString(KeyAPIEndpoint),
		HTTPTimeout:       v.GetDuration(KeyHTTPTimeout),
		RunTimeout:        v.GetDuration(KeyRunTimeout),
		RequestsPerSecond: v.GetFloat64(KeyRequestsPerSecond),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
		DaprPort:          v.GetInt(KeyDaprPort),
		JobName:           v.GetString(KeyJobName),
		JobSchedule:       v.GetString(KeyJobSchedule),
	}
	return cfg, nil
}

// Validate checks the fields a pipeline run depends on.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.ChannelHandle == "" {
		return ErrMissingChannelHandle
	}
	if c.OutputDir == "" {
		return errors.New("output directory must not be empty")
	}
	if c.HTTPTimeout < 0 || c.RunTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %v", c.RequestsPerSecond)
	}
	return nil
}
