// Package config loads the importer configuration.
//
// Values are resolved in this order (highest first):
//  1. environment variables with the VPIC_ prefix (e.g. VPIC_DATABASE_KEY)
//  2. a .env file in the working directory
//  3. config.yaml in "." or "./conf"
//  4. built-in defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fwolasyar/car-perfector/vpic"
)

var (
	ErrMissingDatabaseURL = errors.New("config: database.url is required")
	ErrMissingDatabaseKey = errors.New("config: database.key is required for http(s) database urls")
)

// DefaultAllowedMakes is the allow-list used when none is configured.
// Names match vPIC's Make_Name spelling exactly.
var DefaultAllowedMakes = []string{
	"TOYOTA", "HONDA", "FORD", "CHEVROLET", "NISSAN",
	"HYUNDAI", "KIA", "SUBARU", "MAZDA", "VOLKSWAGEN",
	"BMW", "MERCEDES-BENZ", "AUDI", "LEXUS", "JEEP",
	"DODGE", "RAM", "GMC", "TESLA", "VOLVO",
}

// Config holds all importer configuration
type Config struct {
	VPIC            VPICConfig
	Database        DatabaseConfig
	Log             LogConfig
	AllowedMakes    []string
	InterPhaseDelay time.Duration // pause between the makes and models phases
}

// VPICConfig holds upstream API settings
type VPICConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables throttling
	Burst             int
}

// DatabaseConfig holds the sink location and credentials
type DatabaseConfig struct {
	URL string // postgres://, sqlite://, a file path, or the hosted project URL
	Key string // service key, only used for http(s) URLs
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load reads configuration from the working directory and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}
	return load(".", "./conf")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("VPIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("inter_phase_delay", 2*time.Second)

	cfg := &Config{
		VPIC: VPICConfig{
			BaseURL:           v.GetString("vpic.base_url"),
			Timeout:           v.GetDuration("vpic.timeout"),
			RequestsPerSecond: v.GetFloat64("vpic.requests_per_second"),
			Burst:             v.GetInt("vpic.burst"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
			Key: v.GetString("database.key"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		AllowedMakes:    stringList(v, "allowed_makes"),
		InterPhaseDelay: v.GetDuration("inter_phase_delay"),
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList reads a list that may come from YAML as a sequence or from the
// environment as a comma separated string. Names like "ASTON MARTIN" contain
// spaces, so whitespace is not a separator.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.VPIC.BaseURL == "" {
		cfg.VPIC.BaseURL = vpic.DefaultBaseURL
	}
	if cfg.VPIC.Timeout == 0 {
		cfg.VPIC.Timeout = 30 * time.Second
	}
	if cfg.VPIC.Burst == 0 {
		cfg.VPIC.Burst = 1
	}
	if len(cfg.AllowedMakes) == 0 {
		cfg.AllowedMakes = append([]string(nil), DefaultAllowedMakes...)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	lower := strings.ToLower(c.Database.URL)
	if (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) && c.Database.Key == "" {
		return ErrMissingDatabaseKey
	}
	if c.InterPhaseDelay < 0 {
		return fmt.Errorf("config: inter_phase_delay must not be negative, got %s", c.InterPhaseDelay)
	}
	// a bare number is read as nanoseconds; "2" almost certainly meant "2s"
	if c.InterPhaseDelay > 0 && c.InterPhaseDelay < time.Millisecond {
		return fmt.Errorf("config: inter_phase_delay %s is below 1ms, give a unit (e.g. 2s)", c.InterPhaseDelay)
	}
	if c.VPIC.RequestsPerSecond < 0 {
		return fmt.Errorf("config: vpic.requests_per_second must not be negative, got %v", c.VPIC.RequestsPerSecond)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
