// Package config loads the service configuration from an optional YAML file
// and ATALWF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
	"github.com/Xassemblianist/ATALWF/internal/era5"
)

// Config is the complete service configuration.
type Config struct {
	Listen   string         `yaml:"listen" validate:"required"`
	DataFile string         `yaml:"data_file" validate:"required"`
	Debug    bool           `yaml:"debug"`
	Location LocationConfig `yaml:"location"`
	Source   SourceConfig   `yaml:"source"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"victoria_metrics"`

	// RefreshInterval schedules periodic refreshes; zero disables them.
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
}

// LocationConfig is the fixed target point.
type LocationConfig struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=360"`
	// LongitudeWrap compares longitudes on a 360° circle, for grids stored
	// as 0..360 while the target is given as -180..180.
	LongitudeWrap bool `yaml:"longitude_wrap"`
}

// SourceConfig configures the snapshot retrieval.
type SourceConfig struct {
	URL            string        `yaml:"url" validate:"omitempty,url"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	Lag            time.Duration `yaml:"lag" validate:"gte=0"`
	AreaMargin     float64       `yaml:"area_margin" validate:"gte=0,lte=180"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"gte=0"`
}

// HistoryConfig bounds the in-memory reading history.
type HistoryConfig struct {
	MaxReadings int           `yaml:"max_readings" validate:"gte=0"`
	MaxAge      time.Duration `yaml:"max_age" validate:"gte=0"`
}

// MetricsConfig enables publishing readings to Victoria Metrics.
type MetricsConfig struct {
	InsertURL    string `yaml:"insert_url" validate:"omitempty,url"`
	MetricPrefix string `yaml:"metric_prefix" validate:"omitempty,alphanum"`
	MaxConns     int    `yaml:"max_conns" validate:"gte=0"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Listen:   ":5000",
		DataFile: "static/weather.nc",
		Location: LocationConfig{
			Name:      "Adem Tolunay Anadolu Lisesi",
			Latitude:  36.89083,
			Longitude: 30.67111,
		},
		Source: SourceConfig{
			Timeout:        5 * time.Minute,
			AreaMargin:     1,
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
		},
		History: HistoryConfig{
			MaxReadings: 120,
			MaxAge:      30 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			MetricPrefix: "era5",
			MaxConns:     2,
		},
	}
}

var validate = validator.New()

// Load reads the YAML file at path (if non-empty and present), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Target returns the configured location.
func (c *Config) Target() era5.Location {
	return era5.Location{
		Name:      c.Location.Name,
		Latitude:  c.Location.Latitude,
		Longitude: c.Location.Longitude,
	}
}

// Resolver returns the grid-cell resolver for the configured location.
func (c *Config) Resolver() era5.Resolver {
	r := era5.NewResolver()
	if c.Location.LongitudeWrap {
		r.Lon = era5.LongitudeDiff
	}
	return r
}

// Acquire returns the acquirer settings.
func (c *Config) Acquire() acquire.Config {
	return acquire.Config{
		URL:        c.Source.URL,
		Timeout:    c.Source.Timeout,
		Lag:        c.Source.Lag,
		AreaMargin: c.Source.AreaMargin,
		Backoff: acquire.BackoffConfig{
			MaxRetries:      c.Source.MaxRetries,
			InitialInterval: c.Source.InitialBackoff,
			MaxInterval:     c.Source.MaxBackoff,
		},
	}
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Listen, "ATALWF_LISTEN")
	setString(&cfg.DataFile, "ATALWF_DATA_FILE")
	setString(&cfg.Location.Name, "ATALWF_LOCATION_NAME")
	setString(&cfg.Source.URL, "ATALWF_SOURCE_URL")
	setString(&cfg.Metrics.InsertURL, "ATALWF_VM_INSERT_URL")
	setString(&cfg.Metrics.MetricPrefix, "ATALWF_VM_METRIC_PREFIX")

	var errs []error
	errs = append(errs,
		setBool(&cfg.Debug, "ATALWF_DEBUG"),
		setBool(&cfg.Location.LongitudeWrap, "ATALWF_LONGITUDE_WRAP"),
		setFloat(&cfg.Location.Latitude, "ATALWF_LATITUDE"),
		setFloat(&cfg.Location.Longitude, "ATALWF_LONGITUDE"),
		setFloat(&cfg.Source.AreaMargin, "ATALWF_SOURCE_AREA_MARGIN"),
		setDuration(&cfg.Source.Timeout, "ATALWF_SOURCE_TIMEOUT"),
		setDuration(&cfg.Source.Lag, "ATALWF_SOURCE_LAG"),
		setDuration(&cfg.RefreshInterval, "ATALWF_REFRESH_INTERVAL"),
		setInt(&cfg.History.MaxReadings, "ATALWF_HISTORY_MAX_READINGS"),
		setDuration(&cfg.History.MaxAge, "ATALWF_HISTORY_MAX_AGE"),
	)
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
