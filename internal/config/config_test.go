package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":5000" || cfg.DataFile != "static/weather.nc" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	target := cfg.Target()
	if target.Latitude != 36.89083 || target.Longitude != 30.67111 || target.Name != "Adem Tolunay Anadolu Lisesi" {
		t.Errorf("Target() = %+v", target)
	}
	if cfg.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %v, expected disabled", cfg.RefreshInterval)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":5000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
data_file: /var/lib/atalwf/weather.nc
refresh_interval: 6h
location:
  name: Antalya
  latitude: 36.9
  longitude: 30.7
source:
  url: https://retrieve.example.com/era5
  timeout: 2m
  lag: 120h
  area_margin: 0.5
victoria_metrics:
  insert_url: http://localhost:8428/write
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.RefreshInterval != 6*time.Hour || cfg.Location.Name != "Antalya" {
		t.Errorf("unexpected config %+v", cfg)
	}

	acq := cfg.Acquire()
	if acq.URL != "https://retrieve.example.com/era5" || acq.Lag != 120*time.Hour || acq.AreaMargin != 0.5 {
		t.Errorf("Acquire() = %+v", acq)
	}
	// Unset keys keep their defaults.
	if acq.Backoff.MaxRetries != 3 || cfg.Metrics.MetricPrefix != "era5" {
		t.Errorf("defaults lost: %+v %+v", acq.Backoff, cfg.Metrics)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "listen: \":8080\"\n")
	t.Setenv("ATALWF_LISTEN", ":9090")
	t.Setenv("ATALWF_LATITUDE", "40.5")
	t.Setenv("ATALWF_REFRESH_INTERVAL", "1h")
	t.Setenv("ATALWF_DEBUG", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Location.Latitude != 40.5 || cfg.RefreshInterval != time.Hour || !cfg.Debug {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "latitude out of range", yaml: "location:\n  latitude: 91\n"},
		{name: "longitude out of range", yaml: "location:\n  longitude: -200\n"},
		{name: "empty data file", yaml: "data_file: \"\"\n"},
		{name: "bad source url", yaml: "source:\n  url: not a url\n"},
		{name: "bad metric prefix", yaml: "victoria_metrics:\n  metric_prefix: era5_point\n"},
		{name: "negative interval", yaml: "refresh_interval: -1h\n"},
		{name: "malformed yaml", yaml: "listen: [\n"},
		{name: "bad env float", env: map[string]string{"ATALWF_LONGITUDE": "east"}},
		{name: "bad env duration", env: map[string]string{"ATALWF_SOURCE_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestResolverLongitudeWrap(t *testing.T) {
	cfg, err := Load(writeConfig(t, "location:\n  longitude: -0.2\n  longitude_wrap: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lo := []float64{0, 90, 180, 270, 359.75}
	la := []float64{0}

	cell, err := cfg.Resolver().Resolve(la, lo, cfg.Target())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cell.LonIndex != 4 {
		t.Errorf("wrapped LonIndex = %d, expected 4", cell.LonIndex)
	}

	cfg.Location.LongitudeWrap = false
	cell, err = cfg.Resolver().Resolve(la, lo, cfg.Target())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cell.LonIndex != 0 {
		t.Errorf("plain LonIndex = %d, expected 0", cell.LonIndex)
	}
}
