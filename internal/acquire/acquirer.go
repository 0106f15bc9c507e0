// Package acquire retrieves ERA5 snapshots and installs them atomically as
// the local dataset file.
package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

// Config holds the retrieval settings.
type Config struct {
	// URL receives the JSON request and answers with a NetCDF file.
	URL string
	// Timeout bounds a whole acquisition, retries included.
	Timeout time.Duration
	// Lag shifts the requested slot into the past; reanalysis data is
	// published a few days behind real time.
	Lag time.Duration
	// AreaMargin limits the request to the target ± margin degrees. Zero
	// requests the full grid.
	AreaMargin float64
	Backoff    BackoffConfig
}

// Snapshot describes a successfully installed dataset.
type Snapshot struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
	Completed time.Time `json:"completed"`
}

// Acquirer downloads snapshots into a single dataset file. The file is
// either replaced by a complete, validated snapshot or left untouched.
type Acquirer struct {
	logger  *zap.SugaredLogger
	url     string
	path    string
	target  era5.Location
	timeout time.Duration
	lag     time.Duration
	margin  float64
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// New creates an Acquirer writing to path.
func New(logger *zap.SugaredLogger, cfg Config, path string, target era5.Location) (*Acquirer, error) {
	if cfg.URL == "" {
		return nil, errors.New("retrieval URL is not configured")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported retrieval URL scheme %q", u.Scheme)
	}
	if path == "" {
		return nil, errors.New("dataset path is not configured")
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = 500 * time.Millisecond
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "era5-retrieve",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Acquirer{
		logger:  logger,
		url:     u.String(),
		path:    path,
		target:  target,
		timeout: cfg.Timeout,
		lag:     cfg.Lag,
		margin:  cfg.AreaMargin,
		httpCfg: HTTPClientConfig{
			Client:  &http.Client{},
			Backoff: cfg.Backoff,
		},
		circuit: cb,
		now:     time.Now,
	}, nil
}

// Acquire retrieves the snapshot for the current slot and installs it.
// Every failure wraps era5.ErrAcquisitionFailed.
func (a *Acquirer) Acquire(ctx context.Context) (Snapshot, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	snap := Snapshot{
		ID:      uuid.NewString(),
		Request: NewRequest(a.now().Add(-a.lag), a.target, a.margin),
		Path:    a.path,
	}
	a.logger.Infow("Retrieving ERA5 snapshot", "id", snap.ID, "slot", snap.Request.Slot, "url", a.url)

	body, err := json.Marshal(snap.Request)
	if err != nil {
		return Snapshot{}, a.fail(snap, err)
	}
	resp, err := doRequestWithResilience(ctx, a.httpCfg, a.circuit, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, a.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/x-netcdf")
		return req, nil
	})
	if err != nil {
		return Snapshot{}, a.fail(snap, err)
	}
	defer resp.Body.Close()

	snap.Bytes, err = a.install(resp.Body)
	if err != nil {
		return Snapshot{}, a.fail(snap, err)
	}
	snap.Completed = a.now()
	a.logger.Infow("ERA5 snapshot installed", "id", snap.ID, "bytes", snap.Bytes, "path", a.path)
	return snap, nil
}

func (a *Acquirer) fail(snap Snapshot, err error) error {
	a.logger.Errorw("ERA5 retrieval failed", "id", snap.ID, "err", err)
	return fmt.Errorf("%w: %w", era5.ErrAcquisitionFailed, err)
}

// install streams r into a temporary file next to the dataset, validates
// it and renames it over the dataset.
func (a *Acquirer) install(r io.Reader) (n int64, err error) {
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	n, err = io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("downloading snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return n, err
	}
	if err = tmp.Close(); err != nil {
		return n, err
	}
	if err = era5.Validate(tmpName); err != nil {
		return n, fmt.Errorf("validating snapshot: %w", err)
	}
	if err = os.Rename(tmpName, a.path); err != nil {
		return n, err
	}
	return n, nil
}
