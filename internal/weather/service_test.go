package weather

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
	"github.com/Xassemblianist/ATALWF/internal/era5"
	"github.com/Xassemblianist/ATALWF/internal/era5/era5test"
	"github.com/Xassemblianist/ATALWF/internal/store"
)

var school = era5.Location{Name: "Adem Tolunay Anadolu Lisesi", Latitude: 36.89083, Longitude: 30.67111}

// fileAcquirer writes a synthetic grid where the real acquirer would
// install a download.
type fileAcquirer struct {
	t    *testing.T
	path string
	grid era5test.Grid
	err  error
}

func (a *fileAcquirer) Acquire(ctx context.Context) (acquire.Snapshot, error) {
	if a.err != nil {
		return acquire.Snapshot{}, a.err
	}
	if err := era5test.Write(a.path, a.grid); err != nil {
		a.t.Fatalf("writing grid: %v", err)
	}
	return acquire.Snapshot{ID: "snap-1", Path: a.path}, nil
}

type recordingPublisher struct {
	recs []era5.Reading
	err  error
}

func (p *recordingPublisher) Insert(ctx context.Context, recs []era5.Reading) error {
	p.recs = append(p.recs, recs...)
	return p.err
}

func grid(t2m float32) era5test.Grid {
	return era5test.Surface([]float32{36.8, 36.9}, []float32{30.6, 30.7}, t2m, 283.15, 0.001, 101325, 3, 4)
}

func newTestService(t *testing.T) (*Service, *fileAcquirer, *recordingPublisher) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.nc")
	acq := &fileAcquirer{t: t, path: path, grid: grid(293.15)}
	pub := &recordingPublisher{}
	svc := NewService(zap.NewNop().Sugar(), acq, era5.NewExtractor(path, school), store.NewMemoryStore(10, 0), pub)
	return svc, acq, pub
}

func TestServiceBeforeFirstRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	if svc.HasData() {
		t.Fatal("HasData() = true before refresh")
	}
	if _, err := svc.Current(); !errors.Is(err, era5.ErrNoData) {
		t.Errorf("Current() error = %v, expected ErrNoData", err)
	}
	if _, err := svc.History(time.Time{}, time.Time{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("History() error = %v, expected ErrNotFound", err)
	}
	if svc.Location() != school {
		t.Errorf("Location() = %+v", svc.Location())
	}
	if _, err := svc.Latest(); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Latest() error = %v, expected ErrNotFound", err)
	}
	if n := svc.HistoryLen(); n != 0 {
		t.Errorf("HistoryLen() = %d, expected 0", n)
	}
}

func TestServiceRefresh(t *testing.T) {
	svc, _, pub := newTestService(t)

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.ID != "snap-1" {
		t.Errorf("snapshot id = %q", snap.ID)
	}
	if !svc.HasData() {
		t.Fatal("HasData() = false after refresh")
	}

	rec, err := svc.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	want := era5.WeatherRecord{
		Temperature: 20, DewPoint: 10, Pressure: 1013.2, WindSpeed: 5, Rain: 1,
		UnitTemp: "°C", UnitPressure: "hPa", UnitWind: "m/s", UnitRain: "mm",
		Location: school.Name,
	}
	if rec != want {
		t.Errorf("Current() = %+v\nexpected  %+v", rec, want)
	}

	hist, err := svc.History(time.Time{}, time.Time{})
	if err != nil || len(hist) != 1 {
		t.Fatalf("History() = %v, %v; expected one reading", hist, err)
	}
	latest, err := svc.Latest()
	if err != nil || !latest.ValidTime.Equal(hist[0].ValidTime) || svc.HistoryLen() != 1 {
		t.Errorf("Latest() = %+v, %v; HistoryLen() = %d", latest, err, svc.HistoryLen())
	}
	if len(pub.recs) != 1 || pub.recs[0].WindSpeed != 5 {
		t.Errorf("published %+v, expected one reading", pub.recs)
	}
}

func TestServiceRefreshFailureKeepsData(t *testing.T) {
	svc, acq, pub := newTestService(t)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	acq.err = fmt.Errorf("%w: upstream down", era5.ErrAcquisitionFailed)
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, era5.ErrAcquisitionFailed) {
		t.Fatalf("Refresh() error = %v, expected ErrAcquisitionFailed", err)
	}
	if _, err := svc.Current(); err != nil {
		t.Errorf("Current() after failed refresh: %v", err)
	}
	if len(pub.recs) != 1 {
		t.Errorf("published %d readings, expected 1", len(pub.recs))
	}
}

func TestServiceRefreshTolerates(t *testing.T) {
	t.Run("publish failure", func(t *testing.T) {
		svc, _, pub := newTestService(t)
		pub.err = errors.New("vm down")
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if _, err := svc.History(time.Time{}, time.Time{}); err != nil {
			t.Errorf("History: %v", err)
		}
	})

	t.Run("masked target cell", func(t *testing.T) {
		svc, acq, pub := newTestService(t)
		acq.grid.Mask("tp", 1, 1)
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if _, err := svc.Current(); !errors.Is(err, era5.ErrFieldUnavailable) {
			t.Errorf("Current() error = %v, expected ErrFieldUnavailable", err)
		}
		if _, err := svc.History(time.Time{}, time.Time{}); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("History() error = %v, expected ErrNotFound", err)
		}
		if len(pub.recs) != 0 {
			t.Errorf("published %d readings, expected none", len(pub.recs))
		}
	})
}

func TestServiceWithoutPublisher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.nc")
	acq := &fileAcquirer{t: t, path: path, grid: grid(300)}
	svc := NewService(zap.NewNop().Sugar(), acq, era5.NewExtractor(path, school), store.NewMemoryStore(0, 0), nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}

func TestServiceWithoutAcquirer(t *testing.T) {
	path := era5test.WriteFile(t, t.TempDir(), "weather.nc", grid(300))
	svc := NewService(zap.NewNop().Sugar(), nil, era5.NewExtractor(path, school), store.NewMemoryStore(0, 0), nil)
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, era5.ErrAcquisitionFailed) {
		t.Fatalf("Refresh() error = %v, expected ErrAcquisitionFailed", err)
	}
	if _, err := svc.Current(); err != nil {
		t.Errorf("Current() with an existing dataset: %v", err)
	}
}
