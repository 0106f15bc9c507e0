// Package weather ties the acquirer, the extractor, the reading history and
// the metrics publisher together.
package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
	"github.com/Xassemblianist/ATALWF/internal/era5"
)

// Acquirer produces a new dataset file.
type Acquirer interface {
	Acquire(ctx context.Context) (acquire.Snapshot, error)
}

// Extractor reads the target location out of the dataset file.
type Extractor interface {
	HasData() bool
	Sample() (era5.Reading, error)
	Target() era5.Location
}

// Store keeps extracted readings.
type Store interface {
	Save(r era5.Reading)
	Latest() (era5.Reading, error)
	Range(from, to time.Time) ([]era5.Reading, error)
	Len() int
}

// Publisher ships readings to a metrics backend.
type Publisher interface {
	Insert(ctx context.Context, recs []era5.Reading) error
}

// Service answers weather queries and refreshes the dataset on demand.
type Service struct {
	logger    *zap.SugaredLogger
	acquirer  Acquirer
	extractor Extractor
	store     Store
	publisher Publisher

	// Serializes refreshes; extraction never takes it.
	refreshMu sync.Mutex
}

// NewService creates a new Service. acquirer and publisher may be nil; a
// Service without an acquirer serves whatever dataset is already on disk.
func NewService(logger *zap.SugaredLogger, acquirer Acquirer, extractor Extractor, store Store, publisher Publisher) *Service {
	return &Service{
		logger:    logger,
		acquirer:  acquirer,
		extractor: extractor,
		store:     store,
		publisher: publisher,
	}
}

// HasData reports whether a dataset has been acquired.
func (s *Service) HasData() bool {
	return s.extractor.HasData()
}

// Location returns the configured target.
func (s *Service) Location() era5.Location {
	return s.extractor.Target()
}

// Current extracts the weather record from the dataset on disk.
func (s *Service) Current() (era5.WeatherRecord, error) {
	r, err := s.extractor.Sample()
	if err != nil {
		return era5.WeatherRecord{}, err
	}
	return r.Record(), nil
}

// Refresh acquires a new snapshot. When that succeeds the target reading is
// extracted, kept in the history and published. Extraction and publishing
// problems are logged; they do not fail the refresh.
func (s *Service) Refresh(ctx context.Context) (acquire.Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.acquirer == nil {
		return acquire.Snapshot{}, fmt.Errorf("%w: retrieval is not configured", era5.ErrAcquisitionFailed)
	}
	snap, err := s.acquirer.Acquire(ctx)
	if err != nil {
		return acquire.Snapshot{}, err
	}

	r, err := s.extractor.Sample()
	if err != nil {
		s.logger.Warnw("Snapshot installed but target could not be extracted", "id", snap.ID, "err", err)
		return snap, nil
	}
	s.store.Save(r)
	s.logger.Infow("Weather refreshed",
		"id", snap.ID,
		"validTime", r.ValidTime,
		"latIdx", r.Cell.LatIndex,
		"lonIdx", r.Cell.LonIndex,
		"distanceKm", r.DistanceKm,
	)

	if s.publisher != nil {
		if err := s.publisher.Insert(ctx, []era5.Reading{r}); err != nil {
			s.logger.Errorw("Could not publish reading", "id", snap.ID, "err", err)
		}
	}
	return snap, nil
}

// History returns stored readings between from and to.
func (s *Service) History(from, to time.Time) ([]era5.Reading, error) {
	return s.store.Range(from, to)
}

// Latest returns the newest stored reading.
func (s *Service) Latest() (era5.Reading, error) {
	return s.store.Latest()
}

// HistoryLen returns the number of stored readings.
func (s *Service) HistoryLen() int {
	return s.store.Len()
}
