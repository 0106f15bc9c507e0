package era5

import (
	"os"

	"github.com/batchatco/go-native-netcdf/netcdf"
)

// Extractor reads the metrics of a fixed location out of an ERA5 file. The
// file may be replaced between calls; every call opens it afresh and keeps
// no state.
type Extractor struct {
	path     string
	target   Location
	resolver Resolver
	open     OpenFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithResolver overrides the default nearest-neighbour resolver.
func WithResolver(r Resolver) Option {
	return func(e *Extractor) {
		e.resolver = r
	}
}

// NewExtractor creates an extractor for the file at path and the given
// target.
func NewExtractor(path string, target Location, opts ...Option) *Extractor {
	e := &Extractor{
		path:     path,
		target:   target,
		resolver: NewResolver(),
		open:     netcdf.Open,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Target returns the location the extractor reports on.
func (e *Extractor) Target() Location {
	return e.target
}

// HasData reports whether the dataset file exists.
func (e *Extractor) HasData() bool {
	fi, err := os.Stat(e.path)
	return err == nil && fi.Mode().IsRegular()
}

// Sample reads the full-precision reading for the target from the first
// time slice.
func (e *Extractor) Sample() (Reading, error) {
	if !e.HasData() {
		return Reading{}, ErrNoData
	}
	ds, err := openDataset(e.open, e.path)
	if err != nil {
		return Reading{}, err
	}
	defer ds.Close()

	cell, err := e.resolver.Resolve(ds.Latitudes(), ds.Longitudes(), e.target)
	if err != nil {
		return Reading{}, err
	}

	var raw [6]float64
	for k, name := range Fields {
		raw[k], err = ds.Value(name, cell.LatIndex, cell.LonIndex)
		if err != nil {
			return Reading{}, err
		}
	}
	t2m, d2m, tp, sp, u10, v10 := raw[0], raw[1], raw[2], raw[3], raw[4], raw[5]

	return Reading{
		Location:       e.target,
		Cell:           cell,
		DistanceKm:     distanceKm(e.target, cell),
		ValidTime:      ds.ValidTime(),
		Temperature:    KelvinToCelsius(t2m),
		DewPoint:       KelvinToCelsius(d2m),
		Pressure:       PascalToHectopascal(sp),
		WindSpeed:      WindSpeed(u10, v10),
		Rain:           MetresToMillimetres(tp),
		ZonalWind:      u10,
		MeridionalWind: v10,
	}, nil
}

// Extract returns the rounded weather record for the target.
func (e *Extractor) Extract() (WeatherRecord, error) {
	r, err := e.Sample()
	if err != nil {
		return WeatherRecord{}, err
	}
	return r.Record(), nil
}

// Validate opens the file at path and checks that it carries every axis and
// field the extractor needs.
func Validate(path string) error {
	ds, err := OpenDataset(path)
	if err != nil {
		return err
	}
	defer ds.Close()
	return ds.Validate()
}
