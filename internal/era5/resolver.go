package era5

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metric measures how far an axis value lies from the target coordinate.
type Metric func(axis, target float64) float64

// AbsDiff is the plain absolute difference.
func AbsDiff(axis, target float64) float64 {
	return math.Abs(axis - target)
}

// LongitudeDiff is the absolute difference on a 360° circle, so that a
// 0..360 grid and a -180..180 target compare correctly.
func LongitudeDiff(axis, target float64) float64 {
	d := math.Mod(math.Abs(axis-target), 360)
	return math.Min(d, 360-d)
}

// GridCell is a resolved grid index pair with the coordinates it stands for.
type GridCell struct {
	LatIndex  int     `json:"lat_index"`
	LonIndex  int     `json:"lon_index"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Resolver maps a target coordinate to the nearest grid cell, searching
// each axis independently.
type Resolver struct {
	Lat Metric
	Lon Metric
}

// NewResolver returns a resolver that uses AbsDiff on both axes.
func NewResolver() Resolver {
	return Resolver{Lat: AbsDiff, Lon: AbsDiff}
}

// Resolve returns the grid cell nearest to loc.
func (r Resolver) Resolve(la, lo []float64, loc Location) (GridCell, error) {
	latMetric, lonMetric := r.Lat, r.Lon
	if latMetric == nil {
		latMetric = AbsDiff
	}
	if lonMetric == nil {
		lonMetric = AbsDiff
	}
	i, err := Nearest(latitudeAxis, la, loc.Latitude, latMetric)
	if err != nil {
		return GridCell{}, err
	}
	j, err := Nearest(longitudeAxis, lo, loc.Longitude, lonMetric)
	if err != nil {
		return GridCell{}, err
	}
	return GridCell{LatIndex: i, LonIndex: j, Latitude: la[i], Longitude: lo[j]}, nil
}

// Nearest returns the index of the axis value closest to target under
// metric. Ties go to the lowest index. NaN distances are skipped.
func Nearest(name string, axis []float64, target float64, metric Metric) (int, error) {
	if len(axis) == 0 {
		return 0, malformed(name, "empty axis")
	}
	dist := make([]float64, len(axis))
	finite := false
	for i, v := range axis {
		dist[i] = metric(v, target)
		finite = finite || !math.IsNaN(dist[i])
	}
	if !finite {
		return 0, malformed(name, "no finite axis value")
	}
	return floats.MinIdx(dist), nil
}
