// Package era5test writes small synthetic ERA5 files for tests.
package era5test

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Field is one gridded variable. Values is a [time][lat][lon] slice of any
// numeric type the writer supports, unless Dims names other dimensions.
type Field struct {
	Values any
	Attrs  map[string]any
	Dims   []string
}

// Grid describes a file with latitude, longitude and time axes.
type Grid struct {
	Latitudes  []float32
	Longitudes []float32
	// Hours since 1900-01-01, one entry per time slice.
	Hours  []int32
	Fields map[string]Field
}

// Fill returns a single time slice where every cell holds v.
func Fill(lat, lon int, v float32) [][][]float32 {
	out := [][][]float32{make([][]float32, lat)}
	for i := range out[0] {
		out[0][i] = make([]float32, lon)
		for j := range out[0][i] {
			out[0][i][j] = v
		}
	}
	return out
}

// Surface returns a grid holding every ERA5 field with the same value in
// every cell. Tests override single cells through Set.
func Surface(lat, lon []float32, t2m, d2m, tp, sp, u10, v10 float32) Grid {
	g := Grid{
		Latitudes:  lat,
		Longitudes: lon,
		Hours:      []int32{1_092_816}, // 2024-09-01T00:00Z
		Fields:     map[string]Field{},
	}
	for name, v := range map[string]float32{
		"t2m": t2m, "d2m": d2m, "tp": tp, "sp": sp, "u10": u10, "v10": v10,
	} {
		g.Fields[name] = Field{Values: Fill(len(lat), len(lon), v)}
	}
	return g
}

// Set overrides a single cell of a float32 field.
func (g Grid) Set(name string, i, j int, v float32) {
	g.Fields[name].Values.([][][]float32)[0][i][j] = v
}

// Mask replaces the cell with NaN.
func (g Grid) Mask(name string, i, j int) {
	g.Set(name, i, j, float32(math.NaN()))
}

// Write stores g as a NetCDF classic file at path.
func Write(path string, g Grid) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	add := func(name string, values any, dims []string, attrs map[string]any) error {
		om, err := orderedMap(attrs)
		if err != nil {
			return err
		}
		return cw.AddVar(name, api.Variable{Values: values, Dimensions: dims, Attributes: om})
	}
	if err := add("latitude", g.Latitudes, []string{"latitude"}, map[string]any{"units": "degrees_north"}); err != nil {
		cw.Close()
		return err
	}
	if err := add("longitude", g.Longitudes, []string{"longitude"}, map[string]any{"units": "degrees_east"}); err != nil {
		cw.Close()
		return err
	}
	if g.Hours != nil {
		if err := add("time", g.Hours, []string{"time"}, map[string]any{"units": "hours since 1900-01-01 00:00:00.0"}); err != nil {
			cw.Close()
			return err
		}
	}
	names := make([]string, 0, len(g.Fields))
	for name := range g.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := g.Fields[name]
		dims := f.Dims
		if dims == nil {
			dims = []string{"time", "latitude", "longitude"}
		}
		if err := add(name, f.Values, dims, f.Attrs); err != nil {
			cw.Close()
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return cw.Close()
}

// WriteFile writes g into dir under name and fails the test on error.
func WriteFile(tb testing.TB, dir, name string, g Grid) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := Write(path, g); err != nil {
		tb.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func orderedMap(attrs map[string]any) (*util.OrderedMap, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return util.NewOrderedMap(keys, attrs)
}
