package era5

import (
	"errors"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Variable names as stored in ERA5 single-level files.
const (
	Temperature2M      = "t2m"
	Dewpoint2M         = "d2m"
	TotalPrecipitation = "tp"
	SurfacePressure    = "sp"
	ZonalWind10M       = "u10"
	MeridionalWind10M  = "v10"
)

// Fields lists every variable the extractor reads.
var Fields = []string{
	Temperature2M,
	Dewpoint2M,
	TotalPrecipitation,
	SurfacePressure,
	ZonalWind10M,
	MeridionalWind10M,
}

const (
	latitudeAxis  = "latitude"
	longitudeAxis = "longitude"
)

// Files retrieved through the newer CDS backend name the time axis
// valid_time; older ones use time.
var timeAxes = []string{"time", "valid_time"}

// ERA5 encodes time as hours since 1900-01-01 unless a units attribute
// says otherwise.
var era5Epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// OpenFunc opens a NetCDF file. netcdf.Open is used unless a test swaps it.
type OpenFunc func(filePath string) (api.Group, error)

// Dataset is an open ERA5 file with its axes loaded.
type Dataset struct {
	nc       api.Group
	timeAxis string
	la       []float64
	lo       []float64
	times    []time.Time
}

// OpenDataset opens an ERA5 file and loads its latitude, longitude and time
// axes. A missing file yields ErrNoData; anything else that prevents reading
// the axes yields ErrDatasetMalformed.
func OpenDataset(filePath string) (*Dataset, error) {
	return openDataset(netcdf.Open, filePath)
}

func openDataset(open OpenFunc, filePath string) (*Dataset, error) {
	nc, err := open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoData
		}
		return nil, malformed(filePath, "cannot open: %v", err)
	}
	d := &Dataset{nc: nc}
	if err := d.loadAxes(); err != nil {
		nc.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dataset) loadAxes() error {
	var err error
	d.la, err = axisValues(d.nc, latitudeAxis)
	if err != nil {
		return err
	}
	d.lo, err = axisValues(d.nc, longitudeAxis)
	if err != nil {
		return err
	}
	d.timeAxis, d.times, err = timeValues(d.nc)
	return err
}

// Close releases the underlying file.
func (d *Dataset) Close() {
	d.nc.Close()
}

// Latitudes returns the latitude axis in degrees.
func (d *Dataset) Latitudes() []float64 { return d.la }

// Longitudes returns the longitude axis in degrees.
func (d *Dataset) Longitudes() []float64 { return d.lo }

// ValidTime returns the timestamp of the first time slice.
func (d *Dataset) ValidTime() time.Time {
	if len(d.times) == 0 {
		return time.Time{}
	}
	return d.times[0]
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (d *Dataset) Summary() []any {
	return []any{
		"tsCnt", len(d.times),
		"laCnt", len(d.la),
		"loCnt", len(d.lo),
		"validTime", d.ValidTime(),
	}
}

// Validate checks that every field exists and matches the axes.
func (d *Dataset) Validate() error {
	for _, name := range Fields {
		if _, err := d.field(name); err != nil {
			return err
		}
	}
	return nil
}

// Value reads field name at time index 0 and grid cell (i, j). Packed values
// are unpacked with scale_factor and add_offset. Masked cells are reported
// as a *FieldError.
func (d *Dataset) Value(name string, i, j int) (float64, error) {
	vg, err := d.field(name)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(d.la) || j < 0 || j >= len(d.lo) {
		return 0, &FieldError{Field: name, LatIndex: i, LonIndex: j, Reason: "index out of range"}
	}
	slice, err := vg.GetSlice(0, 1)
	if err != nil {
		return 0, malformed(name, "cannot read time slice: %v", err)
	}
	raw, ok := cellValue(slice, i, j)
	if !ok {
		return 0, malformed(name, "unsupported value type %T", slice)
	}

	attrs := vg.Attributes()
	for _, key := range []string{"_FillValue", "missing_value"} {
		if fill, ok := attrFloat(attrs, key); ok && raw == fill {
			return 0, &FieldError{Field: name, LatIndex: i, LonIndex: j, Reason: "masked by " + key}
		}
	}
	v := raw
	if scale, ok := attrFloat(attrs, "scale_factor"); ok {
		v *= scale
	}
	if offset, ok := attrFloat(attrs, "add_offset"); ok {
		v += offset
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FieldError{Field: name, LatIndex: i, LonIndex: j, Reason: "not a finite value"}
	}
	return v, nil
}

func (d *Dataset) field(name string) (api.VarGetter, error) {
	vg, err := d.nc.GetVarGetter(name)
	if err != nil {
		return nil, malformed(name, "missing field: %v", err)
	}
	dims := vg.Dimensions()
	want := []string{d.timeAxis, latitudeAxis, longitudeAxis}
	if len(dims) != len(want) {
		return nil, malformed(name, "expected dimensions %v, got %v", want, dims)
	}
	lengths := []int{len(d.times), len(d.la), len(d.lo)}
	for k, dim := range dims {
		if dim != want[k] {
			return nil, malformed(name, "expected dimensions %v, got %v", want, dims)
		}
		n, ok := d.nc.GetDimension(dim)
		if !ok {
			return nil, malformed(name, "dimension %s is not defined", dim)
		}
		if n != uint64(lengths[k]) {
			return nil, malformed(name, "dimension %s has length %d, axis has %d", dim, n, lengths[k])
		}
	}
	return vg, nil
}

func axisValues(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, malformed(name, "missing axis: %v", err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, malformed(name, "cannot read axis: %v", err)
	}
	vals, ok := float64s(v)
	if !ok {
		return nil, malformed(name, "unsupported axis type %T", v)
	}
	if len(vals) == 0 {
		return nil, malformed(name, "empty axis")
	}
	return vals, nil
}

func timeValues(nc api.Group) (string, []time.Time, error) {
	for _, name := range timeAxes {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		v, err := vg.Values()
		if err != nil {
			return "", nil, malformed(name, "cannot read axis: %v", err)
		}
		steps, ok := float64s(v)
		if !ok {
			return "", nil, malformed(name, "unsupported axis type %T", v)
		}
		if len(steps) == 0 {
			return "", nil, malformed(name, "empty axis")
		}
		unit, epoch := time.Hour, era5Epoch
		if units, ok := attrString(vg.Attributes(), "units"); ok {
			unit, epoch = parseTimeUnits(units)
		}
		ts := make([]time.Time, len(steps))
		for i, s := range steps {
			ts[i] = epoch.Add(time.Duration(math.Round(s * float64(unit))))
		}
		return name, ts, nil
	}
	return "", nil, malformed(strings.Join(timeAxes, "|"), "missing axis")
}

// parseTimeUnits understands CF units such as "hours since 1900-01-01
// 00:00:00.0" and "seconds since 1970-01-01". Unknown units fall back to
// the ERA5 default.
func parseTimeUnits(units string) (time.Duration, time.Time) {
	step, since, found := strings.Cut(strings.TrimSpace(units), " since ")
	if !found {
		return time.Hour, era5Epoch
	}
	var unit time.Duration
	switch strings.ToLower(step) {
	case "seconds", "second", "s":
		unit = time.Second
	case "minutes", "minute":
		unit = time.Minute
	case "hours", "hour", "h":
		unit = time.Hour
	case "days", "day":
		unit = 24 * time.Hour
	default:
		return time.Hour, era5Epoch
	}
	since = strings.TrimSpace(since)
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, since); err == nil {
			return unit, t.UTC()
		}
	}
	return time.Hour, era5Epoch
}
