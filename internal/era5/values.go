package era5

import "github.com/batchatco/go-native-netcdf/netcdf/api"

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// float64s converts a 1-D variable as returned by VarGetter.Values.
func float64s(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return widen(s), true
	case []float32:
		return widen(s), true
	case []int8:
		return widen(s), true
	case []int16:
		return widen(s), true
	case []int32:
		return widen(s), true
	case []int64:
		return widen(s), true
	case []uint8:
		return widen(s), true
	case []uint16:
		return widen(s), true
	case []uint32:
		return widen(s), true
	case []uint64:
		return widen(s), true
	}
	return nil, false
}

func at[T number](s [][][]T, i, j int) (float64, bool) {
	if len(s) == 0 || i >= len(s[0]) || j >= len(s[0][i]) {
		return 0, false
	}
	return float64(s[0][i][j]), true
}

// cellValue picks [0][i][j] out of a single time slice as returned by
// VarGetter.GetSlice.
func cellValue(v any, i, j int) (float64, bool) {
	switch s := v.(type) {
	case [][][]float64:
		return at(s, i, j)
	case [][][]float32:
		return at(s, i, j)
	case [][][]int8:
		return at(s, i, j)
	case [][][]int16:
		return at(s, i, j)
	case [][][]int32:
		return at(s, i, j)
	case [][][]int64:
		return at(s, i, j)
	case [][][]uint8:
		return at(s, i, j)
	case [][][]uint16:
		return at(s, i, j)
	case [][][]uint32:
		return at(s, i, j)
	case [][][]uint64:
		return at(s, i, j)
	}
	return 0, false
}

// attrFloat reads a numeric attribute. Single-valued attributes may come
// back as a scalar or as a one-element slice depending on the file format.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch a := v.(type) {
	case float64:
		return a, true
	case float32:
		return float64(a), true
	case int8:
		return float64(a), true
	case int16:
		return float64(a), true
	case int32:
		return float64(a), true
	case int64:
		return float64(a), true
	case uint8:
		return float64(a), true
	case uint16:
		return float64(a), true
	case uint32:
		return float64(a), true
	case uint64:
		return float64(a), true
	}
	if s, ok := float64s(v); ok && len(s) == 1 {
		return s[0], true
	}
	return 0, false
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
