package era5

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const kelvinOffset = 273.15

// Display unit labels.
const (
	UnitTemperature   = "°C"
	UnitPressure      = "hPa"
	UnitWindSpeed     = "m/s"
	UnitPrecipitation = "mm"
)

// KelvinToCelsius converts a temperature from K to °C.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

// PascalToHectopascal converts a pressure from Pa to hPa.
func PascalToHectopascal(pa float64) float64 {
	return pa / 100
}

// MetresToMillimetres converts an accumulated precipitation depth from m to mm.
func MetresToMillimetres(m float64) float64 {
	return m * 1000
}

// WindSpeed is the magnitude of the (u, v) wind vector.
func WindSpeed(u, v float64) float64 {
	return math.Sqrt(u*u + v*v)
}

// Round1 rounds to one decimal place. Exact halves go to the even digit,
// so 1013.25 hPa reads 1013.2.
func Round1(v float64) float64 {
	return scalar.RoundEven(v, 1)
}
