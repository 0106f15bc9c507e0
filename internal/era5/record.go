package era5

import (
	"time"

	"github.com/umahmood/haversine"
)

// Location is the fixed point the extractor reports on.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading holds the metrics at a grid cell at full precision, in display
// units.
type Reading struct {
	Location   Location  `json:"location"`
	Cell       GridCell  `json:"cell"`
	DistanceKm float64   `json:"distance_km"`
	ValidTime  time.Time `json:"valid_time"`

	Temperature float64 `json:"temperature"`
	DewPoint    float64 `json:"dew_point"`
	Pressure    float64 `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Rain        float64 `json:"rain"`

	// Wind components, m/s.
	ZonalWind      float64 `json:"u10"`
	MeridionalWind float64 `json:"v10"`
}

// WeatherRecord is the rounded, labelled view of a Reading.
type WeatherRecord struct {
	Temperature float64 `json:"temperature"`
	DewPoint    float64 `json:"dew_point"`
	Pressure    float64 `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Rain        float64 `json:"rain"`

	UnitTemp     string `json:"unit_temp"`
	UnitPressure string `json:"unit_pressure"`
	UnitWind     string `json:"unit_wind"`
	UnitRain     string `json:"unit_rain"`

	Location string `json:"location"`
}

// Record rounds every metric to one decimal place.
func (r Reading) Record() WeatherRecord {
	return WeatherRecord{
		Temperature:  Round1(r.Temperature),
		DewPoint:     Round1(r.DewPoint),
		Pressure:     Round1(r.Pressure),
		WindSpeed:    Round1(r.WindSpeed),
		Rain:         Round1(r.Rain),
		UnitTemp:     UnitTemperature,
		UnitPressure: UnitPressure,
		UnitWind:     UnitWindSpeed,
		UnitRain:     UnitPrecipitation,
		Location:     r.Location.Name,
	}
}

// distanceKm is the great-circle distance between the target and the centre
// of the resolved cell.
func distanceKm(loc Location, cell GridCell) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: loc.Latitude, Lon: loc.Longitude},
		haversine.Coord{Lat: cell.Latitude, Lon: cell.Longitude},
	)
	return km
}
