package acquire

import (
	"fmt"
	"math"
	"time"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

// Dataset is the CDS catalogue entry for hourly single-level reanalysis.
const Dataset = "reanalysis-era5-single-levels"

// Variables are the long names of the fields the extractor reads, in the
// order of era5.Fields.
var Variables = []string{
	"2m_temperature",
	"2m_dewpoint_temperature",
	"total_precipitation",
	"surface_pressure",
	"10m_u_component_of_wind",
	"10m_v_component_of_wind",
}

// slotHours is the spacing of the retrieval time slots.
const slotHours = 6

// Request is the retrieval request posted to the data endpoint.
type Request struct {
	Dataset     string    `json:"dataset"`
	ProductType string    `json:"product_type"`
	Variables   []string  `json:"variable"`
	Year        string    `json:"year"`
	Month       string    `json:"month"`
	Day         string    `json:"day"`
	Time        string    `json:"time"`
	Format      string    `json:"format"`
	Area        []float64 `json:"area,omitempty"` // N, W, S, E

	// Slot is the UTC time the request refers to.
	Slot time.Time `json:"-"`
}

// NewRequest builds the request for the 6-hour slot containing at. A
// positive margin restricts the area to target ± margin degrees.
func NewRequest(at time.Time, target era5.Location, margin float64) Request {
	at = at.UTC()
	slot := time.Date(at.Year(), at.Month(), at.Day(), (at.Hour()/slotHours)*slotHours, 0, 0, 0, time.UTC)

	r := Request{
		Dataset:     Dataset,
		ProductType: "reanalysis",
		Variables:   append([]string(nil), Variables...),
		Year:        fmt.Sprintf("%d", slot.Year()),
		Month:       fmt.Sprintf("%02d", int(slot.Month())),
		Day:         fmt.Sprintf("%02d", slot.Day()),
		Time:        fmt.Sprintf("%02d:00", slot.Hour()),
		Format:      "netcdf",
		Slot:        slot,
	}
	if margin > 0 {
		r.Area = []float64{
			math.Min(target.Latitude+margin, 90),
			target.Longitude - margin,
			math.Max(target.Latitude-margin, -90),
			target.Longitude + margin,
		}
	}
	return r
}
