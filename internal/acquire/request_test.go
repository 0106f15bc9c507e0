package acquire

import (
	"testing"
	"time"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

func TestNewRequestSlot(t *testing.T) {
	tests := []struct {
		at       time.Time
		wantDate [3]string
		wantTime string
	}{
		{time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), [3]string{"2024", "09", "01"}, "00:00"},
		{time.Date(2024, 9, 1, 5, 59, 59, 0, time.UTC), [3]string{"2024", "09", "01"}, "00:00"},
		{time.Date(2024, 9, 1, 6, 0, 0, 0, time.UTC), [3]string{"2024", "09", "01"}, "06:00"},
		{time.Date(2024, 12, 31, 23, 10, 0, 0, time.UTC), [3]string{"2024", "12", "31"}, "18:00"},
		// 01:30 in UTC+3 is 22:30 the previous day in UTC.
		{time.Date(2024, 3, 1, 1, 30, 0, 0, time.FixedZone("TRT", 3*3600)), [3]string{"2024", "02", "29"}, "18:00"},
	}

	for _, tt := range tests {
		r := NewRequest(tt.at, school, 0)
		if got := [3]string{r.Year, r.Month, r.Day}; got != tt.wantDate || r.Time != tt.wantTime {
			t.Errorf("NewRequest(%v) = %v %s, expected %v %s", tt.at, got, r.Time, tt.wantDate, tt.wantTime)
		}
		if r.Slot.Location() != time.UTC || r.Slot.Minute() != 0 || r.Slot.Hour()%6 != 0 {
			t.Errorf("NewRequest(%v).Slot = %v, expected a UTC 6-hour boundary", tt.at, r.Slot)
		}
		if r.Area != nil {
			t.Errorf("NewRequest with zero margin set area %v", r.Area)
		}
	}
}

func TestNewRequestArea(t *testing.T) {
	r := NewRequest(time.Now(), school, 0.5)
	want := []float64{school.Latitude + 0.5, school.Longitude - 0.5, school.Latitude - 0.5, school.Longitude + 0.5}
	if len(r.Area) != 4 {
		t.Fatalf("Area = %v, expected 4 values", r.Area)
	}
	for i := range want {
		if r.Area[i] != want[i] {
			t.Errorf("Area[%d] = %v, expected %v", i, r.Area[i], want[i])
		}
	}

	polar := NewRequest(time.Now(), era5.Location{Latitude: 89.8, Longitude: 0}, 1)
	if polar.Area[0] != 90 || polar.Area[2] != 88.8 {
		t.Errorf("polar area = %v, expected north clamped to 90", polar.Area)
	}
}
