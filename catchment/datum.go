package catchment

import (
	"fmt"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

// Coordinate identifies a weather location
type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// String returns the column prefix used for features of this location, e.g. "-3.1_55.9_"
func (c Coordinate) String() string {
	return fmt.Sprintf("%g_%g_", c.Longitude, c.Latitude)
}

// WeatherDatum is the hourly weather of one coordinate as returned by a single fetch
type WeatherDatum struct {
	Longitude        float64            `json:"longitude"`
	Latitude         float64            `json:"latitude"`
	Elevation        float64            `json:"elevation"`
	UTCOffsetSeconds int                `json:"utc_offset_seconds"`
	Timezone         string             `json:"timezone"`
	HourlyUnits      map[string]string  `json:"hourly_units"`
	Hourly           *timedataset.Frame `json:"hourly"`
}

// Coordinate returns the location the weather was fetched for
func (w WeatherDatum) Coordinate() Coordinate {
	return Coordinate{Longitude: w.Longitude, Latitude: w.Latitude}
}
