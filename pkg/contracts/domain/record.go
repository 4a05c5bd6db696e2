package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in files.
const DateLayout = "2006-01-02"

// MonthLayout is the period format used for monthly rollups.
const MonthLayout = "2006-01"

// RentalRecord represents one observation of the bike-sharing dataset.
// Temp, Hum and Windspeed are either normalized to [0,1] or already in
// physical units, depending on the Units of the table that holds them.
type RentalRecord struct {
	Date       time.Time        `json:"date" db:"date" validate:"required"`
	Year       int              `json:"year" db:"year" validate:"min=0"`
	Weathersit WeatherSituation `json:"weathersit" db:"weathersit" validate:"min=1,max=4"`
	Holiday    int              `json:"holiday" db:"holiday" validate:"oneof=0 1"`
	Temp       float64          `json:"temp" db:"temp"`
	Hum        float64          `json:"hum" db:"hum"`
	Windspeed  float64          `json:"windspeed" db:"windspeed"`
	Registered int64            `json:"registered" db:"registered" validate:"min=0"`
	Casual     int64            `json:"casual" db:"casual" validate:"min=0"`
	Cnt        int64            `json:"cnt" db:"cnt" validate:"min=0"`
}

// RiderTotalsConsistent reports whether cnt equals registered + casual.
func (r RentalRecord) RiderTotalsConsistent() bool {
	return r.Cnt == r.Registered+r.Casual
}

// WeatherSituation is the categorical weather condition of a record.
type WeatherSituation int

const (
	WeatherClear WeatherSituation = iota + 1
	WeatherCloudy
	WeatherLightSnowRain
	WeatherHeavyRainIcePallets
)

var weatherLabels = map[WeatherSituation]string{
	WeatherClear:               "Clear",
	WeatherCloudy:              "Cloudy",
	WeatherLightSnowRain:       "Light Snow/Rain",
	WeatherHeavyRainIcePallets: "Heavy Rain/Ice Pallets",
}

// WeatherSituations returns every known category in code order.
func WeatherSituations() []WeatherSituation {
	return []WeatherSituation{WeatherClear, WeatherCloudy, WeatherLightSnowRain, WeatherHeavyRainIcePallets}
}

// String returns the human label of the category.
func (w WeatherSituation) String() string {
	if label, ok := weatherLabels[w]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", int(w))
}

// Valid reports whether w is one of the four known categories.
func (w WeatherSituation) Valid() bool {
	_, ok := weatherLabels[w]
	return ok
}

// MarshalText renders the category as its label.
func (w WeatherSituation) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText accepts either the label or the numeric code.
func (w *WeatherSituation) UnmarshalText(text []byte) error {
	parsed, err := ParseWeatherSituation(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWeatherSituation parses a code ("1".."4") or a label, case-insensitively.
func ParseWeatherSituation(s string) (WeatherSituation, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		w := WeatherSituation(code)
		if !w.Valid() {
			return 0, fmt.Errorf("unknown weather code %d", code)
		}
		return w, nil
	}
	for w, label := range weatherLabels {
		if strings.EqualFold(label, s) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown weather situation %q", s)
}

// DateRange is a closed calendar interval [Start, End].
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range with both bounds truncated to calendar days.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

// Contains reports whether the calendar day of t lies within the range.
func (d DateRange) Contains(t time.Time) bool {
	day := TruncateDay(t)
	return !day.Before(d.Start) && !day.After(d.End)
}

// Valid reports whether Start is not after End.
func (d DateRange) Valid() bool {
	return !d.Start.After(d.End)
}

// String renders the range as "start..end".
func (d DateRange) String() string {
	return d.Start.Format(DateLayout) + ".." + d.End.Format(DateLayout)
}

// MarshalJSON renders both bounds as calendar dates.
func (d DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{d.Start.Format(DateLayout), d.End.Format(DateLayout)})
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
