package domain

import (
	"fmt"
	"strings"
)

// AggregationMode selects how the holiday-effect view aggregates cnt.
type AggregationMode string

const (
	// AggregateSum yields total ridership per group.
	AggregateSum AggregationMode = "sum"
	// AggregateMean yields average daily ridership per group.
	AggregateMean AggregationMode = "mean"
)

// ParseAggregationMode validates a mode name.
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch m := AggregationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case AggregateSum, AggregateMean:
		return m, nil
	}
	return "", fmt.Errorf("unknown aggregation mode %q", s)
}

// Units is the unit system of the temp, hum and windspeed columns.
type Units string

const (
	UnitsNormalized Units = "normalized"
	UnitsPhysical   Units = "physical"
)

// ParseUnits validates a unit system name.
func ParseUnits(s string) (Units, error) {
	switch u := Units(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitsNormalized, UnitsPhysical:
		return u, nil
	}
	return "", fmt.Errorf("unknown units %q", s)
}

// ConditionOption is one entry of the dashboard's condition selector.
type ConditionOption string

const (
	ConditionWeather     ConditionOption = "Weather"
	ConditionTemperature ConditionOption = "Temperature"
	ConditionHum         ConditionOption = "Hum"
	ConditionWindspeed   ConditionOption = "Windspeed"
)

// ConditionOptions lists the selector entries in display order.
func ConditionOptions() []ConditionOption {
	return []ConditionOption{ConditionWeather, ConditionTemperature, ConditionHum, ConditionWindspeed}
}

// ParseConditionOption matches an option name case-insensitively.
func ParseConditionOption(s string) (ConditionOption, error) {
	for _, opt := range ConditionOptions() {
		if strings.EqualFold(string(opt), strings.TrimSpace(s)) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("unknown condition option %q", s)
}

// WeatherEffectRow is total cnt for one weather category.
type WeatherEffectRow struct {
	Weathersit WeatherSituation `json:"weathersit"`
	Cnt        int64            `json:"cnt"`
}

// HolidayEffectRow is aggregated cnt for one holiday status.
type HolidayEffectRow struct {
	Holiday int             `json:"holiday"`
	Cnt     float64         `json:"cnt"`
	Mode    AggregationMode `json:"mode"`
	Days    int             `json:"days"`
}

// Label returns the display label for the holiday status.
func (h HolidayEffectRow) Label() string {
	if h.Holiday == 1 {
		return "Holiday"
	}
	return "Not On Holiday"
}

// YearlyTrendRow is total rentals for one year.
type YearlyTrendRow struct {
	Year         int   `json:"year"`
	TotalRentals int64 `json:"total_rentals"`
}

// YearlyHighlights are the lowest and highest yearly totals.
type YearlyHighlights struct {
	Lowest  YearlyTrendRow `json:"lowest"`
	Highest YearlyTrendRow `json:"highest"`
}

// MonthlyRentalsRow is the rollup of one calendar month.
type MonthlyRentalsRow struct {
	Month           string `json:"month"`
	Year            int    `json:"year"`
	TotalRegistered int64  `json:"total_registered"`
	TotalCasual     int64  `json:"total_casual"`
	TotalRentals    int64  `json:"total_rentals"`
}

// TemperatureEffectRow is total cnt for one exact temperature value.
type TemperatureEffectRow struct {
	Temp  float64 `json:"temp"`
	Cnt   int64   `json:"cnt"`
	Units Units   `json:"units"`
}

// ScatterPoint pairs a measurement with the day's cnt.
type ScatterPoint struct {
	X   float64 `json:"x"`
	Cnt int64   `json:"cnt"`
}

// ConditionView is the result of one condition selector option.
// Exactly one of Weather or Points is populated.
type ConditionView struct {
	Option  ConditionOption    `json:"option"`
	XLabel  string             `json:"x_label,omitempty"`
	Weather []WeatherEffectRow `json:"weather,omitempty"`
	Points  []ScatterPoint     `json:"points,omitempty"`
}

// DateBounds describes the extent of a loaded table.
type DateBounds struct {
	Min   string `json:"min"`
	Max   string `json:"max"`
	Rows  int    `json:"rows"`
	Years []int  `json:"years,omitempty"`
}

// RiderTotalsViolation is a row where cnt != registered + casual.
type RiderTotalsViolation struct {
	Index      int    `json:"index"`
	Date       string `json:"date"`
	Registered int64  `json:"registered"`
	Casual     int64  `json:"casual"`
	Cnt        int64  `json:"cnt"`
}

// DashboardSnapshot bundles every view for one date range.
type DashboardSnapshot struct {
	Range       DateRange              `json:"range"`
	Rows        int                    `json:"rows"`
	Holiday     []HolidayEffectRow     `json:"holiday"`
	Weather     []WeatherEffectRow     `json:"weather"`
	Yearly      []YearlyTrendRow       `json:"yearly"`
	Highlights  *YearlyHighlights      `json:"highlights,omitempty"`
	Monthly     []MonthlyRentalsRow    `json:"monthly"`
	Temperature []TemperatureEffectRow `json:"temperature"`
	Condition   ConditionView          `json:"condition"`
}
