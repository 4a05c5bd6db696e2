package dataprocessing

import (
	"fmt"

	"bikeshare/pkg/contracts/domain"
)

// ConditionView resolves one condition selector option against t.
// Weather yields the weather-effect table; the measurement options yield
// one scatter point per row, labelled for the table's unit system.
func ConditionView(t *Table, option domain.ConditionOption) (domain.ConditionView, error) {
	view := domain.ConditionView{Option: option}

	var pick func(domain.RentalRecord) float64
	switch option {
	case domain.ConditionWeather:
		view.XLabel = "Weathersit"
		view.Weather = WeatherEffect(t)
		return view, nil
	case domain.ConditionTemperature:
		pick = func(r domain.RentalRecord) float64 { return r.Temp }
	case domain.ConditionHum:
		pick = func(r domain.RentalRecord) float64 { return r.Hum }
	case domain.ConditionWindspeed:
		pick = func(r domain.RentalRecord) float64 { return r.Windspeed }
	default:
		return domain.ConditionView{}, fmt.Errorf("condition %q: %w", option, ErrUnknownCondition)
	}

	view.XLabel = AxisLabel(option, t.Units())
	view.Points = make([]domain.ScatterPoint, 0, t.Len())
	for _, r := range t.records {
		view.Points = append(view.Points, domain.ScatterPoint{X: pick(r), Cnt: r.Cnt})
	}
	return view, nil
}

// AxisLabel names the x axis of a condition chart.
func AxisLabel(option domain.ConditionOption, units domain.Units) string {
	if units == domain.UnitsNormalized {
		switch option {
		case domain.ConditionTemperature:
			return "Temperature (Normalized)"
		case domain.ConditionHum:
			return "Humidity (Normalized)"
		case domain.ConditionWindspeed:
			return "Windspeed (Normalized)"
		}
	}
	switch option {
	case domain.ConditionTemperature:
		return "Temperature (°C)"
	case domain.ConditionHum:
		return "Humidity (%)"
	case domain.ConditionWindspeed:
		return "Windspeed"
	}
	return string(option)
}

// CheckRiderTotals returns every row where cnt != registered + casual.
// Rows are reported, never corrected.
func CheckRiderTotals(t *Table) []domain.RiderTotalsViolation {
	violations := make([]domain.RiderTotalsViolation, 0)
	for i, r := range t.records {
		if r.RiderTotalsConsistent() {
			continue
		}
		violations = append(violations, domain.RiderTotalsViolation{
			Index:      i,
			Date:       r.Date.Format(domain.DateLayout),
			Registered: r.Registered,
			Casual:     r.Casual,
			Cnt:        r.Cnt,
		})
	}
	return violations
}
