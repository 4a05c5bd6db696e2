package exporter

import (
	"errors"
	"fmt"
	"strings"

	"bikeshare/pkg/contracts/domain"
)

var (
	// ErrUnknownTable is returned for table names outside TableNames.
	ErrUnknownTable = errors.New("unknown summary table")
	// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrMultipleTables is returned when several tables are sent to a single-table format.
	ErrMultipleTables = errors.New("format holds a single table")
)

// Summary table names.
const (
	TableHoliday     = "holiday"
	TableWeather     = "weather"
	TableYearly      = "yearly"
	TableMonthly     = "monthly"
	TableTemperature = "temperature"
	TableCondition   = "condition"
	TableIntegrity   = "integrity"
)

// TableNames lists the exportable summary tables.
func TableNames() []string {
	return []string{TableHoliday, TableWeather, TableYearly, TableMonthly, TableTemperature, TableCondition, TableIntegrity}
}

// ParseTableName validates an exportable table name.
func ParseTableName(s string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, n := range TableNames() {
		if n == name {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
}

// Table is a summary view flattened for export. Cells keep their Go type
// so spreadsheet output stays numeric.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HolidayTable flattens the holiday-effect view.
func HolidayTable(rows []domain.HolidayEffectRow) Table {
	t := Table{Name: TableHoliday, Headers: []string{"holiday", "label", "cnt", "mode", "days"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Holiday, r.Label(), r.Cnt, string(r.Mode), r.Days})
	}
	return t
}

// WeatherTable flattens the weather-effect view.
func WeatherTable(rows []domain.WeatherEffectRow) Table {
	t := Table{Name: TableWeather, Headers: []string{"weathersit", "code", "cnt"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Weathersit.String(), int(r.Weathersit), r.Cnt})
	}
	return t
}

// YearlyTable flattens the yearly trend.
func YearlyTable(rows []domain.YearlyTrendRow) Table {
	t := Table{Name: TableYearly, Headers: []string{"year", "total_rentals"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Year, r.TotalRentals})
	}
	return t
}

// MonthlyTable flattens the monthly rollup.
func MonthlyTable(rows []domain.MonthlyRentalsRow) Table {
	t := Table{Name: TableMonthly, Headers: []string{"month", "year", "total_registered", "total_casual", "total_rentals"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Month, r.Year, r.TotalRegistered, r.TotalCasual, r.TotalRentals})
	}
	return t
}

// TemperatureTable flattens the temperature-effect view.
func TemperatureTable(rows []domain.TemperatureEffectRow) Table {
	t := Table{Name: TableTemperature, Headers: []string{"temp", "cnt", "units"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Temp, r.Cnt, string(r.Units)})
	}
	return t
}

// ConditionTable flattens a condition selector view. The weather option
// exports the weather table under the condition name.
func ConditionTable(view domain.ConditionView) Table {
	if view.Option == domain.ConditionWeather {
		t := WeatherTable(view.Weather)
		t.Name = TableCondition
		return t
	}
	xHeader := strings.ToLower(string(view.Option))
	t := Table{Name: TableCondition, Headers: []string{xHeader, "cnt"}}
	for _, p := range view.Points {
		t.Rows = append(t.Rows, []interface{}{p.X, p.Cnt})
	}
	return t
}

// IntegrityTable flattens rider-total violations.
func IntegrityTable(rows []domain.RiderTotalsViolation) Table {
	t := Table{Name: TableIntegrity, Headers: []string{"index", "date", "registered", "casual", "cnt"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Index, r.Date, r.Registered, r.Casual, r.Cnt})
	}
	return t
}
