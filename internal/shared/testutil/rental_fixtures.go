package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"bikeshare/pkg/contracts/domain"
)

// RentalCSVHeader is the column layout of generated fixture files.
var RentalCSVHeader = []string{
	"date", "year", "weathersit", "holiday", "temp", "hum", "windspeed", "casual", "registered", "cnt",
}

// Day parses a YYYY-MM-DD date and fails the test on error.
func Day(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatalf("bad fixture date %q: %v", s, err)
	}
	return d
}

// Rental builds a consistent record with cnt split 80/20 into registered and casual.
func Rental(t testing.TB, date string, holiday int, weather domain.WeatherSituation, cnt int64) domain.RentalRecord {
	t.Helper()
	d := Day(t, date)
	casual := cnt / 5
	return domain.RentalRecord{
		Date:       d,
		Year:       d.Year(),
		Weathersit: weather,
		Holiday:    holiday,
		Temp:       0.5,
		Hum:        0.5,
		Windspeed:  0.5,
		Registered: cnt - casual,
		Casual:     casual,
		Cnt:        cnt,
	}
}

// JanuaryFixture is three rows spanning January and February 2011.
func JanuaryFixture(t testing.TB) []domain.RentalRecord {
	t.Helper()
	return []domain.RentalRecord{
		Rental(t, "2011-01-01", 0, domain.WeatherClear, 100),
		Rental(t, "2011-01-02", 1, domain.WeatherCloudy, 50),
		Rental(t, "2011-02-01", 0, domain.WeatherClear, 200),
	}
}

// TwoYearFixture has rows in 2011 and 2012 across all weather categories
// with distinct normalized measurements.
func TwoYearFixture(t testing.TB) []domain.RentalRecord {
	t.Helper()
	rows := []domain.RentalRecord{
		Rental(t, "2011-01-03", 0, domain.WeatherClear, 985),
		Rental(t, "2011-01-17", 1, domain.WeatherCloudy, 1000),
		Rental(t, "2011-03-10", 0, domain.WeatherLightSnowRain, 623),
		Rental(t, "2011-07-04", 1, domain.WeatherClear, 6043),
		Rental(t, "2012-01-02", 1, domain.WeatherCloudy, 1951),
		Rental(t, "2012-02-14", 0, domain.WeatherHeavyRainIcePallets, 22),
		Rental(t, "2012-06-20", 0, domain.WeatherClear, 7363),
		Rental(t, "2012-12-31", 0, domain.WeatherCloudy, 2729),
	}
	temps := []float64{0.2, 0.1, 0.3, 0.8, 0.2, 0.25, 0.7, 0.2}
	for i := range rows {
		rows[i].Temp = temps[i]
		rows[i].Hum = 0.1 * float64(i+1)
		rows[i].Windspeed = 0.05 * float64(i+1)
	}
	return rows
}

// WriteRentalCSV writes records to a CSV file under t.TempDir and returns its path.
func WriteRentalCSV(t testing.TB, records []domain.RentalRecord) string {
	t.Helper()
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format(domain.DateLayout),
			strconv.Itoa(r.Year),
			r.Weathersit.String(),
			strconv.Itoa(r.Holiday),
			strconv.FormatFloat(r.Temp, 'f', -1, 64),
			strconv.FormatFloat(r.Hum, 'f', -1, 64),
			strconv.FormatFloat(r.Windspeed, 'f', -1, 64),
			strconv.FormatInt(r.Casual, 10),
			strconv.FormatInt(r.Registered, 10),
			strconv.FormatInt(r.Cnt, 10),
		})
	}
	return WriteCSV(t, "all_data.csv", RentalCSVHeader, rows)
}

// WriteCSV writes an arbitrary CSV file under t.TempDir and returns its path.
func WriteCSV(t testing.TB, name string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write fixture header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write fixture rows: %v", err)
	}
	if err := w.Error(); err != nil {
		t.Fatal(fmt.Errorf("flush fixture: %w", err))
	}
	return path
}
