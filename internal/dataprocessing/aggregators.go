package dataprocessing

import (
	"fmt"
	"sort"
	"time"

	"bikeshare/pkg/contracts/domain"
)

// group collects row indexes per key, remembering first-seen key order.
type group[K comparable] struct {
	keys    []K
	members map[K][]int
}

func groupBy[K comparable](t *Table, key func(domain.RentalRecord) K) group[K] {
	g := group[K]{members: make(map[K][]int)}
	for i, r := range t.records {
		k := key(r)
		if _, ok := g.members[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.members[k] = append(g.members[k], i)
	}
	return g
}

func (t *Table) sumCnt(idx []int) int64 {
	var total int64
	for _, i := range idx {
		total += t.records[i].Cnt
	}
	return total
}

// WeatherEffect sums cnt per weather category, ordered by category code.
func WeatherEffect(t *Table) []domain.WeatherEffectRow {
	g := groupBy(t, func(r domain.RentalRecord) domain.WeatherSituation { return r.Weathersit })
	sort.Slice(g.keys, func(i, j int) bool { return g.keys[i] < g.keys[j] })

	rows := make([]domain.WeatherEffectRow, 0, len(g.keys))
	for _, k := range g.keys {
		rows = append(rows, domain.WeatherEffectRow{Weathersit: k, Cnt: t.sumCnt(g.members[k])})
	}
	return rows
}

// HolidayEffect aggregates cnt per holiday status with the given mode,
// ordered non-holiday first.
func HolidayEffect(t *Table, mode domain.AggregationMode) ([]domain.HolidayEffectRow, error) {
	if mode != domain.AggregateSum && mode != domain.AggregateMean {
		return nil, fmt.Errorf("holiday effect %q: %w", mode, ErrUnknownAggregation)
	}

	g := groupBy(t, func(r domain.RentalRecord) int { return r.Holiday })
	sort.Ints(g.keys)

	rows := make([]domain.HolidayEffectRow, 0, len(g.keys))
	for _, k := range g.keys {
		idx := g.members[k]
		value := float64(t.sumCnt(idx))
		if mode == domain.AggregateMean {
			value /= float64(len(idx))
		}
		rows = append(rows, domain.HolidayEffectRow{Holiday: k, Cnt: value, Mode: mode, Days: len(idx)})
	}
	return rows, nil
}

// YearlyTrend sums cnt into total_rentals per year, ascending by year.
func YearlyTrend(t *Table) []domain.YearlyTrendRow {
	g := groupBy(t, func(r domain.RentalRecord) int { return r.Year })
	sort.Ints(g.keys)

	rows := make([]domain.YearlyTrendRow, 0, len(g.keys))
	for _, k := range g.keys {
		rows = append(rows, domain.YearlyTrendRow{Year: k, TotalRentals: t.sumCnt(g.members[k])})
	}
	return rows
}

// YearlyHighlights picks the lowest and highest yearly totals.
// Ties keep the earlier year. ok is false when rows is empty.
func YearlyHighlights(rows []domain.YearlyTrendRow) (domain.YearlyHighlights, bool) {
	if len(rows) == 0 {
		return domain.YearlyHighlights{}, false
	}
	h := domain.YearlyHighlights{Lowest: rows[0], Highest: rows[0]}
	for _, r := range rows[1:] {
		if r.TotalRentals < h.Lowest.TotalRentals {
			h.Lowest = r
		}
		if r.TotalRentals > h.Highest.TotalRentals {
			h.Highest = r
		}
	}
	return h, true
}

// MonthlyRentals resamples rows into calendar months. Every month between
// the first and last observed month is present; months without rows have
// zero totals.
func MonthlyRentals(t *Table) []domain.MonthlyRentalsRow {
	first, last, ok := t.Bounds()
	if !ok {
		return []domain.MonthlyRentalsRow{}
	}

	start := monthStart(first)
	end := monthStart(last)
	rows := make([]domain.MonthlyRentalsRow, 0)
	index := make(map[time.Time]int)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		index[m] = len(rows)
		rows = append(rows, domain.MonthlyRentalsRow{Month: m.Format(domain.MonthLayout), Year: m.Year()})
	}

	for _, r := range t.records {
		row := &rows[index[monthStart(r.Date)]]
		row.TotalRegistered += r.Registered
		row.TotalCasual += r.Casual
		row.TotalRentals += r.Cnt
	}
	return rows
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// TemperatureEffect sums cnt per exact temp value, ascending. units must
// match the table's unit system and is echoed on every row.
func TemperatureEffect(t *Table, units domain.Units) ([]domain.TemperatureEffectRow, error) {
	if units != t.Units() {
		return nil, fmt.Errorf("temperature effect: requested %s, table is %s: %w", units, t.Units(), ErrUnitsMismatch)
	}

	g := groupBy(t, func(r domain.RentalRecord) float64 { return r.Temp })
	sort.Float64s(g.keys)

	rows := make([]domain.TemperatureEffectRow, 0, len(g.keys))
	for _, k := range g.keys {
		rows = append(rows, domain.TemperatureEffectRow{Temp: k, Cnt: t.sumCnt(g.members[k]), Units: units})
	}
	return rows, nil
}
