package dataprocessing

import (
	"sort"
	"time"

	"bikeshare/pkg/contracts/domain"
)

// Table is an immutable, date-sorted collection of rental records.
// Methods never expose the backing slice.
type Table struct {
	records []domain.RentalRecord
	units   domain.Units
}

// NewTable copies records, truncates each date to its calendar day and
// sorts by date. Rows sharing a date keep their input order.
func NewTable(records []domain.RentalRecord, units domain.Units) *Table {
	if units == "" {
		units = domain.UnitsNormalized
	}
	rows := make([]domain.RentalRecord, len(records))
	copy(rows, records)
	for i := range rows {
		rows[i].Date = domain.TruncateDay(rows[i].Date)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return &Table{records: rows, units: units}
}

// newSortedTable wraps rows already known to be sorted and truncated.
func newSortedTable(rows []domain.RentalRecord, units domain.Units) *Table {
	return &Table{records: rows, units: units}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Units reports the unit system of temp, hum and windspeed.
func (t *Table) Units() domain.Units {
	return t.units
}

// Bounds returns the first and last dates. ok is false for an empty table.
func (t *Table) Bounds() (minDate, maxDate time.Time, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.records[0].Date, t.records[len(t.records)-1].Date, true
}

// FullRange returns the closed range covering every row.
func (t *Table) FullRange() (domain.DateRange, bool) {
	lo, hi, ok := t.Bounds()
	if !ok {
		return domain.DateRange{}, false
	}
	return domain.DateRange{Start: lo, End: hi}, true
}

// DateBounds summarizes the extent of the table.
func (t *Table) DateBounds() domain.DateBounds {
	lo, hi, ok := t.Bounds()
	if !ok {
		return domain.DateBounds{}
	}
	return domain.DateBounds{
		Min:   lo.Format(domain.DateLayout),
		Max:   hi.Format(domain.DateLayout),
		Rows:  t.Len(),
		Years: t.years(),
	}
}

// TotalCnt sums cnt over every row.
func (t *Table) TotalCnt() int64 {
	var total int64
	for _, r := range t.records {
		total += r.Cnt
	}
	return total
}

// years returns the distinct year values in ascending order.
func (t *Table) years() []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, r := range t.records {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}
