package dataprocessing

import (
	"fmt"
	"sort"

	apperrors "bikeshare/internal/errors"
	"bikeshare/pkg/contracts/domain"
)

// ValidateRange rejects ranges whose start lies after their end.
func ValidateRange(r domain.DateRange) error {
	if r.Valid() {
		return nil
	}
	return apperrors.NewRangeError(
		fmt.Sprintf("start %s is after end %s", r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout)),
		ErrInvalidRange,
	).WithContext("start", r.Start.Format(domain.DateLayout)).
		WithContext("end", r.End.Format(domain.DateLayout))
}

// FilterByDateRange keeps rows whose calendar date lies in [Start, End].
// An empty result is valid.
func FilterByDateRange(t *Table, r domain.DateRange) (*Table, error) {
	kept, _, err := Partition(t, r)
	return kept, err
}

// Partition splits t into rows inside and outside the range. Together
// they hold every input row exactly once.
func Partition(t *Table, r domain.DateRange) (included, excluded *Table, err error) {
	r = domain.NewDateRange(r.Start, r.End)
	if err := ValidateRange(r); err != nil {
		return nil, nil, err
	}

	// Rows are sorted by date, so the included block is contiguous.
	lo := sort.Search(t.Len(), func(i int) bool {
		return !t.records[i].Date.Before(r.Start)
	})
	hi := sort.Search(t.Len(), func(i int) bool {
		return t.records[i].Date.After(r.End)
	})
	if hi < lo {
		hi = lo
	}

	in := make([]domain.RentalRecord, hi-lo)
	copy(in, t.records[lo:hi])

	out := make([]domain.RentalRecord, 0, t.Len()-len(in))
	out = append(out, t.records[:lo]...)
	out = append(out, t.records[hi:]...)

	return newSortedTable(in, t.units), newSortedTable(out, t.units), nil
}

// FilterMonthlyByYear keeps monthly rollup rows belonging to year.
func FilterMonthlyByYear(rows []domain.MonthlyRentalsRow, year int) []domain.MonthlyRentalsRow {
	out := make([]domain.MonthlyRentalsRow, 0, 12)
	for _, row := range rows {
		if row.Year == year {
			out = append(out, row)
		}
	}
	return out
}
