package dataprocessing

import (
	"fmt"

	"bikeshare/pkg/contracts/domain"
)

// UnitScale holds the physical maxima used to de-normalize measurements.
type UnitScale struct {
	Temp      float64 `json:"temp" yaml:"temp"`
	Hum       float64 `json:"hum" yaml:"hum"`
	Windspeed float64 `json:"windspeed" yaml:"windspeed"`
}

// DefaultUnitScale maps temp to degrees Celsius, hum to percent and
// windspeed to the dataset's physical maximum.
var DefaultUnitScale = UnitScale{Temp: 41, Hum: 100, Windspeed: 67}

// Apply multiplies the three measurement columns. It is a plain
// multiplication: applying it twice scales twice.
func (s UnitScale) Apply(r domain.RentalRecord) domain.RentalRecord {
	r.Temp *= s.Temp
	r.Hum *= s.Hum
	r.Windspeed *= s.Windspeed
	return r
}

// ConvertUnits returns a physical-unit copy of a normalized table.
// Converting a table that is already physical fails with ErrAlreadyConverted.
func ConvertUnits(t *Table, scale UnitScale) (*Table, error) {
	if t.Units() == domain.UnitsPhysical {
		return nil, fmt.Errorf("convert units: %w", ErrAlreadyConverted)
	}
	rows := make([]domain.RentalRecord, t.Len())
	for i, r := range t.records {
		rows[i] = scale.Apply(r)
	}
	return newSortedTable(rows, domain.UnitsPhysical), nil
}
