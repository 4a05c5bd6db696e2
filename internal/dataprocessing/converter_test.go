package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare/internal/shared/testutil"
	"bikeshare/pkg/contracts/domain"
)

func TestUnitScale_Apply(t *testing.T) {
	tests := []struct {
		name                 string
		temp, hum, windspeed float64
		wantTemp, wantHum    float64
		wantWind             float64
	}{
		{name: "zero", wantTemp: 0, wantHum: 0, wantWind: 0},
		{name: "max", temp: 1, hum: 1, windspeed: 1, wantTemp: 41, wantHum: 100, wantWind: 67},
		{name: "mid", temp: 0.5, hum: 0.25, windspeed: 0.1, wantTemp: 20.5, wantHum: 25, wantWind: 6.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domain.RentalRecord{Temp: tt.temp, Hum: tt.hum, Windspeed: tt.windspeed, Cnt: 42, Registered: 40, Casual: 2}

			out := DefaultUnitScale.Apply(in)

			assert.InDelta(t, tt.wantTemp, out.Temp, 1e-9)
			assert.InDelta(t, tt.wantHum, out.Hum, 1e-9)
			assert.InDelta(t, tt.wantWind, out.Windspeed, 1e-9)
			assert.Equal(t, int64(42), out.Cnt)
			assert.Equal(t, tt.temp, in.Temp, "input must not change")
		})
	}
}

func TestUnitScale_ApplyTwiceDoubleScales(t *testing.T) {
	in := domain.RentalRecord{Temp: 0.5, Hum: 0.5, Windspeed: 0.5}

	once := DefaultUnitScale.Apply(in)
	twice := DefaultUnitScale.Apply(once)

	assert.NotEqual(t, once, twice)
	assert.InDelta(t, 0.5*41*41, twice.Temp, 1e-9)
	assert.InDelta(t, 0.5*100*100, twice.Hum, 1e-9)
	assert.InDelta(t, 0.5*67*67, twice.Windspeed, 1e-9)
}

func TestConvertUnits_GuardsDoubleApplication(t *testing.T) {
	table := NewTable(testutil.TwoYearFixture(t), domain.UnitsNormalized)

	physical, err := ConvertUnits(table, DefaultUnitScale)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitsPhysical, physical.Units())
	assert.Equal(t, domain.UnitsNormalized, table.Units())

	for i, r := range physical.records {
		assert.GreaterOrEqual(t, r.Temp, 0.0)
		assert.LessOrEqual(t, r.Temp, 41.0)
		assert.LessOrEqual(t, r.Hum, 100.0)
		assert.LessOrEqual(t, r.Windspeed, 67.0)
		assert.Equal(t, table.records[i].Cnt, r.Cnt)
	}

	_, err = ConvertUnits(physical, DefaultUnitScale)
	assert.ErrorIs(t, err, ErrAlreadyConverted)
}
