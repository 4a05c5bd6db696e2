package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare/pkg/contracts/domain"
)

func TestParseTableName(t *testing.T) {
	for _, name := range TableNames() {
		got, err := ParseTableName(name)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}

	got, err := ParseTableName(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, TableMonthly, got)

	_, err = ParseTableName("daily")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestConditionTable(t *testing.T) {
	t.Run("scatter option", func(t *testing.T) {
		table := ConditionTable(domain.ConditionView{
			Option: domain.ConditionWindspeed,
			Points: []domain.ScatterPoint{{X: 6.7, Cnt: 10}},
		})

		assert.Equal(t, TableCondition, table.Name)
		assert.Equal(t, []string{"windspeed", "cnt"}, table.Headers)
		assert.Equal(t, []interface{}{6.7, int64(10)}, table.Rows[0])
	})

	t.Run("weather option", func(t *testing.T) {
		table := ConditionTable(domain.ConditionView{
			Option:  domain.ConditionWeather,
			Weather: []domain.WeatherEffectRow{{Weathersit: domain.WeatherCloudy, Cnt: 5}},
		})

		assert.Equal(t, TableCondition, table.Name)
		assert.Equal(t, []string{"weathersit", "code", "cnt"}, table.Headers)
		assert.Equal(t, 1, table.Len())
	})
}

func TestTableBuilders_HeaderWidthMatchesRows(t *testing.T) {
	tables := []Table{
		HolidayTable([]domain.HolidayEffectRow{{Holiday: 1, Cnt: 50, Mode: domain.AggregateMean, Days: 1}}),
		WeatherTable([]domain.WeatherEffectRow{{Weathersit: domain.WeatherClear, Cnt: 1}}),
		YearlyTable([]domain.YearlyTrendRow{{Year: 2011, TotalRentals: 1}}),
		MonthlyTable([]domain.MonthlyRentalsRow{{Month: "2011-01", Year: 2011}}),
		TemperatureTable([]domain.TemperatureEffectRow{{Temp: 0.2, Cnt: 1, Units: domain.UnitsNormalized}}),
		IntegrityTable([]domain.RiderTotalsViolation{{Index: 3, Date: "2011-01-05"}}),
	}

	for _, table := range tables {
		t.Run(table.Name, func(t *testing.T) {
			require.Len(t, table.Rows, 1)
			assert.Len(t, table.Rows[0], len(table.Headers))
		})
	}
}
