package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"bikeshare/internal/charts"
	"bikeshare/internal/dataprocessing"
	apperrors "bikeshare/internal/errors"
	"bikeshare/internal/exporter"
	"bikeshare/internal/shared/testutil"
	"bikeshare/pkg/contracts/domain"
)

func newTestDashboard(t *testing.T, records []domain.RentalRecord) (*DashboardService, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewDashboardService(newTestSession(t, records), DashboardDefaults{}, nil, logger), handler
}

func dayPtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d := testutil.Day(t, s)
	return &d
}

func january(t *testing.T) DashboardQuery {
	return DashboardQuery{Start: dayPtr(t, "2011-01-01"), End: dayPtr(t, "2011-01-31")}
}

func assertAppError(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, want, appErr.Type)
}

func TestDashboardService_WorkedExample(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.JanuaryFixture(t))
	ctx := context.Background()

	holiday, err := svc.HolidayEffect(ctx, january(t))
	require.NoError(t, err)
	assert.Equal(t, []domain.HolidayEffectRow{
		{Holiday: 0, Cnt: 100, Mode: domain.AggregateSum, Days: 1},
		{Holiday: 1, Cnt: 50, Mode: domain.AggregateSum, Days: 1},
	}, holiday)

	yearly, err := svc.YearlyTrend(ctx, DashboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, []domain.YearlyTrendRow{{Year: 2011, TotalRentals: 350}}, yearly.Rows)
	require.NotNil(t, yearly.Highlights)
	assert.Equal(t, 2011, yearly.Highlights.Lowest.Year)
	assert.Equal(t, 2011, yearly.Highlights.Highest.Year)
}

func TestDashboardService_DefaultsApplied(t *testing.T) {
	svc, handler := newTestDashboard(t, testutil.JanuaryFixture(t))

	assert.True(t, handler.ContainsMessage("dashboard service initialized"))
	assert.True(t, handler.ContainsAttr("default_mode", "sum"))
	assert.True(t, handler.ContainsAttr("default_units", "physical"))

	temps, err := svc.TemperatureEffect(context.Background(), DashboardQuery{})
	require.NoError(t, err)
	require.Len(t, temps, 1)
	assert.InDelta(t, 20.5, temps[0].Temp, 1e-9)
	assert.Equal(t, int64(350), temps[0].Cnt)
	assert.Equal(t, domain.UnitsPhysical, temps[0].Units)

	view, err := svc.Condition(context.Background(), DashboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionWeather, view.Option)
	assert.Len(t, view.Weather, 2)
}

func TestDashboardService_HolidayEffect(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	tests := []struct {
		name  string
		query DashboardQuery
		want  map[int]float64
	}{
		{
			name:  "sum over everything",
			query: DashboardQuery{},
			want:  map[int]float64{0: 11722, 1: 8994},
		},
		{
			name:  "mean over everything",
			query: DashboardQuery{Mode: domain.AggregateMean},
			want:  map[int]float64{0: 2344.4, 1: 2998},
		},
		{
			name:  "open start",
			query: DashboardQuery{End: dayPtr(t, "2011-01-31")},
			want:  map[int]float64{0: 985, 1: 1000},
		},
		{
			name:  "open end",
			query: DashboardQuery{Start: dayPtr(t, "2012-06-01")},
			want:  map[int]float64{0: 10092},
		},
		{
			name:  "empty range",
			query: DashboardQuery{Start: dayPtr(t, "2013-01-01"), End: dayPtr(t, "2013-12-31")},
			want:  map[int]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := svc.HolidayEffect(context.Background(), tt.query)
			require.NoError(t, err)

			got := make(map[int]float64, len(rows))
			for _, r := range rows {
				got[r.Holiday] = r.Cnt
			}
			assert.InDeltaMapValues(t, tt.want, got, 1e-9)
		})
	}
}

func TestDashboardService_Errors(t *testing.T) {
	svc, handler := newTestDashboard(t, testutil.JanuaryFixture(t))
	ctx := context.Background()

	t.Run("inverted range", func(t *testing.T) {
		_, err := svc.HolidayEffect(ctx, DashboardQuery{Start: dayPtr(t, "2011-02-01"), End: dayPtr(t, "2011-01-01")})
		assertAppError(t, err, apperrors.ErrTypeRange)
		assert.ErrorIs(t, err, dataprocessing.ErrInvalidRange)
	})

	t.Run("open range inverted against the data", func(t *testing.T) {
		_, err := svc.WeatherEffect(ctx, DashboardQuery{Start: dayPtr(t, "2012-01-01")})
		assertAppError(t, err, apperrors.ErrTypeRange)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := svc.HolidayEffect(ctx, DashboardQuery{Mode: "median"})
		assertAppError(t, err, apperrors.ErrTypeValidation)
		assert.ErrorIs(t, err, dataprocessing.ErrUnknownAggregation)
	})

	t.Run("unknown condition", func(t *testing.T) {
		_, err := svc.Condition(ctx, DashboardQuery{Option: "Pressure"})
		assertAppError(t, err, apperrors.ErrTypeValidation)
	})

	assert.True(t, handler.ContainsMessage("aggregation failed"))
}

func TestDashboardService_UnitsMismatch(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	table := dataprocessing.NewTable(testutil.JanuaryFixture(t), domain.UnitsPhysical)
	session, err := NewSession(table, dataprocessing.DefaultUnitScale, "physical.csv")
	require.NoError(t, err)
	svc := NewDashboardService(session, DashboardDefaults{}, nil, logger)

	_, err = svc.TemperatureEffect(context.Background(), DashboardQuery{Units: domain.UnitsNormalized})
	assertAppError(t, err, apperrors.ErrTypeValidation)
	assert.ErrorIs(t, err, dataprocessing.ErrUnitsMismatch)

	rows, err := svc.TemperatureEffect(context.Background(), DashboardQuery{Units: domain.UnitsPhysical})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.5, rows[0].Temp, 1e-9)
}

func TestDashboardService_TemperatureNormalized(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	rows, err := svc.TemperatureEffect(context.Background(), DashboardQuery{Units: domain.UnitsNormalized})
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.InDelta(t, 0.1, rows[0].Temp, 1e-9)
	// Three rows share temp 0.2.
	assert.InDelta(t, 0.2, rows[1].Temp, 1e-9)
	assert.Equal(t, int64(985+1951+2729), rows[1].Cnt)
}

func TestDashboardService_MonthlyRentals(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))
	ctx := context.Background()

	all, err := svc.MonthlyRentals(ctx, DashboardQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 24)
	assert.Equal(t, "2011-01", all[0].Month)
	assert.Equal(t, int64(1985), all[0].TotalRentals)
	assert.Equal(t, int64(0), all[1].TotalRentals, "gap months are zero-filled")

	only2012, err := svc.MonthlyRentals(ctx, DashboardQuery{Year: 2012})
	require.NoError(t, err)
	require.Len(t, only2012, 12)
	assert.Equal(t, "2012-01", only2012[0].Month)
	assert.Equal(t, int64(1951), only2012[0].TotalRentals)
}

func TestDashboardService_Condition(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	tests := []struct {
		name      string
		units     domain.Units
		wantLabel string
		wantX     float64
	}{
		{name: "default is physical", wantLabel: "Humidity (%)", wantX: 10.0},
		{name: "physical", units: domain.UnitsPhysical, wantLabel: "Humidity (%)", wantX: 10.0},
		{name: "normalized", units: domain.UnitsNormalized, wantLabel: "Humidity (Normalized)", wantX: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.Condition(context.Background(), DashboardQuery{Option: domain.ConditionHum, Units: tt.units})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, view.XLabel)
			require.Len(t, view.Points, 8)
			assert.InDelta(t, tt.wantX, view.Points[0].X, 1e-9)
			assert.Equal(t, int64(985), view.Points[0].Cnt)
		})
	}
}

func TestDashboardService_Condition_PhysicalSourceRejectsNormalized(t *testing.T) {
	table := dataprocessing.NewTable(testutil.JanuaryFixture(t), domain.UnitsPhysical)
	session, err := NewSession(table, dataprocessing.DefaultUnitScale, "physical.csv")
	require.NoError(t, err)
	svc := NewDashboardService(session, DashboardDefaults{}, nil, nil)

	_, err = svc.Condition(context.Background(), DashboardQuery{Option: domain.ConditionTemperature, Units: domain.UnitsNormalized})

	assertAppError(t, err, apperrors.ErrTypeValidation)
	assert.ErrorIs(t, err, dataprocessing.ErrUnitsMismatch)
}

func TestDashboardService_Integrity(t *testing.T) {
	records := testutil.JanuaryFixture(t)
	records[1].Casual += 7
	svc, handler := newTestDashboard(t, records)

	violations, err := svc.Integrity(context.Background(), DashboardQuery{})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "2011-01-02", violations[0].Date)
	assert.True(t, handler.ContainsMessage("rider totals inconsistent"))
}

func TestDashboardService_Snapshot(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	snap, err := svc.Snapshot(context.Background(), DashboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, 8, snap.Rows)
	assert.Equal(t, "2011-01-03", snap.Range.Start.Format(domain.DateLayout))
	assert.Equal(t, "2012-12-31", snap.Range.End.Format(domain.DateLayout))
	assert.Len(t, snap.Holiday, 2)
	assert.Len(t, snap.Weather, 4)
	assert.Equal(t, []domain.YearlyTrendRow{
		{Year: 2011, TotalRentals: 8651},
		{Year: 2012, TotalRentals: 12065},
	}, snap.Yearly)
	require.NotNil(t, snap.Highlights)
	assert.Equal(t, 2011, snap.Highlights.Lowest.Year)
	assert.Equal(t, 2012, snap.Highlights.Highest.Year)
	assert.Len(t, snap.Monthly, 24)
	assert.Len(t, snap.Temperature, 6)
	assert.Equal(t, domain.ConditionWeather, snap.Condition.Option)
}

func TestDashboardService_SnapshotInvalidRange(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	_, err := svc.Snapshot(context.Background(), DashboardQuery{Start: dayPtr(t, "2012-01-01"), End: dayPtr(t, "2011-01-01")})
	assertAppError(t, err, apperrors.ErrTypeRange)
}

func TestDashboardService_CancelledContext(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.JanuaryFixture(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.WeatherEffect(ctx, DashboardQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDashboardService_Export(t *testing.T) {
	svc, handler := newTestDashboard(t, testutil.JanuaryFixture(t))
	ctx := context.Background()

	csvData, err := svc.Export(ctx, "holiday", exporter.FormatCSV, january(t))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "holiday,label,cnt,mode,days")
	assert.Contains(t, string(csvData), "1,Holiday,50,sum,1")
	assert.True(t, handler.ContainsMessage("summary table exported"))

	xlsxData, err := svc.Export(ctx, "yearly", exporter.FormatXLSX, DashboardQuery{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsxData, []byte("PK")), "xlsx is a zip archive")

	_, err = svc.Export(ctx, "forecast", exporter.FormatCSV, DashboardQuery{})
	assertAppError(t, err, apperrors.ErrTypeValidation)
	assert.ErrorIs(t, err, exporter.ErrUnknownTable)
}

func TestDashboardService_SummaryTable(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	for _, name := range exporter.TableNames() {
		t.Run(name, func(t *testing.T) {
			table, err := svc.SummaryTable(context.Background(), name, DashboardQuery{})
			require.NoError(t, err)
			assert.Equal(t, name, table.Name)
			assert.NotEmpty(t, table.Headers)
		})
	}
}

func TestDashboardService_RenderChart(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))

	for _, kind := range charts.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			png, err := svc.RenderChart(context.Background(), kind, DashboardQuery{})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
		})
	}

	_, err := svc.RenderChart(context.Background(), "pie", DashboardQuery{})
	assertAppError(t, err, apperrors.ErrTypeValidation)
}

func TestDashboardService_RenderChart_EmptyRange(t *testing.T) {
	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))
	empty := DashboardQuery{Start: dayPtr(t, "2015-01-01"), End: dayPtr(t, "2015-01-31")}

	for _, kind := range charts.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			var png []byte
			var err error
			require.NotPanics(t, func() {
				png, err = svc.RenderChart(context.Background(), kind, empty)
			})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
		})
	}
}

func TestDashboardService_Spans(t *testing.T) {
	recorder := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
	})

	svc, _ := newTestDashboard(t, testutil.TwoYearFixture(t))
	_, err := svc.Snapshot(context.Background(), DashboardQuery{})
	require.NoError(t, err)

	spans := recorder.GetSpans()
	names := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, s := range spans.Snapshots() {
		names[s.Name()] = s
	}

	root, ok := names["dashboard.snapshot"]
	require.True(t, ok)
	for _, child := range []string{
		"dashboard.holiday_effect",
		"dashboard.weather_effect",
		"dashboard.yearly_trend",
		"dashboard.monthly_rentals",
		"dashboard.temperature_effect",
		"dashboard.condition",
	} {
		span, ok := names[child]
		require.True(t, ok, child)
		assert.Equal(t, root.SpanContext().SpanID(), span.Parent().SpanID(), child)
	}
}
