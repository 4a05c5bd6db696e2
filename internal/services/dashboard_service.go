package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bikeshare/internal/charts"
	"bikeshare/internal/dataprocessing"
	apperrors "bikeshare/internal/errors"
	"bikeshare/internal/exporter"
	"bikeshare/internal/infrastructure"
	"bikeshare/pkg/contracts/domain"
)

// TracerName identifies spans emitted by the dashboard service.
const TracerName = "bikeshare.dashboard"

// DashboardQuery selects the rows and options of one dashboard request.
// Nil bounds default to the dataset extent; zero-valued options take the
// service defaults. Year 0 keeps every year of the monthly rollup.
type DashboardQuery struct {
	Start  *time.Time
	End    *time.Time
	Mode   domain.AggregationMode
	Units  domain.Units
	Year   int
	Option domain.ConditionOption
}

// DashboardDefaults fill query options left unset.
type DashboardDefaults struct {
	Mode   domain.AggregationMode
	Units  domain.Units
	Option domain.ConditionOption
}

// DefaultDashboardDefaults mirrors the dashboard's initial widget state.
func DefaultDashboardDefaults() DashboardDefaults {
	return DashboardDefaults{
		Mode:   domain.AggregateSum,
		Units:  domain.UnitsPhysical,
		Option: domain.ConditionWeather,
	}
}

// YearlyTrend is the yearly view with its lowest and highest years.
type YearlyTrend struct {
	Rows       []domain.YearlyTrendRow  `json:"rows"`
	Highlights *domain.YearlyHighlights `json:"highlights,omitempty"`
}

// DashboardService answers dashboard queries against one Session.
type DashboardService struct {
	session  *Session
	defaults DashboardDefaults
	exporter *exporter.Exporter
	renderer *charts.Renderer
	tracer   trace.Tracer
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewDashboardService creates the service. metrics may be nil.
func NewDashboardService(session *Session, defaults DashboardDefaults, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	base := DefaultDashboardDefaults()
	if defaults.Mode == "" {
		defaults.Mode = base.Mode
	}
	if defaults.Units == "" {
		defaults.Units = base.Units
	}
	if defaults.Option == "" {
		defaults.Option = base.Option
	}

	logger = logger.With(slog.String("component", "dashboard_service"))
	logger.Info("dashboard service initialized",
		slog.Any("session", session),
		slog.String("default_mode", string(defaults.Mode)),
		slog.String("default_units", string(defaults.Units)))

	return &DashboardService{
		session:  session,
		defaults: defaults,
		exporter: exporter.New(logger),
		renderer: charts.NewRenderer(),
		tracer:   otel.Tracer(TracerName),
		metrics:  metrics,
		logger:   logger,
	}
}

// Session returns the session the service reads from.
func (s *DashboardService) Session() *Session {
	return s.session
}

// DateBounds returns the extent of the loaded data.
func (s *DashboardService) DateBounds(ctx context.Context) domain.DateBounds {
	return s.session.Bounds()
}

// HolidayEffect aggregates cnt by holiday status.
func (s *DashboardService) HolidayEffect(ctx context.Context, q DashboardQuery) ([]domain.HolidayEffectRow, error) {
	q = s.withDefaults(q)
	var rows []domain.HolidayEffectRow
	err := s.observe(ctx, "holiday_effect", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, s.baseUnits())
		if err != nil {
			return 0, err
		}
		rows, err = dataprocessing.HolidayEffect(table, q.Mode)
		return table.Len(), err
	})
	return rows, err
}

// WeatherEffect totals cnt per weather category.
func (s *DashboardService) WeatherEffect(ctx context.Context, q DashboardQuery) ([]domain.WeatherEffectRow, error) {
	var rows []domain.WeatherEffectRow
	err := s.observe(ctx, "weather_effect", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, s.baseUnits())
		if err != nil {
			return 0, err
		}
		rows = dataprocessing.WeatherEffect(table)
		return table.Len(), nil
	})
	return rows, err
}

// YearlyTrend totals rentals per year and picks the extremes.
func (s *DashboardService) YearlyTrend(ctx context.Context, q DashboardQuery) (YearlyTrend, error) {
	var result YearlyTrend
	err := s.observe(ctx, "yearly_trend", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, s.baseUnits())
		if err != nil {
			return 0, err
		}
		result.Rows = dataprocessing.YearlyTrend(table)
		if h, ok := dataprocessing.YearlyHighlights(result.Rows); ok {
			result.Highlights = &h
		}
		return table.Len(), nil
	})
	return result, err
}

// MonthlyRentals rolls rentals up per calendar month, optionally keeping
// only q.Year.
func (s *DashboardService) MonthlyRentals(ctx context.Context, q DashboardQuery) ([]domain.MonthlyRentalsRow, error) {
	var rows []domain.MonthlyRentalsRow
	err := s.observe(ctx, "monthly_rentals", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, s.baseUnits())
		if err != nil {
			return 0, err
		}
		rows = dataprocessing.MonthlyRentals(table)
		if q.Year != 0 {
			rows = dataprocessing.FilterMonthlyByYear(rows, q.Year)
		}
		return table.Len(), nil
	})
	return rows, err
}

// TemperatureEffect totals cnt per temperature in the requested units.
func (s *DashboardService) TemperatureEffect(ctx context.Context, q DashboardQuery) ([]domain.TemperatureEffectRow, error) {
	q = s.withDefaults(q)
	var rows []domain.TemperatureEffectRow
	err := s.observe(ctx, "temperature_effect", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, q.Units)
		if err != nil {
			return 0, err
		}
		rows, err = dataprocessing.TemperatureEffect(table, q.Units)
		return table.Len(), err
	})
	return rows, err
}

// Condition resolves a condition selector option in the requested units.
func (s *DashboardService) Condition(ctx context.Context, q DashboardQuery) (domain.ConditionView, error) {
	q = s.withDefaults(q)
	var view domain.ConditionView
	err := s.observe(ctx, "condition", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, q.Units)
		if err != nil {
			return 0, err
		}
		view, err = dataprocessing.ConditionView(table, q.Option)
		return table.Len(), err
	})
	return view, err
}

// Integrity lists rows in range whose rider totals disagree with cnt.
func (s *DashboardService) Integrity(ctx context.Context, q DashboardQuery) ([]domain.RiderTotalsViolation, error) {
	var rows []domain.RiderTotalsViolation
	err := s.observe(ctx, "integrity", q, func(ctx context.Context) (int, error) {
		table, _, err := s.view(q, s.baseUnits())
		if err != nil {
			return 0, err
		}
		rows = dataprocessing.CheckRiderTotals(table)
		if len(rows) > 0 {
			s.logger.WarnContext(ctx, "rider totals inconsistent",
				slog.Int("violations", len(rows)),
				slog.String("first_date", rows[0].Date))
		}
		return table.Len(), nil
	})
	return rows, err
}

// Snapshot computes every dashboard view for one range. The views read
// immutable tables, so they run concurrently.
func (s *DashboardService) Snapshot(ctx context.Context, q DashboardQuery) (domain.DashboardSnapshot, error) {
	q = s.withDefaults(q)

	ctx, span := s.tracer.Start(ctx, "dashboard.snapshot", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	table, r, err := s.view(q, s.baseUnits())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.DashboardSnapshot{}, err
	}
	span.SetAttributes(attribute.String("dashboard.range", r.String()))

	snap := domain.DashboardSnapshot{Range: r, Rows: table.Len()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Holiday, err = s.HolidayEffect(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Weather, err = s.WeatherEffect(gctx, q)
		return err
	})
	g.Go(func() error {
		yearly, err := s.YearlyTrend(gctx, q)
		snap.Yearly, snap.Highlights = yearly.Rows, yearly.Highlights
		return err
	})
	g.Go(func() error {
		var err error
		snap.Monthly, err = s.MonthlyRentals(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Temperature, err = s.TemperatureEffect(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Condition, err = s.Condition(gctx, q)
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.DashboardSnapshot{}, err
	}

	return snap, nil
}

// SummaryTable computes one view and flattens it for export.
func (s *DashboardService) SummaryTable(ctx context.Context, name string, q DashboardQuery) (exporter.Table, error) {
	name, err := exporter.ParseTableName(name)
	if err != nil {
		return exporter.Table{}, classify(err)
	}

	switch name {
	case exporter.TableHoliday:
		rows, err := s.HolidayEffect(ctx, q)
		return exporter.HolidayTable(rows), err
	case exporter.TableWeather:
		rows, err := s.WeatherEffect(ctx, q)
		return exporter.WeatherTable(rows), err
	case exporter.TableYearly:
		yearly, err := s.YearlyTrend(ctx, q)
		return exporter.YearlyTable(yearly.Rows), err
	case exporter.TableMonthly:
		rows, err := s.MonthlyRentals(ctx, q)
		return exporter.MonthlyTable(rows), err
	case exporter.TableTemperature:
		rows, err := s.TemperatureEffect(ctx, q)
		return exporter.TemperatureTable(rows), err
	case exporter.TableCondition:
		view, err := s.Condition(ctx, q)
		return exporter.ConditionTable(view), err
	default:
		rows, err := s.Integrity(ctx, q)
		return exporter.IntegrityTable(rows), err
	}
}

// Export renders one summary table in format.
func (s *DashboardService) Export(ctx context.Context, name string, format exporter.Format, q DashboardQuery) ([]byte, error) {
	table, err := s.SummaryTable(ctx, name, q)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(&buf, format, table); err != nil {
		return nil, classify(err)
	}

	if s.metrics != nil {
		infrastructure.RecordOutput(ctx, s.metrics.ExportsTotal, table.Name, string(format))
	}
	s.logger.InfoContext(ctx, "summary table exported",
		slog.String("table", table.Name),
		slog.String("format", string(format)),
		slog.Int("rows", table.Len()),
		slog.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// RenderChart draws one dashboard chart as PNG.
func (s *DashboardService) RenderChart(ctx context.Context, kind charts.Kind, q DashboardQuery) ([]byte, error) {
	q = s.withDefaults(q)
	var buf bytes.Buffer

	var err error
	switch kind {
	case charts.KindHoliday:
		var rows []domain.HolidayEffectRow
		if rows, err = s.HolidayEffect(ctx, q); err == nil {
			err = s.renderer.Holiday(&buf, rows)
		}
	case charts.KindWeather:
		var rows []domain.WeatherEffectRow
		if rows, err = s.WeatherEffect(ctx, q); err == nil {
			err = s.renderer.Weather(&buf, rows)
		}
	case charts.KindYearly:
		var yearly YearlyTrend
		if yearly, err = s.YearlyTrend(ctx, q); err == nil {
			err = s.renderer.Yearly(&buf, yearly.Rows)
		}
	case charts.KindMonthly:
		var rows []domain.MonthlyRentalsRow
		if rows, err = s.MonthlyRentals(ctx, q); err == nil {
			err = s.renderer.Monthly(&buf, rows)
		}
	case charts.KindTemperature:
		var rows []domain.TemperatureEffectRow
		if rows, err = s.TemperatureEffect(ctx, q); err == nil {
			err = s.renderer.Temperature(&buf, rows, q.Units)
		}
	case charts.KindCondition:
		var view domain.ConditionView
		if view, err = s.Condition(ctx, q); err == nil {
			err = s.renderer.Condition(&buf, view)
		}
	default:
		err = classify(charts.ErrUnknownChart)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		infrastructure.RecordOutput(ctx, s.metrics.ChartsRendered, string(kind), "png")
	}
	return buf.Bytes(), nil
}

func (s *DashboardService) baseUnits() domain.Units {
	return s.session.Base().Units()
}

func (s *DashboardService) withDefaults(q DashboardQuery) DashboardQuery {
	if q.Mode == "" {
		q.Mode = s.defaults.Mode
	}
	if q.Units == "" {
		q.Units = s.defaults.Units
	}
	if q.Option == "" {
		q.Option = s.defaults.Option
	}
	return q
}

// resolveRange fills missing bounds from the dataset extent and rejects
// inverted ranges.
func (s *DashboardService) resolveRange(q DashboardQuery) (domain.DateRange, error) {
	full, ok := s.session.Base().FullRange()
	start, end := full.Start, full.End

	switch {
	case q.Start != nil && q.End != nil:
		start, end = *q.Start, *q.End
	case q.Start != nil:
		start = *q.Start
		if !ok {
			end = start
		}
	case q.End != nil:
		end = *q.End
		if !ok {
			start = end
		}
	}

	r := domain.NewDateRange(start, end)
	if err := dataprocessing.ValidateRange(r); err != nil {
		return domain.DateRange{}, err
	}
	return r, nil
}

// view returns the rows of the query range in units.
func (s *DashboardService) view(q DashboardQuery, units domain.Units) (*dataprocessing.Table, domain.DateRange, error) {
	table, err := s.session.Table(units)
	if err != nil {
		return nil, domain.DateRange{}, classify(err)
	}
	r, err := s.resolveRange(q)
	if err != nil {
		return nil, domain.DateRange{}, err
	}
	filtered, err := dataprocessing.FilterByDateRange(table, r)
	if err != nil {
		return nil, domain.DateRange{}, err
	}
	return filtered, r, nil
}

// observe wraps one aggregation in a span, metrics and a debug log line.
func (s *DashboardService) observe(ctx context.Context, name string, q DashboardQuery, fn func(context.Context) (int, error)) error {
	ctx, span := s.tracer.Start(ctx, "dashboard."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("dashboard.aggregation", name),
			attribute.String("dashboard.mode", string(q.Mode)),
			attribute.String("dashboard.units", string(q.Units)),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	rows, err := fn(ctx)
	err = classify(err)
	duration := time.Since(start)

	infrastructure.RecordAggregationMetrics(ctx, s.metrics, name, rows, duration, err)
	span.SetAttributes(attribute.Int("dashboard.rows", rows))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "aggregation failed",
			slog.String("aggregation", name),
			slog.String("error", err.Error()))
		return err
	}

	s.logger.DebugContext(ctx, "aggregation computed",
		slog.String("aggregation", name),
		slog.Int("rows", rows),
		slog.Duration("duration", duration))
	return nil
}

// classify turns caller mistakes into validation errors; other errors pass
// through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, dataprocessing.ErrUnknownAggregation),
		errors.Is(err, dataprocessing.ErrUnitsMismatch),
		errors.Is(err, dataprocessing.ErrUnknownCondition),
		errors.Is(err, exporter.ErrUnknownTable),
		errors.Is(err, exporter.ErrUnsupportedFormat),
		errors.Is(err, exporter.ErrMultipleTables),
		errors.Is(err, charts.ErrUnknownChart):
		return apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), err)
	}
	return err
}
