package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bikeshare/internal/charts"
	apierrors "bikeshare/internal/errors"
	"bikeshare/internal/exporter"
	custommw "bikeshare/internal/middleware"
	"bikeshare/internal/services"
	"bikeshare/pkg/contracts/domain"
)

// dashboardParams are the raw query parameters shared by every view.
// Dates are parsed separately by parseQuery.
type dashboardParams struct {
	Start  string `query:"start"`
	End    string `query:"end"`
	Mode   string `query:"mode" validate:"omitempty,oneof=sum mean"`
	Units  string `query:"units" validate:"omitempty,oneof=normalized physical"`
	Option string `query:"option" validate:"omitempty,oneof=weather temperature hum windspeed"`
	Format string `query:"format" validate:"omitempty,oneof=csv xlsx"`
}

// DashboardHandler serves the dashboard views with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *custommw.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    custommw.NewQueryValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/range", h.GetRange)
	r.Get("/options", h.GetOptions)
	r.Get("/snapshot", h.GetSnapshot)

	r.Get("/holiday", h.GetHolidayEffect)
	r.Get("/weather", h.GetWeatherEffect)
	r.Get("/yearly", h.GetYearlyTrend)
	r.Get("/monthly", h.GetMonthlyRentals)
	r.Get("/temperature", h.GetTemperatureEffect)
	r.Get("/condition", h.GetCondition)
	r.Get("/integrity", h.GetIntegrity)

	r.Get("/export/{table}", h.Export)
	r.Get("/charts/{kind}", h.RenderChart)

	return r
}

// GetRange handles GET /api/dashboard/range
func (h *DashboardHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.DateBounds(r.Context()),
	})
}

// GetOptions handles GET /api/dashboard/options and lists the values each
// dashboard widget accepts.
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"modes":      []domain.AggregationMode{domain.AggregateSum, domain.AggregateMean},
			"units":      []domain.Units{domain.UnitsNormalized, domain.UnitsPhysical},
			"conditions": domain.ConditionOptions(),
			"tables":     exporter.TableNames(),
			"charts":     charts.Kinds(),
			"formats":    []exporter.Format{exporter.FormatCSV, exporter.FormatXLSX},
			"bounds":     h.service.DateBounds(r.Context()),
		},
	})
}

// GetSnapshot handles GET /api/dashboard/snapshot
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Snapshot(r.Context(), q)
	if err != nil {
		h.fail(w, r, "snapshot", err)
		return
	}
	h.respond(w, r, snap, snap.Rows)
}

// GetHolidayEffect handles GET /api/dashboard/holiday
func (h *DashboardHandler) GetHolidayEffect(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.service.HolidayEffect(r.Context(), q)
	if err != nil {
		h.fail(w, r, "holiday_effect", err)
		return
	}
	h.respond(w, r, rows, len(rows))
}

// GetWeatherEffect handles GET /api/dashboard/weather
func (h *DashboardHandler) GetWeatherEffect(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.service.WeatherEffect(r.Context(), q)
	if err != nil {
		h.fail(w, r, "weather_effect", err)
		return
	}
	h.respond(w, r, rows, len(rows))
}

// GetYearlyTrend handles GET /api/dashboard/yearly
func (h *DashboardHandler) GetYearlyTrend(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	yearly, err := h.service.YearlyTrend(r.Context(), q)
	if err != nil {
		h.fail(w, r, "yearly_trend", err)
		return
	}
	h.respond(w, r, yearly, len(yearly.Rows))
}

// GetMonthlyRentals handles GET /api/dashboard/monthly
func (h *DashboardHandler) GetMonthlyRentals(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.service.MonthlyRentals(r.Context(), q)
	if err != nil {
		h.fail(w, r, "monthly_rentals", err)
		return
	}
	h.respond(w, r, rows, len(rows))
}

// GetTemperatureEffect handles GET /api/dashboard/temperature
func (h *DashboardHandler) GetTemperatureEffect(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.service.TemperatureEffect(r.Context(), q)
	if err != nil {
		h.fail(w, r, "temperature_effect", err)
		return
	}
	h.respond(w, r, rows, len(rows))
}

// GetCondition handles GET /api/dashboard/condition
func (h *DashboardHandler) GetCondition(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	view, err := h.service.Condition(r.Context(), q)
	if err != nil {
		h.fail(w, r, "condition", err)
		return
	}
	h.respond(w, r, view, len(view.Weather)+len(view.Points))
}

// GetIntegrity handles GET /api/dashboard/integrity
func (h *DashboardHandler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Integrity(r.Context(), q)
	if err != nil {
		h.fail(w, r, "integrity", err)
		return
	}
	h.respond(w, r, rows, len(rows))
}

// Export handles GET /api/dashboard/export/{table}?format=csv|xlsx
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	table := chi.URLParam(r, "table")
	format := exporter.FormatCSV
	if f := r.URL.Query().Get("format"); f != "" {
		format = exporter.Format(strings.ToLower(f))
	}

	data, err := h.service.Export(r.Context(), table, format, q)
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(table)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RenderChart handles GET /api/dashboard/charts/{kind}
func (h *DashboardHandler) RenderChart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	kind, err := charts.ParseKind(strings.TrimSuffix(chi.URLParam(r, "kind"), ".png"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind", err.Error()))
		return
	}

	png, err := h.service.RenderChart(r.Context(), kind, q)
	if err != nil {
		h.fail(w, r, "chart", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// parseQuery validates the query string and converts it into a
// DashboardQuery. On failure the problem response is already written.
func (h *DashboardHandler) parseQuery(w http.ResponseWriter, r *http.Request) (services.DashboardQuery, bool) {
	values := r.URL.Query()
	params := dashboardParams{
		Start:  strings.TrimSpace(values.Get("start")),
		End:    strings.TrimSpace(values.Get("end")),
		Mode:   strings.ToLower(values.Get("mode")),
		Units:  strings.ToLower(values.Get("units")),
		Option: strings.ToLower(values.Get("option")),
		Format: strings.ToLower(values.Get("format")),
	}
	if !h.validator.Validate(w, r, params) {
		return services.DashboardQuery{}, false
	}

	year, ok := h.validator.ValidateInt(w, r, "year", 1900, 2100, 0)
	if !ok {
		return services.DashboardQuery{}, false
	}

	q := services.DashboardQuery{
		Mode:  domain.AggregationMode(params.Mode),
		Units: domain.Units(params.Units),
		Year:  year,
	}
	if q.Start, ok = h.parseDate(w, r, "start", params.Start); !ok {
		return services.DashboardQuery{}, false
	}
	if q.End, ok = h.parseDate(w, r, "end", params.End); !ok {
		return services.DashboardQuery{}, false
	}
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRange(params.Start, params.End))
		return services.DashboardQuery{}, false
	}
	if params.Option != "" {
		q.Option, _ = domain.ParseConditionOption(params.Option)
	}
	return q, true
}

// parseDate reads an optional YYYY-MM-DD parameter. An empty value
// leaves that end of the range open.
func (h *DashboardHandler) parseDate(w http.ResponseWriter, r *http.Request, field, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	d, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidDate(field, value))
		return nil, false
	}
	return &d, true
}

func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, view string, err error) {
	h.logger.WarnContext(r.Context(), "dashboard request failed",
		slog.String("view", view),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	h.errorHandler.HandleError(w, r, err)
}
