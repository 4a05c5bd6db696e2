package http

import (
	"context"

	"bikeshare/internal/charts"
	"bikeshare/internal/exporter"
	"bikeshare/internal/services"
	"bikeshare/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handler needs
type DashboardServiceInterface interface {
	DateBounds(ctx context.Context) domain.DateBounds
	HolidayEffect(ctx context.Context, q services.DashboardQuery) ([]domain.HolidayEffectRow, error)
	WeatherEffect(ctx context.Context, q services.DashboardQuery) ([]domain.WeatherEffectRow, error)
	YearlyTrend(ctx context.Context, q services.DashboardQuery) (services.YearlyTrend, error)
	MonthlyRentals(ctx context.Context, q services.DashboardQuery) ([]domain.MonthlyRentalsRow, error)
	TemperatureEffect(ctx context.Context, q services.DashboardQuery) ([]domain.TemperatureEffectRow, error)
	Condition(ctx context.Context, q services.DashboardQuery) (domain.ConditionView, error)
	Integrity(ctx context.Context, q services.DashboardQuery) ([]domain.RiderTotalsViolation, error)
	Snapshot(ctx context.Context, q services.DashboardQuery) (domain.DashboardSnapshot, error)

	Export(ctx context.Context, name string, format exporter.Format, q services.DashboardQuery) ([]byte, error)
	RenderChart(ctx context.Context, kind charts.Kind, q services.DashboardQuery) ([]byte, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
