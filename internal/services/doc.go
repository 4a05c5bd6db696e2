// Package services implements the business logic of the bike-sharing
// dashboard. It sits between the HTTP handlers or CLI and the
// dataprocessing package.
//
// # Session
//
// A Session owns the base table loaded at startup. The table is never
// modified; every request filters it into a fresh view. When the source
// file holds normalized measurements the session also keeps a physical
// copy, converted once with the configured UnitScale.
//
// # Dashboard Service
//
// DashboardService answers one DashboardQuery per call:
//
//	svc := services.NewDashboardService(session, services.DefaultDashboardDefaults(), metrics, logger)
//	rows, err := svc.HolidayEffect(ctx, services.DashboardQuery{Start: &start, End: &end})
//
// Each aggregation runs inside its own span and is counted in the
// business metrics. Caller mistakes (inverted range, unknown mode, units
// the data cannot be viewed in) come back as *errors.AppError so the
// transport layer can map them to 400 responses.
//
// # Health Service
//
// HealthService reports liveness, readiness and version information.
// Readiness depends on the session being loaded.
package services
