package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"bikeshare/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	session   *Session
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. session may be nil while the
// dataset is still loading.
func NewHealthService(version string, session *Session, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = contracts.Version
	}

	logger = logger.With(slog.String("component", "health_service"))
	logger.Info("health service initialized", slog.String("version", version))

	return &HealthService{
		version:   version,
		session:   session,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck reports ready once the base table is loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"data": hs.checkDataHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": mem.HeapAlloc,
			"gc_count":   mem.NumGC,
			"cpu_count":  runtime.NumCPU(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	result := map[string]interface{}{
		"version":             hs.version,
		"api_version":         info.APIVersion,
		"data_format_version": info.DataFormat,
		"go_version":          runtime.Version(),
		"os":                  runtime.GOOS,
		"arch":                runtime.GOARCH,
		"uptime":              time.Since(hs.startTime).Seconds(),
		"start_time":          hs.startTime.Format(time.RFC3339),
		"current_time":        time.Now().Format(time.RFC3339),
	}

	if info.BuildTime != "unknown" {
		result["build_time"] = info.BuildTime
	}
	if info.GitCommit != "unknown" {
		result["git_commit"] = info.GitCommit
	}

	return result
}

// checkDataHealth checks that the base table is loaded
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.session == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: ErrNoData.Error(),
		}
	}

	bounds := hs.session.Bounds()
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d rows from %s to %s", bounds.Rows, bounds.Min, bounds.Max),
		Uptime:  time.Since(hs.session.LoadedAt()).Round(time.Second).String(),
	}
}
