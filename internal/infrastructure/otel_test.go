package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// Default config keeps tracing off but metrics on.
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *OTelConfig
		wantErr bool
		check   func(*testing.T, *OTelProviders)
	}{
		{
			name: "everything disabled",
			cfg:  &OTelConfig{ServiceName: ServiceName, Environment: "test"},
			check: func(t *testing.T, p *OTelProviders) {
				assert.Nil(t, p.TracerProvider)
				assert.Nil(t, p.MeterProvider)
				assert.Nil(t, p.PrometheusHTTP)
				assert.NotNil(t, p.Meter, "no-op meter stays usable")
			},
		},
		{
			name: "exporters set to none",
			cfg:  &OTelConfig{EnableTracing: true, EnableMetrics: true, TraceExporter: "none", MetricExporter: "none"},
			check: func(t *testing.T, p *OTelProviders) {
				assert.Nil(t, p.TracerProvider)
				assert.Nil(t, p.MeterProvider)
			},
		},
		{
			name: "stdout tracing",
			cfg:  &OTelConfig{EnableTracing: true, TraceExporter: "stdout", SampleRatio: 1},
			check: func(t *testing.T, p *OTelProviders) {
				assert.NotNil(t, p.TracerProvider)
			},
		},
		{
			name:    "unknown trace exporter",
			cfg:     &OTelConfig{EnableTracing: true, TraceExporter: "jaeger"},
			wantErr: true,
		},
		{
			name:    "unknown metric exporter",
			cfg:     &OTelConfig{EnableMetrics: true, MetricExporter: "statsd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())
			tt.check(t, providers)
		})
	}
}

func TestNewOTelConfig(t *testing.T) {
	cfg := DefaultOTelConfig()

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.NotEmpty(t, cfg.ServiceVersion)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	RecordAggregationMetrics(context.Background(), metrics, "yearly_trend", 731, 2*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "aggregations_total")
	assert.Contains(t, body, `aggregation="yearly_trend"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestTraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(tracetest.NewInMemoryExporter()))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestSpanHelpers(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "aggregate")
	SetSpanAttributes(ctx, map[string]interface{}{
		"mode":  "sum",
		"rows":  31,
		"total": int64(150),
		"ratio": 0.5,
		"empty": false,
		"other": time.Second,
	})
	AddSpanEvent(ctx, "filtered", map[string]interface{}{"rows": 2})
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Len(t, got.Attributes, 6)
	assert.Equal(t, "Error", got.Status.Code.String())
	eventNames := make([]string, 0, len(got.Events))
	for _, e := range got.Events {
		eventNames = append(eventNames, e.Name)
	}
	assert.Contains(t, eventNames, "filtered")
	assert.Contains(t, eventNames, "exception")
}

func TestRecordAggregationMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	RecordAggregationMetrics(ctx, metrics, "holiday_effect", 10, time.Millisecond, nil)
	RecordAggregationMetrics(ctx, metrics, "holiday_effect", 5, time.Millisecond, errors.New("bad mode"))
	RecordOutput(ctx, metrics.ChartsRendered, "yearly", "png")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["aggregations_total"])
	assert.Equal(t, int64(15), sums["aggregation_rows_scanned_total"])
	assert.Equal(t, int64(1), sums["aggregation_errors_total"])
	assert.Equal(t, int64(1), sums["charts_rendered_total"])
}

func TestRecordAggregationMetrics_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAggregationMetrics(context.Background(), nil, "weather_effect", 1, time.Millisecond, nil)
		RecordOutput(context.Background(), nil, "weather", "csv")
	})
}
