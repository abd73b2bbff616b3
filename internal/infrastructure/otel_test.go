package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestDefaultOTelConfig(t *testing.T) {
	tests := []struct {
		name              string
		environment       string
		wantTracing       bool
		wantTraceExporter string
	}{
		{
			name:              "development enables stdout tracing",
			environment:       "development",
			wantTracing:       true,
			wantTraceExporter: "stdout",
		},
		{
			name:              "production disables tracing",
			environment:       "production",
			wantTracing:       false,
			wantTraceExporter: "none",
		},
		{
			name:              "empty environment defaults to development",
			environment:       "",
			wantTracing:       true,
			wantTraceExporter: "stdout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := os.Getenv("ENVIRONMENT")
			defer os.Setenv("ENVIRONMENT", original)
			os.Setenv("ENVIRONMENT", tt.environment)

			cfg := DefaultOTelConfig()

			assert.Equal(t, ServiceName, cfg.ServiceName)
			assert.Equal(t, tt.wantTracing, cfg.EnableTracing)
			assert.Equal(t, tt.wantTraceExporter, cfg.TraceExporter)
			assert.Equal(t, "prometheus", cfg.MetricExporter)
			assert.True(t, cfg.EnableMetrics)
			assert.Equal(t, 1.0, cfg.SampleRatio)
		})
	}
}

func TestInitializeOTelMetricsOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &OTelConfig{
		ServiceName:    "test-service",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}

	providers, err := InitializeOTel(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestInitializeOTelUnsupportedExporters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name string
		cfg  *OTelConfig
	}{
		{
			name: "unsupported trace exporter",
			cfg: &OTelConfig{
				ServiceName:   "test",
				TraceExporter: "jaeger",
				EnableTracing: true,
			},
		},
		{
			name: "unsupported metric exporter",
			cfg: &OTelConfig{
				ServiceName:    "test",
				MetricExporter: "statsd",
				EnableMetrics:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InitializeOTel(tt.cfg, logger)
			assert.Error(t, err)
		})
	}
}

func TestCreateBusinessMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())
	meter := mp.Meter("test")

	metrics, err := CreateBusinessMetrics(meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.HTTPActiveRequests)
	assert.NotNil(t, metrics.ProcessingRunsTotal)
	assert.NotNil(t, metrics.ProcessingDuration)
	assert.NotNil(t, metrics.ProcessingRowsTotal)
	assert.NotNil(t, metrics.DeductionRowsTotal)
	assert.NotNil(t, metrics.DegradedRowsTotal)
	assert.NotNil(t, metrics.UploadBytesTotal)
	assert.NotNil(t, metrics.SystemErrors)
}

func TestRecordProcessingRun(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	// Successful run records row counts
	RecordProcessingRun(ctx, metrics, "upload", 100, 12, 3, 250*time.Millisecond, nil)

	// Failed run records only run count and duration
	RecordProcessingRun(ctx, metrics, "batch", 0, 0, 0, 50*time.Millisecond, errors.New("bad header"))

	// Nil metrics must not panic
	RecordProcessingRun(ctx, nil, "upload", 1, 0, 0, time.Millisecond, nil)
}

func TestOTelProvidersShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	providers := &OTelProviders{Logger: logger}
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestTraceIDFromContext(t *testing.T) {
	// No span in context yields empty trace ID
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestAddSpanEventNoSpan(t *testing.T) {
	// Must not panic when no span is recording
	AddSpanEvent(context.Background(), "test_event", map[string]interface{}{
		"rows":    42,
		"source":  "upload",
		"elapsed": 1.5,
		"ok":      true,
	})
}

func TestRecordErrorNoSpan(t *testing.T) {
	// Must not panic when no span is recording
	RecordError(context.Background(), errors.New("test error"))
}

func TestGenerateInstanceID(t *testing.T) {
	id := generateInstanceID()
	assert.NotEmpty(t, id)
	assert.Contains(t, id, "-")
}

func TestSystemMetricsCollect(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	metrics, err := NewSystemMetrics(mp.Meter("test"))
	require.NoError(t, err)

	start := time.Now().Add(-time.Minute)
	stats := metrics.Collect(context.Background(), start)

	require.NotNil(t, stats)
	assert.Greater(t, stats.GoRoutines, int64(0))
	assert.Greater(t, stats.MemoryUsage, int64(0))
	assert.GreaterOrEqual(t, stats.CPUCount, 1)
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)
}

func TestSystemStatsFormatStats(t *testing.T) {
	stats := &SystemStats{
		GoRoutines:    8,
		MemoryUsage:   64 * 1024 * 1024,
		CPUCount:      4,
		ProcessUptime: 90 * time.Second,
		Timestamp:     time.Now(),
	}

	formatted := stats.FormatStats()

	runtimeStats, ok := formatted["runtime"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(8), runtimeStats["goroutines"])
	assert.Equal(t, int64(64), runtimeStats["memory_usage_mb"])

	systemStats, ok := formatted["system"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 4, systemStats["cpu_count"])
}

func TestSystemMetricsCollectorLifecycle(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	collector, err := NewSystemMetricsCollector(mp.Meter("test"), 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		collector.Start(ctx)
		close(done)
	}()

	stats := collector.GetCurrentStats(context.Background())
	assert.NotNil(t, stats)

	collector.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
