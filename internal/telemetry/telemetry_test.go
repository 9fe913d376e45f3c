package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/logging"
)

// logRecorder is an in-memory log exporter.
type logRecorder struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (r *logRecorder) Export(_ context.Context, records []sdklog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records = append(r.records, rec.Clone())
	}
	return nil
}

func (r *logRecorder) Shutdown(context.Context) error   { return nil }
func (r *logRecorder) ForceFlush(context.Context) error { return nil }

func (r *logRecorder) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Body().AsString()
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "disabled defaults", mutate: func(*Config) {}},
		{name: "enabled local", mutate: func(c *Config) { c.Enabled = true }},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Enabled = true; c.Endpoint = "" },
			wantErr: "endpoint is required",
		},
		{
			name:    "insecure remote",
			mutate:  func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317" },
			wantErr: "local endpoint",
		},
		{
			name:   "secure remote",
			mutate: func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317"; c.Insecure = false },
		},
		{
			name:    "bad protocol",
			mutate:  func(c *Config) { c.Enabled = true; c.Protocol = "thrift" },
			wantErr: "protocol",
		},
		{
			name:    "bad sampling",
			mutate:  func(c *Config) { c.Enabled = true; c.Sampling.Rate = 1.5 },
			wantErr: "sampling.rate",
		},
		{
			name:    "zero export interval",
			mutate:  func(c *Config) { c.Enabled = true; c.Metrics.ExportInterval = 0 },
			wantErr: "export_interval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	for endpoint, want := range map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"http://localhost:4318": true,
		"[::1]:4317":            true,
		"collector:4317":        false,
		"https://otel.io":       false,
	} {
		cfg := &Config{Endpoint: endpoint}
		assert.Equal(t, want, cfg.isLocalEndpoint(), endpoint)
	}
}

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()
	res := newResource(cfg)

	var found bool
	for _, attr := range res.Attributes() {
		if attr.Key == "service.name" {
			assert.Equal(t, "tutord", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found)
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNew_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false
	cfg.Logs.Enabled = false

	exp := tracetest.NewInMemoryExporter()
	tel, err := New(context.Background(), cfg, zap.NewNop(), WithTraceExporter(exp))
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())

	_, span := otel.Tracer("tutor.test").Start(context.Background(), "classify")
	span.End()

	require.NoError(t, tel.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "classify", spans[0].Name)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Healthy)
}

func TestNew_ExportsLogsFromBridge(t *testing.T) {
	// The logger is built before telemetry, bound to the global provider.
	logCfg := logging.NewDefaultConfig()
	logCfg.Output.Stdout = false
	logCfg.Output.OTEL = true
	lg, err := logging.New(logCfg, global.GetLoggerProvider())
	require.NoError(t, err)

	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false

	rec := &logRecorder{}
	tel, err := New(context.Background(), cfg, zap.NewNop(),
		WithTraceExporter(tracetest.NewInMemoryExporter()),
		WithLogExporter(rec),
	)
	require.NoError(t, err)
	assert.Same(t, tel.loggerProvider, tel.LoggerProvider())

	lg.Info(context.Background(), "session started", zap.String("topic", "python"))

	require.NoError(t, tel.ForceFlush(context.Background()))
	assert.Contains(t, rec.bodies(), "session started")
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_LogsDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false
	cfg.Logs.Enabled = false

	tel, err := New(context.Background(), cfg, zap.NewNop(), WithTraceExporter(tracetest.NewInMemoryExporter()))
	require.NoError(t, err)
	assert.Nil(t, tel.loggerProvider)
	assert.NotNil(t, tel.LoggerProvider())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("test").Start(ctx, "tutor.Start")
	span.SetAttributes(attribute.String("session.id", "s-1"))
	span.End()
	tt.AssertSpanAttribute(t, "tutor.Start", "session.id", "s-1")
	assert.Nil(t, tt.SpanByName("missing"))

	counter, err := tt.Meter("test").Int64Counter("tutor.test.total")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, rm.ScopeMetrics)
	assert.Equal(t, "tutor.test.total", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "tutor_test_total", Help: "test"})

	require.NoError(t, RegisterCollectors(reg, c))
	require.NoError(t, RegisterCollectors(reg, c), "second registration is ignored")

	clash := prometheus.NewGauge(prometheus.GaugeOpts{Name: "tutor_test_total", Help: "other"})
	assert.Error(t, RegisterCollectors(reg, clash))
}
