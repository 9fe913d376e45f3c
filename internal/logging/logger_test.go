package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fileConfig(t *testing.T) (*Config, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutord.log")
	cfg := NewDefaultConfig()
	cfg.Level = "trace"
	cfg.Output.Stdout = false
	cfg.Output.File.Path = path
	cfg.Sampling.Enabled = false
	return cfg, path
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNew_FileOutput(t *testing.T) {
	cfg, path := fileConfig(t)
	logger, err := New(cfg, nil)
	require.NoError(t, err)

	ctx := WithSessionID(context.Background(), "sess-1")
	ctx = WithUserID(ctx, "learner-7")
	logger.Trace(ctx, "wire detail")
	logger.Info(ctx, "session started", zap.String("topic", "python"))
	require.NoError(t, logger.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	assert.Equal(t, "trace", lines[0]["level"])
	assert.Equal(t, "session started", lines[1]["msg"])
	assert.Equal(t, "python", lines[1]["topic"])
	assert.Equal(t, "sess-1", lines[1]["session.id"])
	assert.Equal(t, "learner-7", lines[1]["user.id"])
	assert.Equal(t, "tutord", lines[1]["service"])
}

func TestNew_Redaction(t *testing.T) {
	cfg, path := fileConfig(t)
	logger, err := New(cfg, nil)
	require.NoError(t, err)

	logger.With(zap.String("api_key", "abc")).Info(context.Background(), "with field")
	logger.Info(context.Background(), "entry fields",
		zap.String("password", "hunter2"),
		zap.String("header", "Bearer abc.def"),
		zap.String("plain", "hello"),
		RedactedString("llm_key", "sk-123"),
	)
	require.NoError(t, logger.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, redacted, lines[0]["api_key"])
	assert.Equal(t, redacted, lines[1]["password"])
	assert.Equal(t, redactedPattern, lines[1]["header"])
	assert.Equal(t, "hello", lines[1]["plain"])
	assert.Equal(t, "[REDACTED:6]", lines[1]["llm_key"])
}

func TestNew_LevelFilter(t *testing.T) {
	cfg, path := fileConfig(t)
	cfg.Level = "warn"
	logger, err := New(cfg, nil)
	require.NoError(t, err)

	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	logger.Info(context.Background(), "dropped")
	logger.Warn(context.Background(), "kept")
	require.NoError(t, logger.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Level = "loud" }, wantErr: true},
		{name: "no output", mutate: func(c *Config) { c.Output.Stdout = false }, wantErr: true},
		{name: "zero tick", mutate: func(c *Config) { c.Sampling.Tick = 0 }, wantErr: true},
		{name: "zero tick without sampling", mutate: func(c *Config) {
			c.Sampling.Enabled = false
			c.Sampling.Tick = 0
		}},
		{name: "bad pattern", mutate: func(c *Config) { c.Redaction.Patterns = []string{"("} }, wantErr: true},
		{name: "empty field value", mutate: func(c *Config) { c.Fields["env"] = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"trace", TraceLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSampling_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    2,
		Thereafter: 1000,
	})
	logger := zap.New(sampled)

	for i := 0; i < 10; i++ {
		logger.Info("repeated")
		logger.Error("failure")
	}

	assert.Equal(t, 2, observed.FilterMessage("repeated").Len())
	assert.Equal(t, 10, observed.FilterMessage("failure").Len())
}

func TestSampling_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	assert.Same(t, core, newSampledCore(core, SamplingConfig{}))
}

func TestContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("trace and ids", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{1},
			SpanID:     trace.SpanID{2},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)
		ctx = WithSessionID(ctx, "s1")
		ctx = WithRequestID(ctx, "r1")

		tl := NewTestLogger()
		tl.Info(ctx, "hello")

		tl.AssertLogged(t, zapcore.InfoLevel, "hello")
		tl.AssertField(t, "hello", "trace_id", sc.TraceID().String())
		tl.AssertField(t, "hello", "session.id", "s1")
		tl.AssertField(t, "hello", "request.id", "r1")
	})

	t.Run("invalid ids ignored", func(t *testing.T) {
		ctx := WithSessionID(context.Background(), "bad id\n")
		ctx = WithUserID(ctx, "")
		assert.Empty(t, SessionIDFromContext(ctx))
		assert.Empty(t, UserIDFromContext(ctx))
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()).Underlying())

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()
	tl.Named("http").With(zap.Int("status", 200)).Debug(context.Background(), "served")

	entries := tl.FilterMessage("served").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "http", entries[0].LoggerName)
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])
}
