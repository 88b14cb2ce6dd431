package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: "requires an endpoint",
		},
		{
			name: "metrics without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ListenAddress = ""
			},
			wantErr: "listen address",
		},
		{name: "missing service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
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

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.NewComponentLogger("store").WithRecordID("7").WithPath("out.csv").Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"store"`)
	assert.Contains(t, out, `"record_id":"7"`)
	assert.Contains(t, out, `"path":"out.csv"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerFileClosedOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.log")
	cfg := DefaultConfig()
	cfg.Logging = LoggingConfig{Level: "info", Format: "json", Output: path}

	tel, err := NewTelemetry(cfg)
	require.NoError(t, err)
	tel.Logger.NewComponentLogger("store").Info("written")

	require.NoError(t, tel.Shutdown(context.Background()))
	require.NoError(t, tel.Logger.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written"`)
}

func TestLoggerCloseLeavesStdStreams(t *testing.T) {
	for _, out := range []string{"stderr", "stdout"} {
		logger, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: out})
		require.NoError(t, err)
		require.NoError(t, logger.Close())
	}
	_, err := os.Stderr.Stat()
	assert.NoError(t, err)
	assert.NoError(t, Nop().Close())
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := Nop().WithField("k", "v")
	ctx := logger.WithContext(context.Background())
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	m.RecordOperation("list", 0, nil)
	m.RecordError("duplicate_key")
	m.SetRecordCount(3)
	assert.Nil(t, m.Registry())

	stop := m.StartMetricsServer(nil)
	assert.NoError(t, stop(context.Background()))
}

func TestMetricsCounts(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	require.NoError(t, err)

	m.RecordOperation("insert", 0, nil)
	m.RecordOperation("insert", 0, errors.New("x"))
	m.RecordError("")
	m.SetRecordCount(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("insert", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("other")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.records))
}

func TestTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := NewTracerWithWriter(&buf, "roster-test")
	require.NoError(t, err)

	_, span := tracer.StartStoreSpan(context.Background(), "delete", AttrRecordID.String("9"))
	RecordError(span, errors.New("nope"))
	span.End()
	require.NoError(t, tracer.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "store.delete")
	assert.Contains(t, out, "record.id")
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "roster", "dev")
	require.NoError(t, err)

	_, span := tracer.StartStoreSpan(context.Background(), "list")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestUnsupportedExporter(t *testing.T) {
	_, err := NewTracer(TracingConfig{Enabled: true, Exporter: "zipkin"}, "roster", "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestEventPublisherFilters(t *testing.T) {
	ep := NewEventPublisher()

	var got []Event
	ep.Subscribe(func(e Event) { got = append(got, e) }, FilterByRecordID("2"))
	ep.AddFilter(FilterByLevel(EventLevelInfo))

	ep.PublishInserted("test", "1")
	ep.PublishUpdated("test", "2")
	ep.PublishDeleted("test", "2")

	require.Len(t, got, 2)
	assert.Equal(t, EventTypeRecordUpdated, got[0].Type)
	assert.Equal(t, EventTypeRecordDeleted, got[1].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestEventLevelFilter(t *testing.T) {
	ep := NewEventPublisher()
	ep.AddFilter(FilterByLevel(EventLevelError))

	var count int
	ep.Subscribe(func(Event) { count++ }, nil)

	ep.PublishImported("test", "in.csv", 3)
	ep.PublishError("test", "import", errors.New("bad"))

	assert.Equal(t, 1, count)
}

func TestNilPublisher(t *testing.T) {
	var ep *EventPublisher
	assert.NotPanics(t, func() { ep.PublishInserted("test", "1") })
}

func TestInstrumentedOperationLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	tel, err := NewTelemetryWithLogger(cfg, NewLoggerWithWriter(LoggingConfig{Level: "debug", Format: "json"}, &buf))
	require.NoError(t, err)

	op := tel.StartOperation(context.Background(), "import_csv")
	assert.Same(t, op.Logger, FromContext(op.Ctx))
	op.End(errors.New("bad row"), "malformed_row")

	assert.True(t, strings.Contains(buf.String(), `"kind":"malformed_row"`))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.Metrics.failures.WithLabelValues("malformed_row")))
}
