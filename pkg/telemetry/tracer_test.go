package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(DefaultTracingConfig(), "test")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	if tr.Enabled() {
		t.Error("default tracing should be disabled")
	}

	_, span := tr.Tracer().Start(context.Background(), "store.add")
	if span.IsRecording() {
		t.Error("disabled tracer should not record spans")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled tracer: %v", err)
	}
}

func TestTracerStdoutExport(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &buf

	tr, err := NewTracer(cfg, "test")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}

	_, span := tr.Tracer().Start(context.Background(), "sql.connect")
	if !span.IsRecording() {
		t.Error("enabled tracer should record spans")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("failed to shut down: %v", err)
	}
	if !strings.Contains(buf.String(), `"Name":"sql.connect"`) {
		t.Errorf("span missing from exporter output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), ServiceName) {
		t.Errorf("service name missing from exporter output:\n%s", buf.String())
	}
}

func TestTracerExporters(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		endpoint string
		wantErr  bool
	}{
		{name: "none", exporter: "none"},
		{name: "otlp", exporter: "otlp", endpoint: "127.0.0.1:4317"},
		{name: "unknown", exporter: "jaeger", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTracingConfig()
			cfg.Enabled = true
			cfg.Exporter = tt.exporter
			cfg.Endpoint = tt.endpoint
			cfg.Insecure = true

			tr, err := NewTracer(cfg, "test")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to create tracer: %v", err)
			}
			if !tr.Enabled() {
				t.Error("expected tracing to be enabled")
			}
			_ = tr.Shutdown(context.Background())
		})
	}
}

func TestTracingConfigValidate(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Exporter = "jaeger"
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled tracing should not be validated: %v", err)
	}

	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown exporter")
	}

	cfg = DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SamplingRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sampling rate above 1")
	}
}
