package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})
	logger = ComponentLogger(logger, "sql_store")

	logger.Info().Msg("hidden")
	logger.Warn().Int("attempt", 2).Msg("Connection attempt failed, retrying")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning, got:\n%s", buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["component"] != "sql_store" || entry["level"] != "warn" || entry["attempt"] != float64(2) {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNewLoggerToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "debug", Format: "console"})
	logger.Debug().Msg("Table 'records' ready")

	if !strings.Contains(buf.String(), "Table 'records' ready") {
		t.Errorf("expected console output, got %q", buf.String())
	}
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("console format should not emit JSON: %q", buf.String())
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedidos.log")
	logger, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info().Msg("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log line missing from file: %q", data)
	}

	if _, err := NewLogger(LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")}); err == nil {
		t.Error("expected error for unwritable output")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLoggingConfigValidate(t *testing.T) {
	if err := DefaultLoggingConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if err := (LoggingConfig{Level: "loud", Format: "json"}).Validate(); err == nil {
		t.Error("expected invalid level error")
	}
	if err := (LoggingConfig{Level: "info", Format: "xml"}).Validate(); err == nil {
		t.Error("expected invalid format error")
	}
}

func TestNewTelemetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Output = filepath.Join(t.TempDir(), "pedidos.log")
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "none"

	tel, err := NewTelemetry(cfg, "test")
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}
	if !tel.Tracer.Enabled() {
		t.Error("expected tracing to be enabled")
	}
	tel.Logger.Info().Msg("to file")
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("failed to shut down: %v", err)
	}

	data, err := os.ReadFile(cfg.Logging.Output)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("logger did not write to the configured file: %q", data)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddress = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for metrics without listen address")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "nope"
	if _, err := NewTelemetry(cfg, "test"); err == nil {
		t.Error("expected invalid logging config to fail")
	}

	cfg = DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for otlp exporter without endpoint")
	}
}
