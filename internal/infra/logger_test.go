package infra

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerProductionEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production")
	logger.Debug().Msg("hidden")
	workerLogger := ComponentLogger(logger, "worker")
	workerLogger.Info().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, `"component":"worker"`) || !strings.Contains(out, `"env":"production"`) {
		t.Fatalf("expected structured fields, got %s", out)
	}
}

func TestNewLoggerDevelopmentIsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "development")
	logger.Debug().Msg("trace me")
	if !strings.Contains(buf.String(), "trace me") {
		t.Fatalf("expected debug output in development, got %q", buf.String())
	}
}
