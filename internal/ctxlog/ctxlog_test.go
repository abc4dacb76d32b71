package ctxlog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContextReturnsEmbeddedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected a fallback logger")
	}
}

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, `"msg":"loud"`) {
		t.Fatalf("expected JSON warn record, got %q", out)
	}
}
