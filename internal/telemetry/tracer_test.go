package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var out, logs bytes.Buffer
	shutdown, err := InitTracer("nextware-test", &out, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	if !strings.Contains(out.String(), `"Name":"probe"`) {
		t.Errorf("expected exported span in output, got: %s", out.String())
	}
	if !strings.Contains(logs.String(), "nextware-test") {
		t.Errorf("expected service name in log output, got: %s", logs.String())
	}
}
