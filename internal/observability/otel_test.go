package observability

import (
	"testing"
)

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad ,empty=,trace=on")
	h := otelHeaders()
	if len(h) != 2 || h["x-api-key"] != "abc" || h["trace"] != "on" {
		t.Fatalf("headers=%v", h)
	}
}

func TestOtelSampleRatioClamps(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := otelSampleRatio(); got != 1 {
		t.Fatalf("ratio=%v want 1", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := otelSampleRatio(); got != 0 {
		t.Fatalf("ratio=%v want 0", got)
	}
}
