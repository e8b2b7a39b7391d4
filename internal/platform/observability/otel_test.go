package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestParseHeaders(t *testing.T) {
	assert.Nil(t, parseHeaders(""))
	assert.Nil(t, parseHeaders("novalue=, =x, junk"))
	assert.Equal(t,
		map[string]string{"api-key": "k=1", "tenant": "hr"},
		parseHeaders(" api-key = k=1 ,tenant=hr,broken"),
	)
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-2))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}

func TestTracingFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4318 ")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-team=docs")
	t.Setenv("OTEL_SAMPLER_RATIO", "7")

	cfg := TracingFromEnv("casefile", "staging", "1.2.0")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, map[string]string{"x-team": "docs"}, cfg.Headers)
	assert.Equal(t, 1.0, cfg.SampleRatio)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestSpansAreSafeWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "search.bulletin", attribute.Int("groups", 2))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { EndSpan(span, errors.New("timeout")) })
}
