package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Enabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(Config{
		ServiceName:    "bikeshare-test",
		ServiceVersion: "0.0.1",
		Enabled:        true,
		Output:         &buf,
	})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "dashboard.render")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "dashboard.render")
	assert.Contains(t, buf.String(), "bikeshare-test")
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(Config{ServiceName: "bikeshare-test"})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "dashboard.render")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
