package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jules-labs/eventcore/telemetry"
)

func TestTracerAndMeterAreUsable(t *testing.T) {
	tracer := telemetry.Tracer("eventcore/test")
	require.NotNil(t, tracer)
	_, span := tracer.Start(context.Background(), "op")
	span.End()

	meter := telemetry.Meter("eventcore/test")
	require.NotNil(t, meter)
}

func TestBootstrapReturnsWorkingShutdown(t *testing.T) {
	shutdown, err := telemetry.Bootstrap(context.Background(), "eventcore-test", "localhost:4318")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
}
