package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet_BeforeSetupIsNoop(t *testing.T) {
	saved := defaultLogger
	defaultLogger = nil
	t.Cleanup(func() { defaultLogger = saved })

	ctx := context.Background()
	require.NotNil(t, Get(ctx))
	require.NotPanics(t, func() {
		Debug(ctx, "no setup yet")
		Info(ctx, "still fine")
	})
}
