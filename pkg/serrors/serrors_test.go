package serrors_test

import (
	"errors"
	"fmt"
	"testing"

	"linkmint/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestErrorIs_MatchesKind(t *testing.T) {
	err := serrors.With(serrors.ErrAuthExpired, "session invalid after %d attempts", 2)
	require.ErrorIs(t, err, serrors.ErrAuthExpired)
	require.NotErrorIs(t, err, serrors.ErrRateLimited)
	require.Contains(t, err.Error(), "session invalid after 2 attempts")
}

func TestErrorIs_MatchesWrappedCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := serrors.Wrap(serrors.ErrRetriesExhausted, cause, "giving up")

	require.ErrorIs(t, err, serrors.ErrRetriesExhausted)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "giving up: connection reset", err.Error())
}

func TestErrorIs_ThroughFmtWrapping(t *testing.T) {
	inner := serrors.KindOnly(serrors.ErrNoASINFound)
	outer := fmt.Errorf("monetize: %w", inner)

	require.ErrorIs(t, outer, serrors.ErrNoASINFound)
}

func TestKindOnly_ErrorString(t *testing.T) {
	err := serrors.KindOnly(serrors.ErrResolutionExhausted)
	require.Equal(t, "RESOLUTION_EXHAUSTED", err.Error())
	require.Equal(t, serrors.ErrResolutionExhausted, err.Kind())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := serrors.Wrap(serrors.ErrMalformedResponse, cause, "")
	require.Equal(t, cause, errors.Unwrap(err))
}
