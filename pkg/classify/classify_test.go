package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_KindOf_WrapsAndUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := TopologyErr(cause)

	require.Equal(t, Topology, KindOf(err))
	require.ErrorIs(t, err, cause)
}

func TestClassify_KindOf_UnwrappedErrorHasNoKind(t *testing.T) {
	t.Parallel()
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestClassify_KindOf_SurvivesFmtWrapping(t *testing.T) {
	t.Parallel()

	err := Channel(errors.New("ray trace failed"))
	wrapped := fmt.Errorf("link-0: %w", err)

	require.Equal(t, ChannelK, KindOf(wrapped))
}

func TestClassify_AllConstructorsSetTheirKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("x")
	cases := []struct {
		kind Kind
		err  error
	}{
		{Topology, TopologyErr(cause)},
		{SceneK, Scene(cause)},
		{ChannelK, Channel(cause)},
		{SINRK, SINR(cause)},
		{TCK, TC(cause)},
		{RuntimeK, Runtime(cause)},
		{TransportK, Transport(cause)},
	}

	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err))
	}
}
