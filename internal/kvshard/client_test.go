package kvshard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opserver/internal/apierr"
	"opserver/internal/telemetry"
)

func TestClientReportsNetworkUnavailable(t *testing.T) {
	// Port 1 is a privileged port nothing is listening on in the test sandbox.
	c := New(RoleQuery, "127.0.0.1:1", "")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "x")
	require.Error(t, err)
	require.True(t, apierr.As(err, apierr.KindNetworkUnavailable))

	g, gerr := telemetry.ShardUp.GetMetricWithLabelValues(string(RoleQuery), "127.0.0.1:1")
	require.NoError(t, gerr)
	require.NotNil(t, g)
}
