package query

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opserver/internal/apierr"
	"opserver/internal/kvshard"
)

func TestSubmitOverlayBypassesEngine(t *testing.T) {
	client := kvshard.New(kvshard.RoleQuery, "127.0.0.1:1", "")
	overlay := func(req SubmitRequest) ([]map[string]interface{}, error) {
		return []map[string]interface{}{{"underlay": "vn1"}}, nil
	}
	b := NewBroker(client, overlay, nil)

	qid, progress, err := b.Submit(context.Background(), SubmitRequest{Table: OverlayToUnderlayTable}, net.IPv4(10, 0, 0, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, qid)
	assert.Equal(t, 100, progress)
}

func TestSubmitFailsWhenEngineUnreachable(t *testing.T) {
	client := kvshard.New(kvshard.RoleQuery, "127.0.0.1:1", "")
	b := NewBroker(client, nil, nil)
	b.ackWait = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, _, err := b.Submit(ctx, SubmitRequest{Table: "MessageTable"}, net.IPv4(10, 0, 0, 1))
	require.Error(t, err)
	assert.True(t, apierr.As(err, apierr.KindNetworkUnavailable))
}
