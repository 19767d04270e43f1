package purge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opserver/internal/apierr"
	"opserver/internal/kvshard"
)

type fakeStore struct {
	startTimes map[string]int64
}

func (f *fakeStore) FetchDiskUsage(ctx context.Context) ([]NodeUsage, error) { return nil, nil }
func (f *fakeStore) FetchStartTimes(ctx context.Context) (map[string]int64, error) {
	return f.startTimes, nil
}
func (f *fakeStore) Purge(ctx context.Context, cutoffs map[string]int64) (int64, error) {
	return 0, nil
}
func (f *fakeStore) PersistStartTimes(ctx context.Context, cutoffs map[string]int64) error { return nil }

func TestPurgeFailsClosedWhenLockStoreUnreachable(t *testing.T) {
	client := kvshard.New(kvshard.RoleUVE, "127.0.0.1:1", "")
	store := &fakeStore{startTimes: map[string]int64{
		"flow": time.Now().Add(-1 * time.Hour).UnixMicro(), "stats": time.Now().UnixMicro(),
		"msg": time.Now().UnixMicro(), "other": time.Now().UnixMicro(),
	}}
	ttls := map[string]time.Duration{"flow": 48 * time.Hour, "stats": 48 * time.Hour, "msg": 48 * time.Hour, "other": 48 * time.Hour}
	c := NewCoordinator(client, store, ttls, nil)

	pct := 50
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Purge(ctx, PurgeInput{Percentage: &pct}, time.Now())
	require.Error(t, err)
	assert.True(t, apierr.As(err, apierr.KindNetworkUnavailable))
}

func TestPurgeRejectsMissingInput(t *testing.T) {
	client := kvshard.New(kvshard.RoleUVE, "127.0.0.1:1", "")
	store := &fakeStore{startTimes: map[string]int64{}}
	c := NewCoordinator(client, store, nil, nil)
	_, err := c.Purge(context.Background(), PurgeInput{}, time.Now())
	require.Error(t, err)
	assert.True(t, apierr.As(err, apierr.KindInvalidInput))
}
