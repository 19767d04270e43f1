package purge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"opserver/internal/kvshard"
)

type usageStore struct {
	fakeStore
	usage []NodeUsage
}

func (u *usageStore) FetchDiskUsage(ctx context.Context) ([]NodeUsage, error) { return u.usage, nil }

func TestWatchdogTickSkipsWhenUnderThreshold(t *testing.T) {
	client := kvshard.New(kvshard.RoleUVE, "127.0.0.1:1", "")
	store := &usageStore{usage: []NodeUsage{{Node: "n1", UsedPercent: 50}}}
	c := NewCoordinator(client, store, nil, nil)
	w := NewWatchdog(c, store, 70, 60, nil)

	// Status() will error against the unreachable client; tick must return
	// without panicking and without attempting a purge.
	w.tick(context.Background())
	assert.Equal(t, 70, w.threshold)
}

func TestNewWatchdogDefaults(t *testing.T) {
	w := NewWatchdog(nil, nil, 70, 60, nil)
	assert.Equal(t, defaultWarmup, w.warmup)
	assert.Equal(t, defaultInterval, w.interval)
	_ = time.Second
}
