package uve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opserver/internal/partition"
)

type fakeSource struct {
	ch chan Event
}

func (f *fakeSource) Stream(ctx context.Context, owner partition.Owner, partitionID int) (<-chan Event, error) {
	return f.ch, nil
}

func TestStreamerAppliesEventsFromSource(t *testing.T) {
	cache := NewCache(1)
	src := &fakeSource{ch: make(chan Event, 1)}
	s := NewStreamer(cache, src, nil)
	defer s.Stop()

	s.HandleOwnerChanges([]partition.OwnerChange{
		{Partition: 0, Old: nil, New: partition.Owner{InstanceID: "i1"}},
	})

	src.ch <- Event{Kind: EventAdd, Table: "T", Key: "k", Producer: Producer{Source: "a"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}}

	require.Eventually(t, func() bool {
		_, ok := cache.Get("T", "k", Filters{})
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestStreamerClearsCacheOnOwnerChange(t *testing.T) {
	cache := NewCache(1)
	cache.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: Producer{Source: "a"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})

	src := &fakeSource{ch: make(chan Event)}
	s := NewStreamer(cache, src, nil)
	defer s.Stop()

	s.HandleOwnerChanges([]partition.OwnerChange{
		{Partition: 0, Old: &partition.Owner{InstanceID: "old"}, New: partition.Owner{InstanceID: "new"}},
	})

	_, ok := cache.Get("T", "k", Filters{})
	assert.False(t, ok)
}
