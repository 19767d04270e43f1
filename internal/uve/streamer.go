// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uve

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"opserver/internal/partition"
)

// Source is satisfied by whatever speaks the partition owner's change
// stream protocol (spec.md §4.3 leaves the wire format to the kv-shard
// client; this is the seam a concrete implementation plugs into). The
// returned channel is closed when the connection drops, at which point
// the streamer reconnects with backoff.
type Source interface {
	Stream(ctx context.Context, owner partition.Owner, partitionID int) (<-chan Event, error)
}

// Streamer is C3: one worker goroutine per partition, following wherever
// the partition map currently says that partition's owner lives, clearing
// and fully reingesting on every owner change.
type Streamer struct {
	cache  *Cache
	source Source
	log    *zap.Logger

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
}

// NewStreamer builds a streamer over cache, pulling events from source.
func NewStreamer(cache *Cache, source Source, log *zap.Logger) *Streamer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{
		cache:   cache,
		source:  source,
		log:     log,
		cancels: map[int]context.CancelFunc{},
	}
}

// HandleOwnerChanges reacts to a batch of C2 owner-changed events: the
// cache is cleared for the partition first, so a concurrent wildcard scan
// observes a gap rather than the old owner's stale snapshot (spec.md §9),
// then a fresh worker is started against the new owner.
func (s *Streamer) HandleOwnerChanges(changes []partition.OwnerChange) {
	for _, ch := range changes {
		s.cache.ClearPartition(ch.Partition)
		s.restart(ch.Partition, ch.New)
	}
}

func (s *Streamer) restart(p int, owner partition.Owner) {
	s.mu.Lock()
	if cancel, ok := s.cancels[p]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[p] = cancel
	s.mu.Unlock()

	go s.run(ctx, p, owner)
}

// Stop cancels every running partition worker.
func (s *Streamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = map[int]context.CancelFunc{}
}

func (s *Streamer) run(ctx context.Context, p int, owner partition.Owner) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // never give up on the current owner
	for {
		if ctx.Err() != nil {
			return
		}
		ch, err := s.source.Stream(ctx, owner, p)
		if err != nil {
			s.log.Warn("uve stream connect failed", zap.Int("partition", p), zap.Error(err))
			if !s.sleep(ctx, b.NextBackOff()) {
				return
			}
			continue
		}
		b.Reset()

		for ev := range ch {
			s.cache.Apply(ev)
		}
		if ctx.Err() != nil {
			return
		}
		s.log.Info("uve stream disconnected, reconnecting", zap.Int("partition", p))
		if !s.sleep(ctx, b.NextBackOff()) {
			return
		}
	}
}

func (s *Streamer) sleep(ctx context.Context, d time.Duration) bool {
	if d == backoff.Stop {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
