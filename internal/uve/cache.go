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
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"opserver/internal/partition"
)

// scanChunkSize bounds how many entries Keys/MultiGet examine per RLock
// acquisition, so a wildcard scan over a large shard never starves Apply's
// writer lock or another point lookup for the duration of the whole table.
const scanChunkSize = 256

type cacheKey struct {
	Table string
	Key   string
}

// shard holds every contribution owned by one partition. A UVE key hashes
// to exactly one partition (spec.md §3), so merges only ever happen across
// producers within the same shard, never across shards.
type shard struct {
	mu   sync.RWMutex
	data map[cacheKey]map[Producer]map[string]Contribution
}

// Cache is C4: the merged, in-memory view over every partition's raw
// producer contributions. One shard per partition lets a ClearPartition
// (owner-changed) touch only its own lock, never blocking reads of
// unaffected partitions.
type Cache struct {
	total  int
	shards []*shard
	seq    atomic.Uint64
}

// NewCache builds a cache sized for total partitions.
func NewCache(total int) *Cache {
	c := &Cache{total: total, shards: make([]*shard, total)}
	for i := range c.shards {
		c.shards[i] = &shard{data: map[cacheKey]map[Producer]map[string]Contribution{}}
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[partition.Hash(key, c.total)]
}

// Apply ingests one streamer event (spec.md §4.3/§4.4).
func (c *Cache) Apply(ev Event) {
	s := c.shardFor(ev.Key)
	ck := cacheKey{Table: ev.Table, Key: ev.Key}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventDel:
		if ev.Attr == "" {
			delete(s.data[ck], ev.Producer)
			if len(s.data[ck]) == 0 {
				delete(s.data, ck)
			}
			return
		}
		if byProd, ok := s.data[ck]; ok {
			delete(byProd[ev.Producer], ev.Attr)
			if len(byProd[ev.Producer]) == 0 {
				delete(byProd, ev.Producer)
			}
			if len(byProd) == 0 {
				delete(s.data, ck)
			}
		}
	case EventAdd, EventMod:
		byProd, ok := s.data[ck]
		if !ok {
			byProd = map[Producer]map[string]Contribution{}
			s.data[ck] = byProd
		}
		attrs, ok := byProd[ev.Producer]
		if !ok {
			attrs = map[string]Contribution{}
			byProd[ev.Producer] = attrs
		}
		attrs[ev.Attr] = Contribution{Value: ev.Value, Seq: c.seq.Add(1)}
	}
}

// ClearPartition empties every key owned by partition p. Used on
// owner-changed: the new owner's reingest fully replaces the old owner's
// contributions, and a concurrent wildcard scan sees a gap for the
// duration (spec.md §9's resolved open question).
func (c *Cache) ClearPartition(p int) {
	if p < 0 || p >= len(c.shards) {
		return
	}
	s := c.shards[p]
	s.mu.Lock()
	s.data = map[cacheKey]map[Producer]map[string]Contribution{}
	s.mu.Unlock()
}

// MergedAttr is one attribute's value after merging every producer's
// contribution (spec.md §4.4's merge rules).
type MergedAttr struct {
	Kind           Kind
	List           []string
	Map            map[string]string
	ScalarContribs []ScalarContrib
	Alarms         []Alarm
}

// ScalarContrib preserves per-producer provenance for scalar attributes:
// unlike list/map attributes, scalars are never collapsed to one value.
type ScalarContrib struct {
	Producer Producer
	Value    string
}

// Get returns the merged view of one UVE, or false if it has no contributions.
func (c *Cache) Get(table, key string, f Filters) (map[string]MergedAttr, bool) {
	s := c.shardFor(key)
	ck := cacheKey{Table: table, Key: key}

	s.mu.RLock()
	byProd, ok := s.data[ck]
	if !ok {
		s.mu.RUnlock()
		return nil, false
	}
	snap := make(map[Producer]map[string]Contribution, len(byProd))
	for p, attrs := range byProd {
		cp := make(map[string]Contribution, len(attrs))
		for a, c := range attrs {
			cp[a] = c
		}
		snap[p] = cp
	}
	s.mu.RUnlock()

	merged := merge(snap, f)
	if len(merged) == 0 {
		return nil, false
	}
	return merged, true
}

// chunkItem is one key's deep-copied contributions, captured under a
// shard's RLock for merging once the lock has been released.
type chunkItem struct {
	key  string
	snap map[Producer]map[string]Contribution
}

// scanShard walks s.data for table/kfilt matches in bounded chunks of at
// most scanChunkSize entries examined per RLock acquisition, calling
// onChunk with each chunk's deep-copied snapshot after releasing the lock.
// A shard's map cannot be range-resumed across separate lock acquisitions,
// so scanShard tracks which keys it has already examined in seen and skips
// them on the next pass; runtime.Gosched() between passes gives Apply's
// writer lock (and other readers) a chance to run on a large scan.
func scanShard(s *shard, table string, kfilt []string, onChunk func([]chunkItem)) {
	seen := map[cacheKey]struct{}{}
	for {
		var chunk []chunkItem
		examined := 0
		more := false

		s.mu.RLock()
		for ck, byProd := range s.data {
			if _, done := seen[ck]; done {
				continue
			}
			seen[ck] = struct{}{}
			examined++

			if ck.Table == table && matchesKFilt(ck.Key, kfilt) {
				cp := make(map[Producer]map[string]Contribution, len(byProd))
				for p, attrs := range byProd {
					ap := make(map[string]Contribution, len(attrs))
					for a, c := range attrs {
						ap[a] = c
					}
					cp[p] = ap
				}
				chunk = append(chunk, chunkItem{key: ck.Key, snap: cp})
			}

			if examined >= scanChunkSize {
				more = true
				break
			}
		}
		s.mu.RUnlock()

		if len(chunk) > 0 {
			onChunk(chunk)
		}
		if !more {
			return
		}
		runtime.Gosched()
	}
}

// Keys lists every UVE key stored for table, filtered by kfilt glob
// patterns, scanning each shard in bounded chunks so no single lock is
// held for the whole table.
func (c *Cache) Keys(table string, f Filters) []string {
	var out []string
	for _, s := range c.shards {
		scanShard(s, table, f.KFilt, func(chunk []chunkItem) {
			for _, it := range chunk {
				out = append(out, it.key)
			}
		})
	}
	sort.Strings(out)
	return out
}

// MultiGet streams merged UVEs for every key in table matching f, scanning
// each shard in bounded chunks so it never locks a partition for longer
// than scanChunkSize entries at a time. The returned channel is closed
// once every shard has been scanned.
func (c *Cache) MultiGet(table string, f Filters) <-chan KeyedUVE {
	out := make(chan KeyedUVE)
	go func() {
		defer close(out)
		for _, s := range c.shards {
			scanShard(s, table, f.KFilt, func(chunk []chunkItem) {
				for _, it := range chunk {
					merged := merge(it.snap, f)
					if len(merged) == 0 {
						continue
					}
					out <- KeyedUVE{Key: it.key, Attrs: merged}
				}
			})
		}
	}()
	return out
}

// KeyedUVE is one entry of a MultiGet stream.
type KeyedUVE struct {
	Key   string
	Attrs map[string]MergedAttr
}
