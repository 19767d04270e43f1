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

package kvshard

import "context"

// Fleet is the set of every known kv-shard for one role (UVE or query),
// used by operations that must fan out across the whole cluster — e.g.
// column_values(MODULE) scanning NGENERATORS on every shard.
type Fleet struct {
	shards []*Client
}

// NewFleet builds a Fleet from a list of host:port addresses.
func NewFleet(role Role, addrs []string, password string) *Fleet {
	f := &Fleet{shards: make([]*Client, 0, len(addrs))}
	for _, addr := range addrs {
		f.shards = append(f.shards, New(role, addr, password))
	}
	return f
}

// Shards returns every client in the fleet.
func (f *Fleet) Shards() []*Client { return f.shards }

// ShardAt returns the shard at index i modulo the fleet size, or nil if
// the fleet is empty. It does not hash UVE keys; partition ownership is
// tracked by internal/partition.
func (f *Fleet) ShardAt(i int) *Client {
	if len(f.shards) == 0 {
		return nil
	}
	return f.shards[i%len(f.shards)]
}

// SMembersAll unions SMembers(key) across every shard in the fleet,
// stopping at the first NetworkUnavailable — used for NGENERATORS scans.
func (f *Fleet) SMembersAll(ctx context.Context, key string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range f.shards {
		members, err := s.SMembers(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// Close closes every shard connection in the fleet.
func (f *Fleet) Close() {
	for _, s := range f.shards {
		_ = s.Close()
	}
}
