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

package main

import (
	"context"
	"sync"
	"time"

	"opserver/internal/purge"
)

// demoColumnStore is a throwaway in-memory stand-in for the column store
// (spec.md's explicit non-goal: no concrete client ships with this repo).
// It exists only so this binary has something to purge against; a real
// deployment replaces it with a client against its actual column store.
type demoColumnStore struct {
	mu    sync.Mutex
	start map[string]int64
}

func newDemoColumnStore() *demoColumnStore {
	now := time.Now().UnixMicro()
	start := make(map[string]int64, len(purge.Classes))
	for _, c := range purge.Classes {
		start[c] = now
	}
	return &demoColumnStore{start: start}
}

func (d *demoColumnStore) FetchDiskUsage(ctx context.Context) ([]purge.NodeUsage, error) {
	return []purge.NodeUsage{{Node: "demo-node-0", UsedPercent: 0}}, nil
}

func (d *demoColumnStore) FetchStartTimes(ctx context.Context) (map[string]int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int64, len(d.start))
	for k, v := range d.start {
		out[k] = v
	}
	return out, nil
}

func (d *demoColumnStore) Purge(ctx context.Context, cutoffs map[string]int64) (int64, error) {
	return 0, nil
}

func (d *demoColumnStore) PersistStartTimes(ctx context.Context, cutoffs map[string]int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range cutoffs {
		d.start[k] = v
	}
	return nil
}
