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

package purge

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWarmup   = 10 * time.Minute
	defaultInterval = 30 * time.Minute
)

// Watchdog is the background loop from spec.md §4.7: after a warm-up
// period, periodically checks column-store disk usage and triggers a
// threshold-driven purge when any node exceeds the configured limit.
type Watchdog struct {
	coordinator *Coordinator
	store       ColumnStore
	threshold   int // percent
	level       int // purge_level: percentage retained, not deleted
	warmup      time.Duration
	interval    time.Duration
	log         *zap.Logger
}

// NewWatchdog builds a watchdog. threshold/level come from config's
// db_purge_threshold/db_purge_level.
func NewWatchdog(coordinator *Coordinator, store ColumnStore, threshold, level int, log *zap.Logger) *Watchdog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watchdog{
		coordinator: coordinator,
		store:       store,
		threshold:   threshold,
		level:       level,
		warmup:      defaultWarmup,
		interval:    defaultInterval,
		log:         log,
	}
}

// Run blocks until ctx is cancelled, warming up once before the first tick.
func (w *Watchdog) Run(ctx context.Context) {
	timer := time.NewTimer(w.warmup)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watchdog) tick(ctx context.Context) {
	if _, running, err := w.coordinator.Status(ctx); err != nil {
		w.log.Warn("purge watchdog status check failed", zap.Error(err))
		return
	} else if running {
		return
	}

	usage, err := w.store.FetchDiskUsage(ctx)
	if err != nil {
		w.log.Warn("purge watchdog disk usage fetch failed", zap.Error(err))
		return
	}

	triggered := false
	for _, u := range usage {
		if u.UsedPercent > w.threshold {
			triggered = true
			break
		}
	}
	if !triggered {
		return
	}

	pct := 100 - w.level
	outcome, err := w.coordinator.Purge(ctx, PurgeInput{Percentage: &pct}, time.Now())
	if err != nil {
		w.log.Error("purge watchdog failed to start purge", zap.Error(err))
		return
	}
	w.log.Info("purge watchdog triggered purge", zap.String("purge_id", outcome.PurgeID), zap.String("status", outcome.Status))
}
