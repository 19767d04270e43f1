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

// Package purge implements C7: the cluster-wide, lock-guarded purge
// coordinator and its background watchdog.
package purge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"opserver/internal/apierr"
	"opserver/internal/kvshard"
	"opserver/internal/telemetry"
)

// Classes are the four independently-cutoff data classes spec.md §4.7 names.
var Classes = []string{"flow", "stats", "msg", "other"}

const lockKey = "DB_PURGE_STATUS"
const lockTTL = 2 * time.Hour // generous upper bound on a single purge run

// lockCAS is the Lua compare-and-set used to claim DB_PURGE_STATUS,
// adapted from the idempotent-commit script pattern: SETNX guarded by an
// explicit GET so the caller learns the existing holder on failure.
const lockCAS = `
local key = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local existing = redis.call('GET', key)
if not existing then
  redis.call('SET', key, value)
  if ttl and ttl > 0 then
    redis.call('EXPIRE', key, ttl)
  end
  return {1, value}
else
  return {0, existing}
end
`

// ColumnStore is the external collaborator holding the actual time-series
// rows. No concrete client is wired (spec.md §3 treats it, like the query
// engine, as an out-of-repo backend).
type ColumnStore interface {
	FetchDiskUsage(ctx context.Context) ([]NodeUsage, error)
	FetchStartTimes(ctx context.Context) (map[string]int64, error) // class -> micros since epoch
	Purge(ctx context.Context, cutoffs map[string]int64) (rowsDeleted int64, err error)
	PersistStartTimes(ctx context.Context, cutoffs map[string]int64) error
}

// NodeUsage is one column-store node's disk utilization, as a percentage.
type NodeUsage struct {
	Node         string
	UsedPercent  int
}

// lockValue is the JSON body stored at DB_PURGE_STATUS.
type lockValue struct {
	Status  string           `json:"status"` // "running" | "failed"
	PurgeID string           `json:"purge_id"`
	Cutoffs map[string]int64 `json:"cutoffs"`
}

// PurgeInput is POST /analytics/operation/database-purge's body: exactly
// one of Percentage or TimeLiteral must be set.
type PurgeInput struct {
	Percentage  *int
	TimeLiteral *string
}

// Outcome is what Purge returns once a lock is claimed, whether this call
// initiated the run or observed one already in flight.
type Outcome struct {
	PurgeID string
	Status  string // "started" | "running" | "failed"
	Cutoffs map[string]int64
}

// Coordinator is C7.
type Coordinator struct {
	client       *kvshard.Client
	store        ColumnStore
	ttls         map[string]time.Duration // class -> TTL
	log          *zap.Logger

	mu         sync.Mutex
	lastStart  map[string]int64
}

// NewCoordinator builds a coordinator. ttls must have an entry for every
// member of Classes.
func NewCoordinator(client *kvshard.Client, store ColumnStore, ttls map[string]time.Duration, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{client: client, store: store, ttls: ttls, log: log, lastStart: map[string]int64{}}
}

// Purge implements POST /analytics/operation/database-purge (spec.md §4.7).
func (c *Coordinator) Purge(ctx context.Context, input PurgeInput, now time.Time) (Outcome, error) {
	startTimes, err := c.startTimes(ctx)
	if err != nil {
		return Outcome{}, err
	}

	cutoffs, err := computeCutoffs(input, startTimes, c.ttls, now)
	if err != nil {
		return Outcome{}, err
	}

	purgeID := fmt.Sprintf("purge-%d", now.UnixMicro())
	lv := lockValue{Status: "running", PurgeID: purgeID, Cutoffs: cutoffs}
	payload, err := json.Marshal(lv)
	if err != nil {
		return Outcome{}, apierr.Wrap(apierr.KindInvalidInput, err, "encoding purge lock")
	}

	claimed, existing, err := c.claimLock(ctx, string(payload))
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		telemetry.PurgeConflictsTotal.Inc()
		if existing.Status == "failed" {
			return Outcome{PurgeID: existing.PurgeID, Status: "failed", Cutoffs: existing.Cutoffs}, nil
		}
		return Outcome{PurgeID: existing.PurgeID, Status: "running", Cutoffs: existing.Cutoffs}, nil
	}

	go c.run(context.Background(), purgeID, cutoffs)

	return Outcome{PurgeID: purgeID, Status: "started", Cutoffs: cutoffs}, nil
}

func (c *Coordinator) run(ctx context.Context, purgeID string, cutoffs map[string]int64) {
	start := time.Now()
	telemetry.PurgeRunsTotal.Inc()

	rows, err := c.store.Purge(ctx, cutoffs)
	status := "success"
	if err != nil {
		status = "failure"
		c.log.Error("purge run failed", zap.String("purge_id", purgeID), zap.Error(err))
		failed, _ := json.Marshal(lockValue{Status: "failed", PurgeID: purgeID, Cutoffs: cutoffs})
		_ = c.client.Raw().Set(ctx, lockKey, string(failed), lockTTL).Err()
	} else {
		telemetry.PurgeRowsDeletedTotal.Add(float64(rows))
		if rows > 0 {
			if err := c.store.PersistStartTimes(ctx, cutoffs); err != nil {
				c.log.Error("persisting purge start times failed", zap.Error(err))
			} else {
				c.mu.Lock()
				for k, v := range cutoffs {
					c.lastStart[k] = v
				}
				c.mu.Unlock()
			}
		}
		_ = c.client.Del(ctx, lockKey)
	}

	event := map[string]interface{}{
		"purge_id":     purgeID,
		"status":       status,
		"rows_deleted": rows,
		"duration_ms":  time.Since(start).Milliseconds(),
	}
	if payload, err := json.Marshal(event); err == nil {
		_ = c.client.Publish(ctx, "PURGE_COMPLETE", string(payload))
	}
}

// claimLock attempts the CAS; on failure it returns the existing holder's value.
func (c *Coordinator) claimLock(ctx context.Context, payload string) (bool, lockValue, error) {
	res, err := c.client.Raw().Eval(ctx, lockCAS, []string{lockKey}, payload, int(lockTTL.Seconds())).Result()
	if err != nil {
		return false, lockValue{}, apierr.Wrap(apierr.KindNetworkUnavailable, err, "purge lock CAS")
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 2 {
		return false, lockValue{}, apierr.New(apierr.KindNetworkUnavailable, "malformed purge lock CAS reply")
	}
	claimed, _ := arr[0].(int64)
	raw, _ := arr[1].(string)

	var lv lockValue
	_ = json.Unmarshal([]byte(raw), &lv)
	return claimed == 1, lv, nil
}

// StartTimes returns the purge coordinator's last-known per-class start
// times, falling back to the column store on cold start (supplemented
// feature: /analytics/operation/analytics-data-start-time).
func (c *Coordinator) StartTimes(ctx context.Context) (map[string]int64, error) {
	return c.startTimes(ctx)
}

func (c *Coordinator) startTimes(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	if len(c.lastStart) == len(Classes) {
		out := make(map[string]int64, len(c.lastStart))
		for k, v := range c.lastStart {
			out[k] = v
		}
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	st, err := c.store.FetchStartTimes(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	for k, v := range st {
		c.lastStart[k] = v
	}
	c.mu.Unlock()
	return st, nil
}

// Status reads DB_PURGE_STATUS without attempting to claim it.
func (c *Coordinator) Status(ctx context.Context) (lockValue, bool, error) {
	raw, err := c.client.Get(ctx, lockKey)
	if err != nil {
		return lockValue{}, false, err
	}
	if raw == "" {
		return lockValue{}, false, nil
	}
	var lv lockValue
	if err := json.Unmarshal([]byte(raw), &lv); err != nil {
		return lockValue{}, false, apierr.Wrap(apierr.KindNetworkUnavailable, err, "malformed purge lock value")
	}
	return lv, true, nil
}
