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

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"opserver/internal/apierr"
	"opserver/internal/kvshard"
)

// OverlayToUnderlayTable is the well-known table name spec.md §4.5 says
// bypasses the query engine entirely.
const OverlayToUnderlayTable = "OverlayToUnderlayFlowMap"

// OverlayToUnderlayFunc is the resolver a Broker is built with for
// OverlayToUnderlayFlowMap queries. Submit only checks that one is set; it
// does not call it, so no rows are produced from it.
type OverlayToUnderlayFunc func(req SubmitRequest) ([]map[string]interface{}, error)

// Broker is C5: submit/status/chunk-fetch/cancel against the query
// engine's work-queue protocol on its dedicated kv store.
type Broker struct {
	client   *kvshard.Client
	log      *zap.Logger
	overlay  OverlayToUnderlayFunc
	ackWait  time.Duration

	mu      sync.Mutex
	tracked map[string]*Tracked
}

// NewBroker builds a broker against the dedicated query-engine kv store.
func NewBroker(client *kvshard.Client, overlay OverlayToUnderlayFunc, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{
		client:  client,
		log:     log,
		overlay: overlay,
		ackWait: 10 * time.Second,
		tracked: map[string]*Tracked{},
	}
}

// Submit enqueues req, waits up to 10s for the engine's first
// acknowledgement on REPLY:<qid>, and returns the qid plus the initial
// progress (spec.md §4.5 steps 1-4). A timeout fails with
// QueryEngineUnavailable; the caller decides sync vs. async framing.
func (b *Broker) Submit(ctx context.Context, req SubmitRequest, originatorIP net.IP) (string, int, error) {
	if req.Table == OverlayToUnderlayTable && b.overlay != nil {
		// Answered in-process with progress 100; no qid round-trips the
		// engine and b.overlay is not invoked.
		id := NewQueryID(originatorIP).String()
		b.track(id, StateDone)
		return id, 100, nil
	}

	qid := NewQueryID(originatorIP).String()
	key := "QUERY:" + qid

	fields := map[string]string{
		"table":         req.Table,
		"start_time":    req.StartTime,
		"end_time":      req.EndTime,
		"enqueue_time":  fmt.Sprintf("%d", time.Now().UnixMicro()),
	}
	if sf, err := json.Marshal(req.SelectFields); err == nil {
		fields["select_fields"] = string(sf)
	}
	if meta, err := json.Marshal(req); err == nil {
		fields["query_metadata"] = string(meta)
	}
	for field, value := range fields {
		if err := b.client.HSet(ctx, key, field, value); err != nil {
			return "", 0, err
		}
	}

	b.track(qid, StatePending)

	if err := b.client.LPush(ctx, "QUERYQ", qid); err != nil {
		return "", 0, err
	}

	reply, err := b.client.BLPop(ctx, b.ackWait, "REPLY:"+qid)
	if err != nil {
		b.setState(qid, StateError)
		return qid, 0, err
	}
	if reply == "" {
		b.setState(qid, StateAbandoned)
		return qid, 0, apierr.New(apierr.KindQueryEngineUnavailable,
			fmt.Sprintf("query engine did not acknowledge %s within %s", qid, b.ackWait))
	}

	// Push the reply back so the status URI can still observe it.
	if err := b.client.LPush(ctx, "REPLY:"+qid, reply); err != nil {
		return qid, 0, err
	}

	var ack engineReply
	if err := json.Unmarshal([]byte(reply), &ack); err != nil {
		return qid, 0, apierr.Wrap(apierr.KindQueryEngineUnavailable, err, "malformed engine reply for "+qid)
	}
	if ack.Progress < 0 {
		b.setState(qid, StateError)
		return qid, ack.Progress, apierr.EngineFailure(ack.Progress)
	}
	b.setState(qid, StateProcessing)
	return qid, ack.Progress, nil
}

// Status implements _query_status: the most recent REPLY:<qid> element,
// augmented with TTL and, once terminal, the synthesized chunk href.
func (b *Broker) Status(ctx context.Context, qid string) (Status, error) {
	replies, err := b.client.LRange(ctx, "REPLY:"+qid, 0, 0)
	if err != nil {
		return Status{}, err
	}
	if len(replies) == 0 {
		return Status{}, apierr.New(apierr.KindNotFound, "unknown or expired qid "+qid)
	}

	var ack engineReply
	if err := json.Unmarshal([]byte(replies[0]), &ack); err != nil {
		return Status{}, apierr.Wrap(apierr.KindQueryEngineUnavailable, err, "malformed engine reply for "+qid)
	}
	if ack.Progress < 0 {
		b.setState(qid, StateError)
		return Status{}, apierr.EngineFailure(ack.Progress)
	}

	ttl, err := b.client.TTL(ctx, "REPLY:"+qid)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		QID:       qid,
		Progress:  ack.Progress,
		StartTime: ack.StartTime,
		EndTime:   ack.EndTime,
		TTLMicros: ttl.Microseconds(),
	}
	if ack.Progress == 100 {
		st.Chunks = []Chunk{{Href: fmt.Sprintf("/analytics/query/%s/chunk-final/0", qid)}}
		b.setState(qid, StateDone)
	}
	return st, nil
}

// Chunk implements _query_chunk: reads RESULT:<qid>:<n>, persisting it for
// the duration of the read so its TTL does not reap mid-stream, then
// deletes it. An empty list (and n == cid) is the stream's terminator.
func (b *Broker) Chunk(ctx context.Context, qid string, n int64) ([]string, bool, error) {
	key := fmt.Sprintf("RESULT:%s:%d", qid, n)
	if err := b.client.Persist(ctx, key); err != nil {
		return nil, false, err
	}
	rows, err := b.client.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, false, err
	}
	if err := b.client.Del(ctx, key); err != nil {
		return nil, false, err
	}
	return rows, len(rows) == 0, nil
}

// List returns every in-flight/terminal query this broker process has
// submitted, for GET /analytics/queries.
func (b *Broker) List() []Tracked {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Tracked, 0, len(b.tracked))
	for _, t := range b.tracked {
		out = append(out, *t)
	}
	return out
}

func (b *Broker) track(qid string, state State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracked[qid] = &Tracked{QID: qid, State: state, EnqueueTime: time.Now().UnixMicro()}
}

func (b *Broker) setState(qid string, state State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tracked[qid]; ok {
		t.State = state
	}
}
