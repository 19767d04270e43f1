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
	"encoding/json"
	"net"
	"strconv"

	"opserver/internal/kvshard"
	"opserver/internal/partition"
)

// wireEvent is what arrives on a partition's pub/sub channel: add/mod/del
// keyed by (uve_key, producer, attr), per spec.md §4.3 step 2.
type wireEvent struct {
	Kind     string     `json:"kind"`
	Table    string     `json:"table"`
	Key      string     `json:"key"`
	Producer Producer   `json:"producer"`
	Attr     string     `json:"attr,omitempty"`
	Value    *Value     `json:"value,omitempty"`
}

func (w wireEvent) toEvent() (Event, bool) {
	var k EventKind
	switch w.Kind {
	case "add":
		k = EventAdd
	case "mod":
		k = EventMod
	case "del":
		k = EventDel
	default:
		return Event{}, false
	}
	ev := Event{Kind: k, Table: w.Table, Key: w.Key, Producer: w.Producer, Attr: w.Attr}
	if w.Value != nil {
		ev.Value = *w.Value
	}
	return ev, true
}

// channelFor derives the pub/sub channel a partition's owner publishes
// events on.
func channelFor(partitionID int) string {
	return "UVE_PARTITION:" + strconv.Itoa(partitionID)
}

// RedisSource is the concrete Source (spec.md §4.3 step 1): it dials
// whichever owner the streamer hands it and subscribes to that owner's
// partition channel over the kv-shard protocol (C1).
type RedisSource struct {
	redisPort int
	password  string
}

// NewRedisSource builds a source that dials owner.IP:redisPort for every
// subscription, matching this deployment's kv-shard redis_server_port.
func NewRedisSource(redisPort int, password string) *RedisSource {
	return &RedisSource{redisPort: redisPort, password: password}
}

// Stream opens a subscription to owner's redis, filtered to partitionID's
// channel, and translates each message into an Event. The returned channel
// closes (and the underlying pub/sub connection is torn down) when ctx is
// cancelled or the connection drops.
func (s *RedisSource) Stream(ctx context.Context, owner partition.Owner, partitionID int) (<-chan Event, error) {
	addr := net.JoinHostPort(owner.IP, strconv.Itoa(s.redisPort))
	client := kvshard.New(kvshard.RoleUVE, addr, s.password)
	sub := client.Subscribe(ctx, channelFor(partitionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		_ = client.Close()
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		defer client.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var we wireEvent
				if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
					continue
				}
				ev, ok := we.toEvent()
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
