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

// Package kvshard implements C1: a thin connection to a single kv-shard
// (Redis), plus the process-wide connection-state registry every client
// reports transitions to. All operations share a single failure contract —
// they fail with apierr.NetworkUnavailable — leaving HTTP mapping to callers.
package kvshard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"opserver/internal/apierr"
	"opserver/internal/telemetry"
)

// Role identifies which logical fleet a Client belongs to, for the
// connection-state registry's (role, addr) key.
type Role string

const (
	RoleUVE   Role = "uve"
	RoleQuery Role = "query"
)

// Client is a connection to one kv-shard address.
type Client struct {
	role Role
	addr string
	rdb  *redis.Client
}

// New dials addr (host:port) for the given role. Dialing is lazy in
// go-redis; the connection is only proven live on first use.
func New(role Role, addr, password string) *Client {
	return &Client{
		role: role,
		addr: addr,
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Addr returns the shard address this client targets.
func (c *Client) Addr() string { return c.addr }

// Raw exposes the underlying redis client for operations (Eval, pipelines)
// that don't warrant their own wrapper method.
func (c *Client) Raw() *redis.Client { return c.rdb }

// report records a transition in the connection-state registry and maps a
// non-nil err (which must never be redis.Nil — callers translate that to a
// normal empty result before calling report) to apierr.KindNetworkUnavailable.
func (c *Client) report(err error) error {
	if err == nil {
		telemetry.ShardUp.WithLabelValues(string(c.role), c.addr).Set(1)
		return nil
	}
	telemetry.ShardUp.WithLabelValues(string(c.role), c.addr).Set(0)
	return apierr.Wrap(apierr.KindNetworkUnavailable, err, "kv-shard "+c.addr)
}

// Get returns the string value at key, or ("", nil) if the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", c.report(nil)
	}
	if err != nil {
		return "", c.report(err)
	}
	return v, c.report(nil)
}

// HGetAll returns every field in the hash at key.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	v, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, c.report(err)
	}
	return v, c.report(nil)
}

// HSet sets a single field on the hash at key.
func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	_, err := c.rdb.HSet(ctx, key, field, value).Result()
	return c.report(err)
}

// SMembers returns every member of the set at key.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, c.report(err)
	}
	return v, c.report(nil)
}

// LRange returns elements [lo, hi] of the list at key.
func (c *Client) LRange(ctx context.Context, key string, lo, hi int64) ([]string, error) {
	v, err := c.rdb.LRange(ctx, key, lo, hi).Result()
	if err != nil {
		return nil, c.report(err)
	}
	return v, c.report(nil)
}

// LPush pushes value onto the head of the list at key.
func (c *Client) LPush(ctx context.Context, key string, value string) error {
	_, err := c.rdb.LPush(ctx, key, value).Result()
	return c.report(err)
}

// BLPop blocks up to timeout for an element to arrive on key, returning the
// popped value, or ("", nil) on timeout (the caller distinguishes timeout by
// checking for an empty string).
func (c *Client) BLPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	v, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return "", c.report(nil)
	}
	if err != nil {
		return "", c.report(err)
	}
	// BLPop returns [key, value].
	if len(v) < 2 {
		return "", c.report(nil)
	}
	return v[1], c.report(nil)
}

// Publish publishes message on channel.
func (c *Client) Publish(ctx context.Context, channel, message string) error {
	_, err := c.rdb.Publish(ctx, channel, message).Result()
	return c.report(err)
}

// Subscribe returns a subscription to channel. Callers read from Channel().
func (c *Client) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

// TTL returns the remaining time-to-live of key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	v, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, c.report(err)
	}
	return v, c.report(nil)
}

// Persist removes any TTL on key so it survives for the duration of a read.
func (c *Client) Persist(ctx context.Context, key string) error {
	_, err := c.rdb.Persist(ctx, key).Result()
	return c.report(err)
}

// Del removes key.
func (c *Client) Del(ctx context.Context, key string) error {
	_, err := c.rdb.Del(ctx, key).Result()
	return c.report(err)
}

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }
