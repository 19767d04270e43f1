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

// Package discovery describes the two lists the discovery service
// periodically hands back (spec.md §6). The discovery client itself is an
// external collaborator out of scope for this repo; only the shapes it
// produces, and a Poller interface a real client satisfies, live here.
package discovery

import (
	"context"
	"net"
	"strconv"

	"opserver/internal/partition"
)

// Collector is one entry of the collector-service list: the kv-shard host
// this collector's UVE redis listens on (port is supplied separately via
// config's redis_server_port).
type Collector struct {
	IPAddress string
	PID       int
}

// PartitionAnnouncement is one entry of the alarm-partition service list,
// convertible directly to a partition.Record.
type PartitionAnnouncement struct {
	Partition  int
	InstanceID string
	IPAddress  string
	Port       int
	AcqTime    int64
}

func (a PartitionAnnouncement) ToRecord() partition.Record {
	return partition.Record{
		Partition: a.Partition,
		Owner: partition.Owner{
			InstanceID: a.InstanceID,
			IP:         a.IPAddress,
			Port:       a.Port,
			AcqTime:    a.AcqTime,
		},
	}
}

// Poller is satisfied by a real discovery client. Poll is expected to be
// called periodically by the caller (this repo does not own the polling
// cadence; that lives with whatever wires a concrete Poller).
type Poller interface {
	PollCollectors(ctx context.Context) ([]Collector, error)
	PollPartitions(ctx context.Context) ([]PartitionAnnouncement, error)
}

// ShardAddrs derives kv-shard addresses from a collector list and the
// configured UVE redis port.
func ShardAddrs(collectors []Collector, redisServerPort int) []string {
	addrs := make([]string, 0, len(collectors))
	for _, c := range collectors {
		addrs = append(addrs, addrPort(c.IPAddress, redisServerPort))
	}
	return addrs
}

func addrPort(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
