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

// Package uve implements C3 (the per-partition streamer) and C4 (the
// merged cache) from spec.md §4.3/§4.4: a UVE is a mapping from structural
// attribute name to a value contributed, separately, by one or more
// producers, merged on read.
package uve

// Kind is the shape of one attribute's value.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindMap
	KindAlarmList
)

// Producer is the provenance tuple every contribution carries.
type Producer struct {
	Source    string
	NodeType  string
	Module    string
	Instance  string
	Partition int
}

// Alarm specializes a UVE attribute: an actionable condition with a token
// routable back to the producer that raised it (spec.md §3).
type Alarm struct {
	Type      string
	Severity  int
	Timestamp int64
	Ack       bool
	Token     string // base64 of {host_ip, http_port, timestamp}
}

// Value is one producer's contribution to one attribute.
type Value struct {
	Kind   Kind
	Scalar string
	List   []string
	Map    map[string]string
	Alarms []Alarm
}

// Contribution is a stored Value plus the monotonic sequence number it was
// written with, used to resolve last-writer-wins on map-attribute merges.
type Contribution struct {
	Value Value
	Seq   uint64
}

// EventKind is one of the three event shapes a streamer ingests (spec.md §4.3).
type EventKind int

const (
	EventAdd EventKind = iota
	EventMod
	EventDel
)

// Event is one change-stream message from a partition's owner.
type Event struct {
	Kind     EventKind
	Table    string
	Key      string
	Producer Producer
	Attr     string // empty on EventDel means "delete the whole producer contribution"
	Value    Value  // unused on EventDel
}
