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

// Package query implements C5: the asynchronous query broker sitting in
// front of the analytics query engine's work-queue protocol.
package query

// SubmitRequest is the structured body of POST /analytics/query.
type SubmitRequest struct {
	Table        string                 `json:"table"`
	SelectFields []string               `json:"select_fields"`
	StartTime    string                 `json:"start_time"`
	EndTime      string                 `json:"end_time"`
	Where        map[string]interface{} `json:"where,omitempty"`
	Filter       map[string]interface{} `json:"filter,omitempty"`
}

// State is the lifecycle stage tracked for /analytics/queries enumeration.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateAbandoned  State = "abandoned"
	StateError      State = "error"
	StateDone       State = "done"
)

// Tracked is one entry of the in-process query registry.
type Tracked struct {
	QID         string
	State       State
	EnqueueTime int64 // microseconds since epoch
}

// Chunk is one element of a terminal status's chunk list.
type Chunk struct {
	Href string `json:"href"`
}

// Status mirrors the reply the engine leaves on REPLY:<qid>, augmented
// with TTL and the synthesized terminal chunk href (spec.md §4.5).
type Status struct {
	QID       string  `json:"qid"`
	Progress  int     `json:"progress"`
	StartTime int64   `json:"start_time,omitempty"`
	EndTime   int64   `json:"end_time,omitempty"`
	TTLMicros int64   `json:"ttl_micros,omitempty"`
	Chunks    []Chunk `json:"chunks,omitempty"`
}

// engineReply is what the query engine writes to REPLY:<qid>: a JSON
// object whose progress field is either 0-100 or a negative errno.
type engineReply struct {
	Progress  int   `json:"progress"`
	StartTime int64 `json:"start_time,omitempty"`
	EndTime   int64 `json:"end_time,omitempty"`
}
