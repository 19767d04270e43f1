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

// Package apierr defines the error kinds every suspension point in this
// service returns, and the single table that maps them (or an engine
// errno) onto an HTTP status. No error kind is allowed to leak across a
// component boundary without going through this mapping.
package apierr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind identifies one of the error categories from the error-handling design.
type Kind int

const (
	// KindNetworkUnavailable covers kv-shard and query-engine connectivity failures.
	KindNetworkUnavailable Kind = iota
	// KindQueryEngineUnavailable means the engine never acknowledged a submitted query.
	KindQueryEngineUnavailable
	// KindInvalidInput covers bad filters, unknown tables, malformed tokens, bad purge input.
	KindInvalidInput
	// KindNotFound covers unknown query ids and TTL-expired results.
	KindNotFound
	// KindConflict means an operation that must be a cluster-wide singleton is already running.
	KindConflict
	// KindEngineFailure wraps a negative query progress value (-errno).
	KindEngineFailure
	// KindTransient covers subscription drops retried with backoff; never user-visible.
	KindTransient
)

// Error is a typed, wrapped error carrying one of the Kind values above.
type Error struct {
	Kind Kind
	Errno int // only meaningful for KindEngineFailure
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return kindName(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func kindName(k Kind) string {
	switch k {
	case KindNetworkUnavailable:
		return "network unavailable"
	case KindQueryEngineUnavailable:
		return "query engine unavailable"
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindEngineFailure:
		return "engine failure"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// New wraps msg as the given Kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, cause: errors.New(msg)}
}

// Wrap attaches a Kind to an existing error, preserving its chain.
func Wrap(k Kind, err error, msg string) *Error {
	return &Error{Kind: k, cause: errors.Wrap(err, msg)}
}

// EngineFailure builds a KindEngineFailure error from a negative progress value.
// progress is expected to be < 0, i.e. -errno.
func EngineFailure(progress int) *Error {
	return &Error{Kind: KindEngineFailure, Errno: -progress, cause: errors.Errorf("engine failure errno=%d", -progress)}
}

// errnoHTTP is the table from spec.md §4.5: progress -E terminates with the
// HTTP status below, keyed by the standard errno each -E represents.
var errnoHTTP = map[int]int{
	EBADMSG: http.StatusBadRequest,
	ENOBUFS: http.StatusForbidden,
	EINVAL:  http.StatusNotFound,
	ENOENT:  http.StatusGone,
	EIO:     http.StatusInternalServerError,
	EBUSY:   http.StatusServiceUnavailable,
}

// Standard errno values used by the query engine to signal failure kinds.
// Values match the platform's libc errno numbering referenced by spec.md.
const (
	EBADMSG = 74
	ENOBUFS = 105
	EINVAL  = 22
	ENOENT  = 2
	EIO     = 5
	EBUSY   = 16
)

// HTTPStatus maps an *Error onto the status code its caller must return.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNetworkUnavailable:
		return http.StatusInternalServerError
	case KindQueryEngineUnavailable:
		return http.StatusServiceUnavailable
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusGone
	case KindConflict:
		return http.StatusOK // purge conflict is reported as 200 with a status body
	case KindEngineFailure:
		if status, ok := errnoHTTP[e.Errno]; ok {
			return status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// As reports whether err (or anything it wraps) is an *Error of the given Kind.
func As(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
