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

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"opserver/internal/apierr"
)

// handleSendTracebuffer implements the supplemented send_trace_buffer
// feature: a thin publish onto the kv pub/sub bus, channel name derived
// from the four path segments.
func (s *Server) handleSendTracebuffer(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil || len(s.fleet.Shards()) == 0 {
		writeErr(w, apierr.New(apierr.KindNetworkUnavailable, "no kv shard configured for trace buffer publish"))
		return
	}

	source := chi.URLParam(r, "source")
	module := chi.URLParam(r, "module")
	instance := chi.URLParam(r, "instance")
	name := chi.URLParam(r, "name")

	channel := fmt.Sprintf("tracebuffer:%s:%s:%s:%s", source, module, instance, name)
	shard := s.fleet.ShardAt(0)
	if err := shard.Publish(r.Context(), channel, "send"); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "channel": channel})
}
