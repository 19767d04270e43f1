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
	"encoding/json"
	"net/http"
	"sync"

	"opserver/internal/apierr"
	"opserver/internal/uve"
)

// handleUVEStream is the SSE endpoint (spec.md §4.8): it sets the three
// headers the spec names, spins up a throwaway per-partition stream for
// every partition the map currently knows an owner for, and streams
// events until the client disconnects.
func (s *Server) handleUVEStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, apierr.New(apierr.KindInvalidInput, "streaming unsupported by this connection"))
		return
	}
	if s.uveSource == nil || s.pmap == nil {
		writeErr(w, apierr.New(apierr.KindNetworkUnavailable, "uve streaming not configured"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	out := make(chan uve.Event, 64)
	var wg sync.WaitGroup

	for p, owner := range s.pmap.Snapshot() {
		ch, err := s.uveSource.Stream(ctx, owner, p)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(ch <-chan uve.Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-out:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
