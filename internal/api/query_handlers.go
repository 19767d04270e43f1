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
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"opserver/internal/apierr"
	"opserver/internal/query"
	"opserver/internal/telemetry"
)

func originatorIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	return net.IPv4zero
}

func wantsAsync(r *http.Request) bool {
	expect := r.Header.Get("Expect")
	postmanExpect := r.Header.Get("Postman-Expect")
	return expect == "202-accepted" || postmanExpect == "202-accepted"
}

func (s *Server) handleQuerySubmit(w http.ResponseWriter, r *http.Request) {
	var req query.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apierr.Wrap(apierr.KindInvalidInput, err, "malformed query submission"))
		return
	}

	qid, progress, err := s.broker.Submit(r.Context(), req, originatorIP(r))
	if err != nil {
		telemetry.QueriesFailedTotal.Inc()
		if apierr.As(err, apierr.KindQueryEngineUnavailable) {
			telemetry.QueryEngineTimeoutsTotal.Inc()
		}
		writeErr(w, err)
		return
	}
	telemetry.QueriesSubmittedTotal.Inc()

	// OverlayToUnderlayFlowMap never touches REPLY:<qid>/RESULT:<qid>:*,
	// so there is nothing to poll; the response is always an empty value
	// list (the broker's overlay resolver is not called).
	if req.Table == query.OverlayToUnderlayTable {
		writeJSON(w, http.StatusOK, map[string][]json.RawMessage{"value": {}})
		return
	}

	if wantsAsync(r) {
		writeJSON(w, http.StatusAccepted, map[string]string{"href": "/analytics/query/" + qid})
		return
	}

	s.pollUntilTerminal(w, r, qid, progress)
}

// pollUntilTerminal implements the synchronous client mode: poll
// REPLY:<qid> every second, log progress on change, and stream the
// chunked result once terminal (spec.md §4.5).
func (s *Server) pollUntilTerminal(w http.ResponseWriter, r *http.Request, qid string, lastProgress int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	progress := lastProgress
	for {
		st, err := s.broker.Status(r.Context(), qid)
		if err != nil {
			writeErr(w, err)
			return
		}
		if st.Progress != progress {
			progress = st.Progress
			s.log.Info("query progress", zap.String("qid", qid), zap.Int("progress", progress))
		}
		if progress == 100 {
			// Use a detached context: streaming the final result must
			// complete even if the poll loop's request context is near
			// its deadline.
			s.streamFinalResult(context.Background(), w, qid)
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) streamFinalResult(ctx context.Context, w http.ResponseWriter, qid string) {
	rows := []json.RawMessage{}
	for n := int64(0); ; n++ {
		chunkRows, done, err := s.broker.Chunk(ctx, qid, n)
		if err != nil {
			writeErr(w, err)
			return
		}
		if done {
			break
		}
		for _, row := range chunkRows {
			rows = append(rows, json.RawMessage(row))
		}
	}
	writeJSON(w, http.StatusOK, map[string][]json.RawMessage{"value": rows})
}

func (s *Server) handleQueryStatus(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	st, err := s.broker.Status(r.Context(), qid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleQueryChunk(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	cidStr := chi.URLParam(r, "cid")
	cid, err := strconv.ParseInt(cidStr, 10, 64)
	if err != nil {
		writeErr(w, apierr.New(apierr.KindInvalidInput, "malformed chunk id "+cidStr))
		return
	}

	rows, _, err := s.broker.Chunk(r.Context(), qid, cid)
	if err != nil {
		writeErr(w, err)
		return
	}
	raw := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		raw[i] = json.RawMessage(row)
	}
	writeJSON(w, http.StatusOK, map[string][]json.RawMessage{"value": raw})
}

func (s *Server) handleQueriesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.broker.List())
}
