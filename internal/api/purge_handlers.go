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
	"time"

	"opserver/internal/apierr"
	"opserver/internal/purge"
)

// purgeRequestBody carries purge_input either as a JSON number
// (percentage) or a JSON string (time literal).
type purgeRequestBody struct {
	PurgeInput json.RawMessage `json:"purge_input"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var body purgeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apierr.Wrap(apierr.KindInvalidInput, err, "malformed purge request"))
		return
	}

	var input purge.PurgeInput
	var pct int
	if err := json.Unmarshal(body.PurgeInput, &pct); err == nil {
		input.Percentage = &pct
	} else {
		var literal string
		if err := json.Unmarshal(body.PurgeInput, &literal); err != nil {
			writeErr(w, apierr.New(apierr.KindInvalidInput, "purge_input must be a percentage or a time literal"))
			return
		}
		input.TimeLiteral = &literal
	}

	outcome, err := s.coordinator.Purge(r.Context(), input, time.Now())
	if err != nil {
		writeErr(w, err)
		return
	}
	if outcome.Status == "failed" {
		// A prior run left DB_PURGE_STATUS in a failed state: report it as
		// a busy/unavailable backend rather than a successful submission.
		writeErr(w, apierr.EngineFailure(-apierr.EBUSY))
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleStartTimes(w http.ResponseWriter, r *http.Request) {
	st, err := s.coordinator.StartTimes(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
