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

// Package api implements C8: the REST surface in front of every other
// component, routed with go-chi/chi/v5.
package api

import (
	"encoding/json"
	"net/http"

	"opserver/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps an error through apierr.HTTPStatus and writes a small
// status body, used everywhere a handler hits a component-level failure.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apierr.HTTPStatus(err), map[string]string{"error": err.Error()})
}
