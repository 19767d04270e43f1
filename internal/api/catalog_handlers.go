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
	"net/http"

	"github.com/go-chi/chi/v5"

	"opserver/internal/apierr"
)

func (s *Server) handleTablesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Tables())
}

func (s *Server) handleTableGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	t, ok := s.catalog.Table(name)
	if !ok {
		writeErr(w, apierr.New(apierr.KindNotFound, "unknown table "+name))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	t, ok := s.catalog.Table(name)
	if !ok {
		writeErr(w, apierr.New(apierr.KindNotFound, "unknown table "+name))
		return
	}
	writeJSON(w, http.StatusOK, t.Columns)
}

func (s *Server) handleTableColumnValues(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	col := chi.URLParam(r, "col")
	if col == "" {
		col = r.URL.Query().Get("column")
	}

	if _, ok := s.catalog.Table(name); !ok {
		writeErr(w, apierr.New(apierr.KindNotFound, "unknown table "+name))
		return
	}

	objectKeys := func() []string {
		return s.cache.Keys(name, filtersFromQuery(r))
	}

	vals, err := s.catalog.ColumnValues(r.Context(), name, col, objectKeys)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vals)
}
