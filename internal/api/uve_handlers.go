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
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"opserver/internal/alarmack"
	"opserver/internal/apierr"
	"opserver/internal/catalog"
	"opserver/internal/uve"
)

func (s *Server) handleListUVETypes(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := s.catalog.ObjectTypeNames()
		hrefs := make([]map[string]string, 0, len(types))
		for _, t := range types {
			hrefs = append(hrefs, map[string]string{"name": t, "href": "/analytics/" + kind + "/" + t})
		}
		writeJSON(w, http.StatusOK, hrefs)
	}
}

func (s *Server) handleListUVEsOfType(w http.ResponseWriter, r *http.Request) {
	table := catalog.ObjectTableName(chi.URLParam(r, "table"))
	f := filtersFromQuery(r)
	keys := s.cache.Keys(table, f)
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleGetUVE(w http.ResponseWriter, r *http.Request) {
	table := catalog.ObjectTableName(chi.URLParam(r, "table"))
	name := chi.URLParam(r, "name")
	f := filtersFromQuery(r)

	if strings.Contains(name, "*") {
		f.KFilt = append(f.KFilt, name)
		entries := []namedUVE{}
		for ku := range s.cache.MultiGet(table, f) {
			entries = append(entries, namedUVE{Name: ku.Key, Value: ku.Attrs})
		}
		writeJSON(w, http.StatusOK, map[string][]namedUVE{"value": entries})
		return
	}

	merged, ok := s.cache.Get(table, name, f)
	if !ok {
		writeErr(w, apierr.New(apierr.KindNotFound, "no such UVE "+name))
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// namedUVE is one entry of a wildcard or batch UVE fetch's "value" array.
type namedUVE struct {
	Name  string                    `json:"name"`
	Value map[string]uve.MergedAttr `json:"value"`
}

// batchFetchBody is the JSON filter body accepted by POST .../<types>.
type batchFetchBody struct {
	Keys    []string            `json:"keys"`
	SFilt   string              `json:"sfilt"`
	MFilt   string              `json:"mfilt"`
	CFilt   map[string][]string `json:"cfilt"`
	KFilt   []string            `json:"kfilt"`
	AckFilt *bool               `json:"ackfilt"`
}

func (s *Server) handleBatchUVEFetch(w http.ResponseWriter, r *http.Request) {
	table := catalog.ObjectTableName(chi.URLParam(r, "table"))

	var body batchFetchBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeErr(w, apierr.Wrap(apierr.KindInvalidInput, err, "malformed batch fetch body"))
			return
		}
	}

	f := uve.Filters{SFilt: body.SFilt, MFilt: body.MFilt, CFilt: body.CFilt, KFilt: body.KFilt, AckFilt: body.AckFilt}

	entries := []namedUVE{}
	if len(body.Keys) > 0 {
		for _, k := range body.Keys {
			if merged, ok := s.cache.Get(table, k, f); ok {
				entries = append(entries, namedUVE{Name: k, Value: merged})
			}
		}
	} else {
		for ku := range s.cache.MultiGet(table, f) {
			entries = append(entries, namedUVE{Name: ku.Key, Value: ku.Attrs})
		}
	}
	writeJSON(w, http.StatusOK, map[string][]namedUVE{"value": entries})
}

func (s *Server) handleAlarmTypes(w http.ResponseWriter, r *http.Request) {
	table := catalog.ObjectTableName(chi.URLParam(r, "table"))
	writeJSON(w, http.StatusOK, s.catalog.AlarmTypes(table))
}

func (s *Server) handleAlarmAck(w http.ResponseWriter, r *http.Request) {
	var req alarmack.AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apierr.Wrap(apierr.KindInvalidInput, err, "malformed ack request"))
		return
	}
	if err := s.forwarder.Forward(r.Context(), req); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "true"})
}

func filtersFromQuery(r *http.Request) uve.Filters {
	q := r.URL.Query()
	f := uve.Filters{SFilt: q.Get("sfilt"), MFilt: q.Get("mfilt")}
	if v := q.Get("ackfilt"); v != "" {
		b := v == "true"
		f.AckFilt = &b
	}
	return f
}
