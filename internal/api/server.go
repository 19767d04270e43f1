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
	"go.uber.org/zap"

	"opserver/internal/alarmack"
	"opserver/internal/catalog"
	"opserver/internal/kvshard"
	"opserver/internal/partition"
	"opserver/internal/purge"
	"opserver/internal/query"
	"opserver/internal/uve"
)

// Server is C8: the REST front-end composing every other component.
type Server struct {
	cache       *uve.Cache
	catalog     *catalog.Catalog
	broker      *query.Broker
	coordinator *purge.Coordinator
	forwarder   *alarmack.Forwarder
	pmap        *partition.Map
	fleet       *kvshard.Fleet // pub/sub bus for send-tracebuffer
	uveSource   uve.Source     // backs the ad hoc SSE streamer
	log         *zap.Logger

	router chi.Router
}

// Deps bundles every component Server routes requests to.
type Deps struct {
	Cache       *uve.Cache
	Catalog     *catalog.Catalog
	Broker      *query.Broker
	Coordinator *purge.Coordinator
	Forwarder   *alarmack.Forwarder
	PartitionMap *partition.Map
	Fleet       *kvshard.Fleet
	UVESource   uve.Source
	Log         *zap.Logger
}

// NewServer builds the REST surface and registers every route from
// spec.md §4.8.
func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cache:       d.Cache,
		catalog:     d.Catalog,
		broker:      d.Broker,
		coordinator: d.Coordinator,
		forwarder:   d.Forwarder,
		pmap:        d.PartitionMap,
		fleet:       d.Fleet,
		uveSource:   d.UVESource,
		log:         log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleHome)
	r.Get("/analytics", s.handleAnalyticsHome)

	r.Get("/analytics/uves", s.handleListUVETypes("uves"))
	r.Get("/analytics/alarms", s.handleListUVETypes("alarms"))

	r.Get("/analytics/{kind:uves|alarms}/{table}", s.handleListUVEsOfType)
	r.Post("/analytics/{kind:uves|alarms}/{table}", s.handleBatchUVEFetch)
	r.Get("/analytics/{kind:uves|alarms}/{table}/{name}", s.handleGetUVE)
	r.Get("/analytics/alarms/{table}/types", s.handleAlarmTypes)
	r.Post("/analytics/alarms/acknowledge", s.handleAlarmAck)

	r.Post("/analytics/query", s.handleQuerySubmit)
	r.Get("/analytics/query/{qid}", s.handleQueryStatus)
	r.Get("/analytics/query/{qid}/chunk-final/{cid}", s.handleQueryChunk)
	r.Get("/analytics/queries", s.handleQueriesList)

	r.Get("/analytics/tables", s.handleTablesList)
	r.Get("/analytics/tables/{table}", s.handleTableGet)
	r.Get("/analytics/tables/{table}/schema", s.handleTableSchema)
	r.Get("/analytics/tables/{table}/column-values", s.handleTableColumnValues)
	r.Get("/analytics/tables/{table}/column-values/{col}", s.handleTableColumnValues)

	r.Post("/analytics/operation/database-purge", s.handlePurge)
	r.Get("/analytics/operation/analytics-data-start-time", s.handleStartTimes)

	r.Get("/analytics/send-tracebuffer/{source}/{module}/{instance}/{name}", s.handleSendTracebuffer)

	r.Get("/analytics/uve-stream", s.handleUVEStream)

	return r
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"href": "/analytics",
	})
}

func (s *Server) handleAnalyticsHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"uves":    "/analytics/uves",
		"alarms":  "/analytics/alarms",
		"tables":  "/analytics/tables",
		"queries": "/analytics/queries",
	})
}
