package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opserver/internal/alarmack"
	"opserver/internal/catalog"
	"opserver/internal/kvshard"
	"opserver/internal/partition"
	"opserver/internal/query"
	"opserver/internal/uve"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cache := uve.NewCache(4)
	cache.Apply(uve.Event{
		Kind: uve.EventAdd, Table: "ObjectVRouterTable", Key: "vr1",
		Producer: uve.Producer{Source: "a1"}, Attr: "state",
		Value: uve.Value{Kind: uve.KindScalar, Scalar: "up"},
	})

	cat := catalog.New([]string{"VRouter"}, map[string][]catalog.AlarmType{
		"ObjectVRouterTable": {{Name: "PartitionUnhealthy", Type: "warn", Doc: "partition is unhealthy"}},
	}, nil)

	client := kvshard.New(kvshard.RoleQuery, "127.0.0.1:1", "")
	overlay := func(req query.SubmitRequest) ([]map[string]interface{}, error) { return nil, nil }
	broker := query.NewBroker(client, overlay, nil)

	forwarder := alarmack.NewForwarder(0)

	return NewServer(Deps{
		Cache:        cache,
		Catalog:      cat,
		Broker:       broker,
		Forwarder:    forwarder,
		PartitionMap: partition.New(4),
	})
}

func TestHomeAndAnalyticsHome(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/analytics", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/analytics/uves", body["uves"])
}

func TestListUVETypesAndGetUVE(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analytics/uves", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "VRouter")

	req = httptest.NewRequest(http.MethodGet, "/analytics/uves/VRouter/vr1", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "state")
}

func TestGetUVENotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/analytics/uves/VRouter/missing", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestAlarmTypesEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/analytics/alarms/VRouter/types", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PartitionUnhealthy")
}

func TestQuerySubmitOverlayBypassViaHTTP(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(query.SubmitRequest{Table: query.OverlayToUnderlayTable})
	req := httptest.NewRequest(http.MethodPost, "/analytics/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTablesListIncludesStaticTables(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/analytics/tables", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MessageTable")
}
