package alarmack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opserver/internal/apierr"
)

func encodeToken(t *testing.T, hostIP string, port int, ts int64) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"host_ip": hostIP, "http_port": port, "timestamp": ts,
	})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecodeTokenRejectsMissingFields(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"host_ip":"10.0.0.1"}`))
	_, err := decodeToken(raw)
	require.Error(t, err)
	assert.True(t, apierr.As(err, apierr.KindInvalidInput))
}

func TestDecodeTokenRejectsMalformedBase64(t *testing.T) {
	_, err := decodeToken("not-base64!!")
	require.Error(t, err)
	assert.True(t, apierr.As(err, apierr.KindInvalidInput))
}

func TestForwardSuccessMapsToNilError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "true"})
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	f := NewForwarder(2 * time.Second)
	tok := encodeToken(t, host, port, time.Now().Unix())
	err = f.Forward(context.Background(), AckRequest{Table: "T", Name: "n", Type: "ty", Token: tok})
	assert.NoError(t, err)
}

func TestForwardFalseStatusMapsToEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "false", "error": "unknown alarm"})
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	f := NewForwarder(2 * time.Second)
	tok := encodeToken(t, host, port, time.Now().Unix())
	err = f.Forward(context.Background(), AckRequest{Table: "T", Name: "n", Type: "ty", Token: tok})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apierr.HTTPStatus(err))
}

func splitHostPort(t *testing.T, url string) (string, string) {
	t.Helper()
	trimmed := strings.TrimPrefix(url, "http://")
	parts := strings.Split(trimmed, ":")
	require.Len(t, parts, 2)
	return parts[0], parts[1]
}
