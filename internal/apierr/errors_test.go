package apierr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapsEngineErrno(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(EngineFailure(-EBADMSG)))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(EngineFailure(-ENOBUFS)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(EngineFailure(-EINVAL)))
	assert.Equal(t, http.StatusGone, HTTPStatus(EngineFailure(-ENOENT)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(EngineFailure(-EIO)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(EngineFailure(-EBUSY)))
}

func TestHTTPStatusMapsKinds(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(New(KindNetworkUnavailable, "down")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(New(KindQueryEngineUnavailable, "no ack")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(KindInvalidInput, "bad")))
	assert.Equal(t, http.StatusGone, HTTPStatus(New(KindNotFound, "gone")))
	assert.Equal(t, http.StatusOK, HTTPStatus(New(KindConflict, "running")))
}

func TestAs(t *testing.T) {
	err := Wrap(KindTransient, assertErr{}, "reconnect")
	assert.True(t, As(err, KindTransient))
	assert.False(t, As(err, KindConflict))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
