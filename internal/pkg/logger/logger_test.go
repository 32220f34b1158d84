package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLogger(t *testing.T) {
	l, err := CreateLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, l.Logger)

	_, err = CreateLogger("not-a-level")
	assert.Error(t, err)
}

func TestTransportAddsRequestID(t *testing.T) {
	var seen string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	client := &http.Client{Transport: Nop().Transport(nil)}
	resp, err := client.Get(backend.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, seen, 36)
}

func TestTransportKeepsCallerRequestID(t *testing.T) {
	var seen string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	defer backend.Close()

	req, err := http.NewRequest(http.MethodGet, backend.URL, nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed")

	client := &http.Client{Transport: Nop().Transport(nil)}
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "fixed", seen)
}

func TestWithLogging(t *testing.T) {
	h := Nop().WithLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
