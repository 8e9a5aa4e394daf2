package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pholzmann/pushhub/internal/config"
	"github.com/pholzmann/pushhub/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "0",
		LogLevel:            "error",
		LogFormat:           "text",
		PingInterval:        30 * time.Second,
		WriteTimeout:        5 * time.Second,
		MaxConnections:      100,
		MaxConnectionsPerIP: 10,
		ConnectionsPerSec:   1000,
		ConnectionBurst:     1000,
	}
}

func newTestServer(t *testing.T) (*Server, *hub.Hub) {
	t.Helper()
	clock := clockwork.NewRealClock()
	h := hub.NewHub(clock, 30*time.Second)
	t.Cleanup(h.Shutdown)
	return NewServer(testConfig(), h, clock), h
}

func postControl(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestControl_GetStatusEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postControl(t, srv, `{"action":"getStatus"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["clientCount"])
	assert.Equal(t, false, body["pingActive"])
}

func TestControl_GetStatusWithClients(t *testing.T) {
	srv, h := newTestServer(t)
	h.Register("u1", &nullSink{})
	h.Register("u2", &nullSink{})

	rec := postControl(t, srv, `{"action":"getStatus"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["clientCount"])
	assert.Equal(t, []any{"u1", "u2"}, body["connectedUsers"])
	assert.Equal(t, true, body["pingActive"])
}

func TestControl_SendToUser(t *testing.T) {
	srv, h := newTestServer(t)
	sink := &recordingSink{}
	h.Register("u1", sink)

	rec := postControl(t, srv, `{"action":"sendToUser","userKey":"u1","eventName":"x","payload":{"a":1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	require.Equal(t, []string{"connected", "x"}, sink.names())
}

func TestControl_SendToUserUnknownKeySucceeds(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postControl(t, srv, `{"action":"sendToUser","userKey":"ghost","eventName":"x","payload":{}}`)

	// Unknown users are a silent no-op, never an error.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestControl_Broadcast(t *testing.T) {
	srv, h := newTestServer(t)
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	h.Register("u1", sink1)
	h.Register("u2", sink2)

	rec := postControl(t, srv, `{"action":"broadcast","eventName":"alert","payload":{"msg":"fire"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"connected", "alert"}, sink1.names())
	assert.Equal(t, []string{"connected", "alert"}, sink2.names())
}

func TestControl_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing action", `{}`},
		{"unknown action", `{"action":"teleport"}`},
		{"sendToUser without userKey", `{"action":"sendToUser","eventName":"x","payload":{}}`},
		{"sendToUser without eventName", `{"action":"sendToUser","userKey":"u1","payload":{}}`},
		{"sendToUser without payload", `{"action":"sendToUser","userKey":"u1","eventName":"x"}`},
		{"broadcast without eventName", `{"action":"broadcast","payload":{}}`},
		{"broadcast without payload", `{"action":"broadcast","eventName":"x"}`},
		{"malformed JSON", `{"action":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postControl(t, srv, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}
