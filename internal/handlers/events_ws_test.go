package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birokt/smittevern/internal/events"
)

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/incidents"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestEventsWS_StreamsHubEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, s.token(t, regulatorActor)), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.hub.Publish(context.Background(), events.New(events.TypeIncidentReported, "inc-1", nil)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.TypeIncidentReported, got.Type)
	assert.Equal(t, "inc-1", got.IncidentUUID)

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsWS_Rejections(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"reporter", s.token(t, reporterActor("u1")), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.token), nil)
			if conn != nil {
				conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, s.hub.Subscribers())
}
