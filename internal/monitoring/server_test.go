package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/health"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newServer(ping error) *MonitoringServer {
	checker := health.NewHealthChecker(pingFunc(func(context.Context) error { return ping }), "sqlite")
	return NewMonitoringServer(checker, 0)
}

func TestObserveTransitionStreamsToClients(t *testing.T) {
	ms := newServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ms.handleBroadcast(ctx)

	srv := httptest.NewServer(ms.Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the server to register the client.
	require.Eventually(t, func() bool {
		ms.clientsMux.Lock()
		defer ms.clientsMux.Unlock()
		return len(ms.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	from := models.StatusPending
	ms.ObserveTransition(workflow.Transition{RequestID: 4, From: &from, To: models.StatusProcessing, At: time.Now()})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "transition", got.Type)
	assert.Equal(t, 4, got.RequestID)
	assert.Equal(t, "request 4: pending -> processing", got.Message)
}

func TestEventsEndpointAndBacklogBound(t *testing.T) {
	ms := newServer(nil)
	for i := 0; i < maxEvents+5; i++ {
		ms.ObserveTransition(workflow.Transition{RequestID: i + 1, To: models.StatusPending, At: time.Now()})
	}

	rec := httptest.NewRecorder()
	ms.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var events []Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, maxEvents)
	assert.Equal(t, 6, events[0].ID)
	assert.Equal(t, "request 6: none -> pending", events[0].Message)
}

func TestCheckOnceRaisesDatabaseAlert(t *testing.T) {
	ms := newServer(errors.New("dial tcp: refused"))
	ms.checkOnce(context.Background())

	events := ms.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "critical", events[0].Severity)
	assert.Equal(t, "database_down", events[0].Type)

	healthy := newServer(nil)
	healthy.checkOnce(context.Background())
	assert.Empty(t, healthy.Events())
}
