// Package monitoring runs the operations feed: a small side server that
// streams workflow transitions and health alerts to websocket clients.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"ewaste-backend/internal/health"
	"ewaste-backend/internal/workflow"
)

// maxEvents bounds the in-memory backlog served by /api/events.
const maxEvents = 200

type Event struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RequestID int       `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type MonitoringServer struct {
	checker  *health.HealthChecker
	port     int
	interval time.Duration

	eventsMux sync.RWMutex
	events    []Event
	nextID    int

	clientsMux sync.Mutex
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewMonitoringServer(checker *health.HealthChecker, port int) *MonitoringServer {
	return &MonitoringServer{
		checker:   checker,
		port:      port,
		interval:  30 * time.Second,
		events:    make([]Event, 0),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 64),
	}
}

// Router exposes the feed's routes.
func (ms *MonitoringServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/stats", ms.getStats).Methods("GET")
	r.HandleFunc("/api/events", ms.getEvents).Methods("GET")
	r.HandleFunc("/ws", ms.handleWebSocket)
	return r
}

// Start serves the feed until ctx is cancelled.
func (ms *MonitoringServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", ms.port),
		Handler:           ms.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go ms.handleBroadcast(ctx)
	go ms.monitorHealth(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[Monitoring] Ops feed running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ObserveTransition is registered as a workflow observer.
func (ms *MonitoringServer) ObserveTransition(t workflow.Transition) {
	from := "none"
	if t.From != nil {
		from = string(*t.From)
	}
	ms.publish(Event{
		Severity:  "info",
		Type:      "transition",
		Message:   fmt.Sprintf("request %d: %s -> %s", t.RequestID, from, t.To),
		RequestID: t.RequestID,
		Timestamp: t.At,
	})
}

// publish records e and queues it for websocket clients. Slow consumers do
// not block the caller; the event is still kept in the backlog.
func (ms *MonitoringServer) publish(e Event) {
	ms.eventsMux.Lock()
	ms.nextID++
	e.ID = ms.nextID
	ms.events = append(ms.events, e)
	if len(ms.events) > maxEvents {
		ms.events = ms.events[len(ms.events)-maxEvents:]
	}
	ms.eventsMux.Unlock()

	select {
	case ms.broadcast <- e:
	default:
		log.Printf("[Monitoring] broadcast queue full, dropped event %d", e.ID)
	}
}

func (ms *MonitoringServer) Events() []Event {
	ms.eventsMux.RLock()
	defer ms.eventsMux.RUnlock()
	out := make([]Event, len(ms.events))
	copy(out, ms.events)
	return out
}

func (ms *MonitoringServer) getStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ms.checker.CheckDetailed(r.Context()))
}

func (ms *MonitoringServer) getEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ms.Events())
}

func (ms *MonitoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Monitoring] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ms.clientsMux.Lock()
	ms.clients[conn] = true
	ms.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			ms.clientsMux.Lock()
			delete(ms.clients, conn)
			ms.clientsMux.Unlock()
			return
		}
	}
}

func (ms *MonitoringServer) handleBroadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ms.broadcast:
			ms.clientsMux.Lock()
			for client := range ms.clients {
				client.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := client.WriteJSON(e); err != nil {
					client.Close()
					delete(ms.clients, client)
				}
			}
			ms.clientsMux.Unlock()
		}
	}
}

func (ms *MonitoringServer) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(ms.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.checkOnce(ctx)
		}
	}
}

func (ms *MonitoringServer) checkOnce(ctx context.Context) {
	status := ms.checker.CheckBasic(ctx)
	if status.Database.Status != "healthy" {
		ms.publish(Event{
			Severity:  "critical",
			Type:      "database_down",
			Message:   "Database is unreachable: " + status.Database.Error,
			Timestamp: time.Now(),
		})
		return
	}
	if status.Database.ResponseTime > 1000 {
		ms.publish(Event{
			Severity:  "warning",
			Type:      "high_latency",
			Message:   fmt.Sprintf("Database response time: %dms", status.Database.ResponseTime),
			Timestamp: time.Now(),
		})
	}
}
