package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/models"
)

// SnapshotFunc produces the initial payload pushed to a connection right
// after it attaches, so the client renders state without waiting for the
// first live event.
type SnapshotFunc func(ctx context.Context, userID uuid.UUID) (interface{}, error)

// Hub bridges redis pubsub to websocket connections. Each user gets one
// subscription on their channel no matter how many tabs they have open;
// every message fans out to all of that user's connections.
type Hub struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader
	snapshot SnapshotFunc

	mu          sync.Mutex
	connections map[uuid.UUID][]*websocket.Conn
	cancels     map[uuid.UUID]context.CancelFunc
}

func NewHub(rdb *redis.Client, frontendURL string, snapshot SnapshotFunc) *Hub {
	return &Hub{
		rdb: rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == frontendURL
			},
		},
		snapshot:    snapshot,
		connections: make(map[uuid.UUID][]*websocket.Conn),
		cancels:     make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for %s: %v", userID, err)
		return
	}

	h.register(userID, conn)
	h.sendSnapshot(r.Context(), userID, conn)

	// Reads are only for detecting the close; clients talk to the REST API.
	go func() {
		defer h.unregister(userID, conn)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)
	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancels[userID] = cancel
		go h.listen(ctx, userID)
	}
}

func (h *Hub) unregister(userID uuid.UUID, conn *websocket.Conn) {
	conn.Close()

	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancels[userID]; ok {
			cancel()
			delete(h.cancels, userID)
		}
	}
}

func (h *Hub) listen(ctx context.Context, userID uuid.UUID) {
	sub := h.rdb.Subscribe(ctx, "user_updates:"+userID.String())
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.SendToUser(userID, []byte(msg.Payload))
		}
	}
}

// SendToUser writes raw JSON to every open connection of one user. Dead
// connections are cleaned up by their read loops.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.connections[userID]...)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write to %s failed: %v", userID, err)
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) {
	if h.snapshot == nil {
		return
	}

	payload, err := h.snapshot(ctx, userID)
	if err != nil {
		log.Printf("failed to build snapshot for %s: %v", userID, err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(models.WSMessage{Type: "watchlist_snapshot", Payload: payload}); err != nil {
		log.Printf("failed to send snapshot to %s: %v", userID, err)
	}
}

// Shutdown closes every connection and subscription.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, conn := range conns {
			conn.Close()
		}
		if cancel, ok := h.cancels[userID]; ok {
			cancel()
		}
		delete(h.connections, userID)
		delete(h.cancels, userID)
	}
}
