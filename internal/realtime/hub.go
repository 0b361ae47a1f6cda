package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nutristreak/internal/services"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second

	KindAchievementUnlocked = "achievement.unlocked"
)

type Event struct {
	Kind        string    `json:"kind"`
	Achievement string    `json:"achievement"`
	Title       string    `json:"title,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

type client struct {
	userID int64
	conn   *websocket.Conn
	mu     sync.Mutex // gorilla allows one concurrent writer
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub fans events out to every open socket of a user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{clients: make(map[int64]map[*client]struct{}), logger: logger}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Clients returns the number of open sockets for userID.
func (h *Hub) Clients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and blocks until the socket closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	c := &client{userID: userID, conn: conn}
	h.register(c)

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					h.unregister(c)
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}

// Broadcast sends payload as JSON to every socket of userID.
func (h *Hub) Broadcast(userID int64, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode realtime event", zap.Error(err))
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("drop realtime client", zap.Int64("user_id", userID), zap.Error(err))
			h.unregister(c)
		}
	}
}

// NotifyAchievements implements services.Notifier.
func (h *Hub) NotifyAchievements(userID int64, awards []services.Award) {
	for _, a := range awards {
		ev := Event{Kind: KindAchievementUnlocked, Achievement: string(a.ID), EarnedAt: a.EarnedAt}
		if rule, ok := services.LookupAchievement(a.ID); ok {
			ev.Title = rule.Title
		}
		h.Broadcast(userID, ev)
	}
}
