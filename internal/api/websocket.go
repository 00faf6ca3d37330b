package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"arena-duel/internal/connpolicy"
	"arena-duel/internal/delta"
	"arena-duel/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 1200

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 4

	// watchdogInterval is how often the hub sweeps tracked players for
	// connection-policy decisions.
	watchdogInterval = time.Second

	writeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// No Origin header means a non-browser client; the browser
		// cross-origin attack this check guards against does not apply.
		if origin == "" || IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// clientMessage is the envelope clients send over the socket.
type clientMessage struct {
	Type   string      `json:"type"` // "intent" | "heartbeat" | "forfeit" | "resync"
	Intent game.Intent `json:"intent,omitempty"`
}

// serverMessage is the envelope sent to clients.
type serverMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsClient is one connected player's socket.
type wsClient struct {
	conn     *websocket.Conn
	playerID string
	matchID  string
	ip       string

	sendMu sync.Mutex
}

func (c *wsClient) send(msg serverMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// MatchRouter is what the hub needs from the registry.
type MatchRouter interface {
	MatchForPlayer(playerID string) (*game.Match, error)
	SubmitIntent(it game.Intent) error
	Forfeit(playerID string) error
	NotifyDisconnect(playerID string)
	RequestResync(playerID string) error
}

// Hub owns every player socket and is the single delivery path for state
// deltas and discrete events. It satisfies game.Broadcaster. One hub serves
// all matches; clients are indexed by player and grouped by match.
type Hub struct {
	mu          sync.RWMutex
	byPlayer    map[string]*wsClient
	byMatch     map[string]map[string]*wsClient // matchID -> playerID -> client
	reconnectBy map[string]time.Time            // rejoin deadlines for players cut by policy

	router      MatchRouter
	coordinator *connpolicy.Coordinator
	reconnect   time.Duration

	wsLimiter *WebSocketRateLimiter

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHub creates the hub. Background loops do not start until Run.
func NewHub(router MatchRouter, coordinator *connpolicy.Coordinator, reconnectWindow time.Duration) *Hub {
	return &Hub{
		byPlayer:    make(map[string]*wsClient),
		byMatch:     make(map[string]map[string]*wsClient),
		reconnectBy: make(map[string]time.Time),
		router:      router,
		coordinator: coordinator,
		reconnect:   reconnectWindow,
		wsLimiter:   NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:    make(chan struct{}),
	}
}

// Run starts the connection-policy watchdog. Blocks until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case now := <-ticker.C:
			h.sweep(now)
		}
	}
}

// Stop halts the watchdog.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// sweep applies one round of connection-policy decisions and reconnect
// deadlines.
func (h *Hub) sweep(now time.Time) {
	for _, pid := range h.coordinator.TrackedPlayers() {
		d := h.coordinator.ShouldDisconnect(pid)
		if !d.Disconnect {
			continue
		}
		// The policy grace period extends the rejoin deadline, not the
		// disconnect decision itself.
		h.sever(pid, d.Reason, now.Add(h.reconnect+d.Policy.GracePeriod))
	}

	// Severed players who never came back forfeit their match.
	h.mu.Lock()
	var expired []string
	for pid, deadline := range h.reconnectBy {
		if now.After(deadline) {
			expired = append(expired, pid)
			delete(h.reconnectBy, pid)
		}
	}
	h.mu.Unlock()

	for _, pid := range expired {
		log.Printf("player %s reconnect window expired, forfeiting", pid)
		h.coordinator.UnregisterPlayer(pid)
		h.router.NotifyDisconnect(pid)
	}
}

// sever cuts one player's socket for a policy reason and opens its
// reconnect window until the given deadline. Idempotent while the window
// is pending.
func (h *Hub) sever(playerID, reason string, rejoinBy time.Time) {
	h.mu.Lock()
	client, connected := h.byPlayer[playerID]
	if connected {
		h.detachLocked(client)
	}
	_, pending := h.reconnectBy[playerID]
	if !pending {
		h.reconnectBy[playerID] = rejoinBy
	}
	h.mu.Unlock()

	if connected {
		client.conn.Close()
	}
	if pending && !connected {
		return
	}

	RecordDisconnectDecision(reason)
	log.Printf("player %s severed by connection policy: %s", playerID, reason)

	if m, err := h.router.MatchForPlayer(playerID); err == nil {
		h.BroadcastEvent(m.ID, game.EventPlayerDisconnected, map[string]any{
			"playerId": playerID,
			"reason":   reason,
		})
	}
}

// HandleWebSocket upgrades a player connection. Players identify with
// playerId; the match is resolved through the registry, so a socket for an
// unknown or retired match is refused before the upgrade.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.byPlayer)
	h.mu.RUnlock()

	if total >= MaxWSConnectionsTotal {
		log.Printf("websocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "playerId is required", http.StatusBadRequest)
		return
	}

	m, err := h.router.MatchForPlayer(playerID)
	if err != nil {
		http.Error(w, "player is not in a match", http.StatusNotFound)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("websocket connection rejected from %s: per-IP limit reached", ip)
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{conn: conn, playerID: playerID, matchID: m.ID, ip: ip}
	rejoined := h.attach(client)

	h.coordinator.RegisterPlayer(playerID, m.ID)
	h.coordinator.UpdatePlayerHeartbeat(playerID)

	// Every join gets a full snapshot next tick; a plain incremental would
	// be meaningless to a fresh session.
	h.router.RequestResync(playerID)

	if rejoined {
		h.BroadcastEvent(m.ID, game.EventPlayerReconnected, map[string]any{
			"playerId": playerID,
		})
	}

	go h.readLoop(client)
}

// attach registers the client, replacing any previous socket for the same
// player. Reports whether this closes a pending reconnect window.
func (h *Hub) attach(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.byPlayer[client.playerID]; ok {
		h.detachLocked(prev)
		prev.conn.Close()
	}

	h.byPlayer[client.playerID] = client
	if h.byMatch[client.matchID] == nil {
		h.byMatch[client.matchID] = make(map[string]*wsClient)
	}
	h.byMatch[client.matchID][client.playerID] = client

	_, rejoined := h.reconnectBy[client.playerID]
	delete(h.reconnectBy, client.playerID)

	UpdateWSConnections(len(h.byPlayer))
	log.Printf("player %s connected to match %s from %s (%d total)",
		client.playerID, client.matchID, client.ip, len(h.byPlayer))
	return rejoined
}

func (h *Hub) detachLocked(client *wsClient) {
	if cur, ok := h.byPlayer[client.playerID]; !ok || cur != client {
		return
	}
	h.wsLimiter.Release(client.ip)
	delete(h.byPlayer, client.playerID)
	if group, ok := h.byMatch[client.matchID]; ok {
		delete(group, client.playerID)
		if len(group) == 0 {
			delete(h.byMatch, client.matchID)
		}
	}
	UpdateWSConnections(len(h.byPlayer))
}

func (h *Hub) readLoop(client *wsClient) {
	defer func() {
		h.mu.Lock()
		h.detachLocked(client)
		h.mu.Unlock()
		client.conn.Close()
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "heartbeat":
			h.coordinator.UpdatePlayerHeartbeat(client.playerID)

		case "intent":
			// Any traffic proves liveness, not just explicit heartbeats.
			h.coordinator.UpdatePlayerHeartbeat(client.playerID)
			msg.Intent.PlayerID = client.playerID
			if err := h.router.SubmitIntent(msg.Intent); err != nil {
				client.send(serverMessage{Event: "error", Data: err.Error()})
			}

		case "forfeit":
			if err := h.router.Forfeit(client.playerID); err != nil {
				client.send(serverMessage{Event: "error", Data: err.Error()})
			}

		case "resync":
			h.coordinator.UpdatePlayerHeartbeat(client.playerID)
			h.router.RequestResync(client.playerID)
		}
	}
}

// =============================================================================
// game.Broadcaster implementation
// =============================================================================

// BroadcastDelta ships one state sync payload to every socket in a match.
func (h *Hub) BroadcastDelta(matchID string, d *delta.Delta) {
	RecordDelta(string(d.Header.DeltaType))

	h.mu.RLock()
	group := h.byMatch[matchID]
	clients := make([]*wsClient, 0, len(group))
	for _, c := range group {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(serverMessage{Event: "state:delta", Data: d}); err != nil {
			// Dead socket; the read loop notices the close and detaches.
			c.conn.Close()
			continue
		}
		IncrementWSMessages()
	}
}

// BroadcastEvent ships a discrete event to every socket in a match.
func (h *Hub) BroadcastEvent(matchID string, event game.EventType, payload any) {
	h.mu.RLock()
	group := h.byMatch[matchID]
	clients := make([]*wsClient, 0, len(group))
	for _, c := range group {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(serverMessage{Event: string(event), Data: payload}); err != nil {
			c.conn.Close()
			continue
		}
		IncrementWSMessages()
	}
}

// SendToPlayer ships an event to one player's socket, if connected.
func (h *Hub) SendToPlayer(playerID string, event game.EventType, payload any) {
	h.mu.RLock()
	client, ok := h.byPlayer[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := client.send(serverMessage{Event: string(event), Data: payload}); err != nil {
		client.conn.Close()
		return
	}
	IncrementWSMessages()
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byPlayer)
}
