package broadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Client - 룸에 붙은 websocket 구독자
type Client struct {
	conn     *websocket.Conn
	clientID string
	jobID    string
	send     chan []byte
}

// Room - 잡 하나의 구독자 모음
type Room struct {
	jobID        string
	clients      map[string]*Client
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// HubMetrics - 서버 메트릭
type HubMetrics struct {
	TotalRooms       int       `json:"totalRooms"`
	ActiveRooms      int       `json:"activeRooms"`
	TotalConnections int       `json:"totalConnections"`
	EventsPublished  int64     `json:"eventsPublished"`
	StartTime        time.Time `json:"startTime"`
	mutex            sync.RWMutex
}

// Hub - 잡 ID 기준 룸 관리 + 이벤트 팬아웃
// 전달은 best-effort: 버퍼가 찬 클라이언트는 끊고, 히스토리 리플레이는 없다
type Hub struct {
	rooms   map[string]*Room
	mutex   sync.RWMutex
	metrics *HubMetrics
	streams *streamRegistry
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
		metrics: &HubMetrics{
			StartTime: time.Now(),
		},
		streams: newStreamRegistry(),
	}
}

// Publish - 이벤트를 해당 잡 룸의 모든 클라이언트와 스트림 구독자에게 전달
// 직렬화는 한 번만, 느린 소비자 때문에 생성 파이프라인이 멈추는 일은 없다
func (h *Hub) Publish(event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [Hub] Failed to marshal event: %v", err)
		return
	}

	h.metrics.mutex.Lock()
	h.metrics.EventsPublished++
	h.metrics.mutex.Unlock()

	h.mutex.RLock()
	room, exists := h.rooms[event.JobID]
	h.mutex.RUnlock()

	if exists {
		room.deliver(messageBytes)
	}

	h.streams.deliver(event, messageBytes)
}

// deliver - 룸 내 전달, 버퍼 가득 찬 클라이언트는 끊어버림
func (room *Room) deliver(messageBytes []byte) {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	room.lastActivity = time.Now()

	for clientID, client := range room.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(room.clients, clientID)
			log.Printf("⚠️ [Hub] Dropped slow client %s from room %s", clientID, room.jobID)
		}
	}
}

// getOrCreateRoom - 룸 가져오기 또는 생성
func (h *Hub) getOrCreateRoom(jobID string) *Room {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[jobID]
	if !exists {
		now := time.Now()
		room = &Room{
			jobID:        jobID,
			clients:      make(map[string]*Client),
			createdAt:    now,
			lastActivity: now,
		}
		h.rooms[jobID] = room

		h.metrics.mutex.Lock()
		h.metrics.TotalRooms++
		h.metrics.ActiveRooms++
		h.metrics.mutex.Unlock()

		log.Printf("✅ [Hub] Created room for job %s", jobID)
	}

	room.lastActivity = time.Now()
	return room
}

func (room *Room) addClient(client *Client) {
	room.mutex.Lock()
	room.clients[client.clientID] = client
	room.lastActivity = time.Now()
	clientCount := len(room.clients)
	room.mutex.Unlock()

	log.Printf("👤 [Hub] Client %s joined room %s (clients: %d)", client.clientID, room.jobID, clientCount)
}

func (room *Room) removeClient(clientID string) {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	if client, exists := room.clients[clientID]; exists {
		close(client.send)
		delete(room.clients, clientID)
		log.Printf("👋 [Hub] Client %s left room %s (remaining: %d)", clientID, room.jobID, len(room.clients))
	}
}

// HandleWebSocket - GET /ws?job=<jobId>
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		http.Error(w, "job parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Hub] WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		clientID: uuid.NewString(),
		jobID:    jobID,
		send:     make(chan []byte, 256),
	}

	log.Printf("🔍 [Hub] New WebSocket connection - Job: %s, Client: %s", jobID, client.clientID)

	room := h.getOrCreateRoom(jobID)
	room.addClient(client)

	h.metrics.mutex.Lock()
	h.metrics.TotalConnections++
	h.metrics.mutex.Unlock()

	go client.writePump()
	go client.readPump(room)
}

// readPump - 클라이언트는 푸시 전용이라 보낸 내용은 버리고 연결 종료만 감지한다
func (c *Client) readPump(room *Room) {
	defer func() {
		room.removeClient(c.clientID)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ [Hub] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump - send 채널의 메시지를 순서대로 밀어냄
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("⚠️ [Hub] WebSocket write error: %v", err)
			return
		}
	}

	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// cleanupEmptyRooms - 빈 룸 정리
func (h *Hub) cleanupEmptyRooms() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for jobID, room := range h.rooms {
		room.mutex.RLock()
		isEmpty := len(room.clients) == 0
		isStale := time.Since(room.lastActivity) > 2*time.Hour
		room.mutex.RUnlock()

		if isEmpty && isStale {
			delete(h.rooms, jobID)
			cleaned++

			h.metrics.mutex.Lock()
			h.metrics.ActiveRooms--
			h.metrics.mutex.Unlock()
		}
	}

	if cleaned > 0 {
		log.Printf("🧹 [Hub] Cleaned up %d stale rooms", cleaned)
	}
}

// StartCleanupRoutine - 정기 룸 정리
func (h *Hub) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupEmptyRooms()
		}
	}()

	log.Println("🔄 [Hub] Started room cleanup routine (5min)")
}

// HandleRoomInfo - GET /api/rooms/{jobId}
func (h *Hub) HandleRoomInfo(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	h.mutex.RLock()
	room, exists := h.rooms[jobID]
	h.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Room not found"})
		return
	}

	room.mutex.RLock()
	clientCount := len(room.clients)
	room.mutex.RUnlock()

	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobId":        jobID,
		"clientCount":  clientCount,
		"createdAt":    room.createdAt,
		"lastActivity": room.lastActivity,
	})
}

// HandleMetrics - GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.mutex.RLock()
	uptime := time.Since(h.metrics.StartTime)
	totalRooms := h.metrics.TotalRooms
	activeRooms := h.metrics.ActiveRooms
	totalConnections := h.metrics.TotalConnections
	eventsPublished := h.metrics.EventsPublished
	h.metrics.mutex.RUnlock()

	h.mutex.RLock()
	currentClients := 0
	for _, room := range h.rooms {
		room.mutex.RLock()
		currentClients += len(room.clients)
		room.mutex.RUnlock()
	}
	h.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime":           uptime.String(),
		"totalRooms":       totalRooms,
		"activeRooms":      activeRooms,
		"totalConnections": totalConnections,
		"eventsPublished":  eventsPublished,
		"currentClients":   currentClients,
		"streamClients":    h.streams.count(),
	})
}
