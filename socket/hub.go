package socket

import (
	"encoding/json"
	"sync"

	"noticeboard/internal/notice/model"
	"noticeboard/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	NoticeCreatedType  = "NOTICE_CREATED"  // A notice was added to the board
	NoticeUpdatedType  = "NOTICE_UPDATED"  // Title or content changed
	NoticeDeletedType  = "NOTICE_DELETED"  // A notice was removed
	PresenceUpdateType = "PRESENCE_UPDATE" // A board viewer joined or left
)

type WSMessage struct {
	Type     string          `json:"type"`
	NoticeID string          `json:"notice_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type Presence struct {
	Viewers int `json:"viewers"`
}

// Hub fans board events out to every connected viewer. The client set is
// only mutated by Run, and every write to a client's Send channel happens
// there too, so Send is never written after it is closed.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	mu       sync.Mutex
	quit     chan struct{}
	stopOnce sync.Once
}

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()
			h.broadcastPresenceUpdate()

		case client := <-h.Unregister:
			if h.remove(client) {
				h.broadcastPresenceUpdate()
			}

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.sendAll(payload)
		}
	}
}

// Stop ends Run and closes every client's Send channel. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// PublishNoticeEvent queues a board event. It never blocks: when the queue
// is full the event is dropped, since viewers re-read the board anyway.
func (h *Hub) PublishNoticeEvent(eventType string, n model.Notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling notice %s for broadcast: %v", n.ID, err)
		return
	}
	msg := WSMessage{Type: eventType, NoticeID: n.ID, Payload: payload}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Board event %s for notice %s dropped: broadcast queue full", eventType, n.ID)
	}
}

func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[c]; !ok {
		return false
	}
	delete(h.Clients, c)
	close(c.Send)
	return true
}

func (h *Hub) sendAll(payload []byte) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	var lagging []*Client
	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
			logger.Sugar.Warnf("Board viewer send buffer is full. Disconnecting.")
			lagging = append(lagging, client)
		}
	}
	for _, client := range lagging {
		h.remove(client)
	}
	if len(lagging) > 0 {
		h.broadcastPresenceUpdate()
	}
}

func (h *Hub) broadcastPresenceUpdate() {
	payload, err := json.Marshal(Presence{Viewers: h.ViewerCount()})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, Payload: payload})
	h.sendAll(msg)
}
