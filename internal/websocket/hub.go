package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"rtls-go-server/internal/data"
)

// Hub maintains the set of connected console clients and broadcasts data
// updates and alerts to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			log.Printf("WebSocket client registered: %s", client.Conn.RemoteAddr())
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WebSocket client unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Blocked or gone, drop it.
					log.Printf("WebSocket client %s send buffer full, removing", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient hands a new connection to the hub loop.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type snapshotPayload struct {
	Devices []*data.Device `json:"devices"`
	Alerts  []*data.Alert  `json:"alerts"`
}

// NotifySnapshot pushes the post-tick fleet state to every client, so the
// consoles update without polling.
func (h *Hub) NotifySnapshot(devices []*data.Device, alerts []*data.Alert) {
	h.send(envelope{Type: "snapshot", Payload: snapshotPayload{Devices: devices, Alerts: alerts}})
}

// NotifyAlert pushes a single freshly raised alert.
func (h *Hub) NotifyAlert(a *data.Alert) {
	h.send(envelope{Type: "alert", Payload: a})
}

func (h *Hub) send(env envelope) {
	messageBytes, err := json.Marshal(env)
	if err != nil {
		log.Printf("Error marshalling %s broadcast: %v", env.Type, err)
		return
	}
	h.broadcast <- messageBytes
}
