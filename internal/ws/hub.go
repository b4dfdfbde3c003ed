package ws

import (
	"encoding/json"
	"log"

	"github.com/pliu/chainchat/internal/core"
)

type scope int

const (
	scopeAll scope = iota
	scopeRoom
	scopeOthers
)

// outbound is one frame queued for fan-out, with the audience it targets.
type outbound struct {
	scope   scope
	room    string
	exclude *Client
	payload []byte
}

// Hub owns the client registry. All access to the clients map happens inside
// Run, so registration, unregistration and fan-out never race.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Frames queued for fan-out.
	outbound chan outbound
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case out := <-h.outbound:
			for client := range h.clients {
				switch out.scope {
				case scopeRoom:
					if client.Room() != out.room {
						continue
					}
				case scopeOthers:
					if client == out.exclude {
						continue
					}
				}
				select {
				case client.send <- out.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast sends v to every connected client.
func (h *Hub) Broadcast(v any) {
	h.enqueue(outbound{scope: scopeAll, payload: marshal(v)})
}

// BroadcastRoom sends v to every client currently in room.
func (h *Hub) BroadcastRoom(room string, v any) {
	h.enqueue(outbound{scope: scopeRoom, room: room, payload: marshal(v)})
}

// BroadcastOthers sends v to every client except the acting session.
func (h *Hub) BroadcastOthers(s core.Session, v any) {
	exclude, _ := s.(*Client)
	h.enqueue(outbound{scope: scopeOthers, exclude: exclude, payload: marshal(v)})
}

func (h *Hub) enqueue(out outbound) {
	if out.payload == nil {
		return
	}
	h.outbound <- out
}

func marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling outbound frame: %v", err)
		return nil
	}
	return b
}
