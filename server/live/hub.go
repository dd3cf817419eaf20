// Package live fans new-post events out to websocket subscribers. Delivery is
// best effort: slow clients miss events rather than blocking writers.
package live

import (
	"encoding/json"
	"sync"
)

type PostEvent struct {
	Type         string `json:"type"`
	ForumID      string `json:"forum"`
	TopicID      string `json:"topic"`
	PostID       string `json:"post"`
	PostPublicID int64  `json:"post_id"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*Client]bool{},
	}
}

func (h *Hub) join(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
}

func (h *Hub) leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
}

// PublishPostCreated broadcasts the event to every connected client.
func (h *Hub) PublishPostCreated(forumID, topicID, postID string, postPublicID int64) {
	event := PostEvent{
		Type:         "post_created",
		ForumID:      forumID,
		TopicID:      topicID,
		PostID:       postID,
		PostPublicID: postPublicID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}
