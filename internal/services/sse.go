package services

import (
	"sync"
)

type sseClient struct {
	ch        chan WorkflowEvent
	projectID uint
}

// wants reports whether the client follows the event. A client scoped to a
// project only receives that project's events; task events carry no project
// and go to unscoped clients only.
func (c *sseClient) wants(event WorkflowEvent) bool {
	return c.projectID == 0 || c.projectID == event.ProjectID
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]*sseClient
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*sseClient),
	}
}

// Subscribe registers a new client and returns a channel for receiving
// events. projectID 0 follows every project.
func (h *SSEHub) Subscribe(clientID string, projectID uint) <-chan WorkflowEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &sseClient{ch: make(chan WorkflowEvent, 100), projectID: projectID}
	h.clients[clientID] = c
	return c.ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to the clients following it. Slow clients
// with a full buffer miss the event.
func (h *SSEHub) Publish(event WorkflowEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}
