// Package realtime pushes inbox changes to connected agent dashboards over
// websockets. Delivery is best effort: the store is the source of truth and
// a reconnecting client re-reads it through the REST API.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"inboxd/internal/metrics"
	"inboxd/internal/models"
)

const (
	// EventConversation announces a created or updated conversation.
	EventConversation = "conversation"
	// EventMessage announces a stored message.
	EventMessage = "message"

	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
)

// Event is the wire shape pushed to subscribers.
type Event struct {
	Type         string               `json:"type"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
	Message      *models.Message      `json:"message,omitempty"`
}

type subscriber struct {
	events    chan []byte
	closeSlow func()
}

// Hub fans broadcast events out to all connected subscribers. A subscriber
// that cannot keep up is disconnected rather than allowed to block the rest.
type Hub struct {
	logger *logrus.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// ConversationUpserted implements service.Notifier.
func (h *Hub) ConversationUpserted(conv *models.Conversation) {
	h.broadcast(Event{Type: EventConversation, Conversation: conv})
}

// MessageCreated implements service.Notifier.
func (h *Hub) MessageCreated(msg *models.Message) {
	h.broadcast(Event{Type: EventMessage, Message: msg})
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal realtime event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subscribers {
		select {
		case s.events <- payload:
		default:
			go s.closeSlow()
		}
	}
}

func (h *Hub) addSubscriber(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()
	metrics.SetGauge("realtime_subscribers", float64(count))
}

func (h *Hub) removeSubscriber(s *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	count := len(h.subscribers)
	h.mu.Unlock()
	metrics.SetGauge("realtime_subscribers", float64(count))
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	if err := h.stream(r.Context(), conn); err != nil {
		status := websocket.CloseStatus(err)
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			return
		}
		if r.Context().Err() != nil {
			return
		}
		h.logger.WithError(err).Debug("Websocket session ended")
	}
}

func (h *Hub) stream(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &subscriber{
		events:    make(chan []byte, subscriberBuffer),
		closeSlow: func() { cancel() },
	}
	h.addSubscriber(s)
	defer h.removeSubscriber(s)

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-s.events:
			if err := writeWithTimeout(ctx, conn, payload); err != nil {
				return err
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
