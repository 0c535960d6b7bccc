package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const communityChannel = "community:events"

// Community event types.
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostLiked      = "post_liked"
	EventPostPinned     = "post_pinned"
	EventCommentCreated = "comment_created"
)

// CommunityEvent is broadcast over Redis and WebSocket.
type CommunityEvent struct {
	Type      string    `json:"type"`
	PostID    string    `json:"post_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	Active    *bool     `json:"active,omitempty"`
	Count     *int      `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HubConn is the minimal interface a WebSocket connection must satisfy.
type HubConn interface {
	WriteJSON(v any) error
	Close() error
}

// CommunityHub fans community events out to connected clients. With Redis
// configured, events go through a pub/sub channel so every instance sees
// them; without it they are delivered to local connections only.
type CommunityHub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]HubConn

	redis *redis.Client
	log   *zap.SugaredLogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewCommunityHub(client *redis.Client, log *zap.SugaredLogger) *CommunityHub {
	return &CommunityHub{
		conns: make(map[uuid.UUID]HubConn),
		redis: client,
		log:   log,
	}
}

// Register adds a connection and returns its handle.
func (h *CommunityHub) Register(conn HubConn) uuid.UUID {
	id := uuid.New()
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return id
}

// Unregister removes a connection.
func (h *CommunityHub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Connections returns the number of local connections.
func (h *CommunityHub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish broadcasts an event. Failures are logged, never returned: the
// write that produced the event has already been committed.
func (h *CommunityHub) Publish(ctx context.Context, event CommunityEvent) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = utcNow()
	}
	if h.redis == nil {
		h.fanOut(event)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Errorw("community: marshal event", "error", err)
		return
	}
	if err := h.redis.Publish(ctx, communityChannel, data).Err(); err != nil {
		h.log.Warnw("community: redis publish failed, delivering locally", "error", err)
		h.fanOut(event)
	}
}

// fanOut writes the event to every local connection. Connections that fail
// are closed and dropped.
func (h *CommunityHub) fanOut(event CommunityEvent) {
	h.mu.RLock()
	targets := make(map[uuid.UUID]HubConn, len(h.conns))
	for id, c := range h.conns {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.WriteJSON(event); err != nil {
			h.log.Debugw("community: dropping connection", "conn", id, "error", err)
			_ = c.Close()
			h.Unregister(id)
		}
	}
}

// Start runs the Redis subscriber until Stop is called or ctx ends. It is a
// no-op without Redis.
func (h *CommunityHub) Start(ctx context.Context) {
	if h.redis == nil {
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.subscribe(ctx)
	}()
}

// Stop ends the subscriber and closes every connection.
func (h *CommunityHub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		_ = c.Close()
		delete(h.conns, id)
	}
}

func (h *CommunityHub) subscribe(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		func() {
			pubsub := h.redis.Subscribe(ctx, communityChannel)
			defer pubsub.Close()

			h.log.Infow("community subscriber started", "channel", communityChannel)
			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					h.log.Warnw("community subscriber error", "error", err, "retry_in", backoff.String())
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var event CommunityEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.log.Warnw("community: bad event payload", "error", err)
					continue
				}
				h.fanOut(event)
			}
		}()
	}
}
