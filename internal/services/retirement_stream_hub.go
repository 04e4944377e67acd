package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RetirementChannel carries retirement outcomes between the api and worker processes.
const RetirementChannel = "listings:retired"

// RetirementEvent is the wire form of a finished retirement.
type RetirementEvent struct {
	ListingID   string    `json:"listing_id"`
	OwnerID     string    `json:"owner_id"`
	CropName    string    `json:"crop_name"`
	Intervals   int64     `json:"intervals"`
	Deleted     bool      `json:"deleted"`
	Notified    bool      `json:"notified"`
	Uncached    bool      `json:"uncached"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewRetirementEvent flattens a retirement outcome.
func NewRetirementEvent(r lifecycle.Retirement) RetirementEvent {
	return RetirementEvent{
		ListingID:   r.Listing.ID,
		OwnerID:     r.Listing.OwnerID,
		CropName:    r.Listing.CropName,
		Intervals:   r.Listing.Quote.Intervals,
		Deleted:     r.DeleteErr == nil,
		Notified:    r.NotifyErr == nil,
		Uncached:    r.UncacheErr == nil,
		CompletedAt: r.CompletedAt,
	}
}

// RetirementPublisher publishes retirement outcomes to Redis. It is a lifecycle.Observer.
type RetirementPublisher struct {
	redis   *redis.Client
	timeout time.Duration
}

func NewRetirementPublisher(redis *redis.Client) *RetirementPublisher {
	return &RetirementPublisher{redis: redis, timeout: 2 * time.Second}
}

// ObserveRetirement implements lifecycle.Observer
func (p *RetirementPublisher) ObserveRetirement(r lifecycle.Retirement) {
	payload, err := json.Marshal(NewRetirementEvent(r))
	if err != nil {
		logger.Error("RetirementPublisher: marshal failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.redis.Publish(ctx, RetirementChannel, payload).Err(); err != nil {
		logger.Error("RetirementPublisher: publish for listing %s failed: %v", r.Listing.ID, err)
	}
}

// RetirementStreamHub multiplexes the Redis retirement channel to many SSE clients
// without one Redis subscription per HTTP request.
type RetirementStreamHub struct {
	redis       *redis.Client
	channelName string

	mu          sync.RWMutex
	subscribers map[chan RetirementEvent]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRetirementStreamHub(ctx context.Context, redis *redis.Client, channel string) *RetirementStreamHub {
	ctx, cancel := context.WithCancel(ctx)
	hub := &RetirementStreamHub{
		redis:       redis,
		channelName: channel,
		subscribers: make(map[chan RetirementEvent]struct{}),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go hub.run(ctx)

	return hub
}

func (h *RetirementStreamHub) run(ctx context.Context) {
	defer close(h.done)

	for {
		pubsub := h.redis.Subscribe(ctx, h.channelName)
		ch := pubsub.Channel()

	receive:
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var ev RetirementEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Error("RetirementStreamHub: bad payload: %v", err)
					continue
				}
				h.broadcast(ev)
			}
		}

		_ = pubsub.Close()

		// Avoid tight loop if Redis connection drops
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (h *RetirementStreamHub) broadcast(ev RetirementEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- ev:
		default:
			// Subscriber is too slow; drop the oldest event to keep the hub responsive
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- ev:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns a channel plus cleanup function.
func (h *RetirementStreamHub) Subscribe() (<-chan RetirementEvent, func()) {
	ch := make(chan RetirementEvent, 64)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Close stops the Redis subscription loop.
func (h *RetirementStreamHub) Close() {
	h.cancel()
	<-h.done
}
