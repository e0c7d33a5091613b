package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides Redis operations for the scoreboard.
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new scoreboard client.
func NewClient(redisOpts *redis.Options) *Client {
	return &Client{rdb: redis.NewClient(redisOpts)}
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveState writes the match record to Redis and publishes a state event.
// Validates the state before writing. When either remaining-time field is
// non-nil, LastTimerUpdateMs is stamped with the current time so observers
// can advance clocks on read.
//
// This method is idempotent - writing the same state twice is safe.
func (c *Client) SaveState(ctx context.Context, state *MatchState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid match state: %w", err)
	}

	if state.WhiteRemainingMs != nil || state.BlackRemainingMs != nil {
		state.LastTimerUpdateMs = time.Now().UnixMilli()
	}

	hash, err := StateToHash(state)
	if err != nil {
		return fmt.Errorf("failed to serialize match state: %w", err)
	}

	key := StateKey(state.MatchID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write match state to Redis: %w", err)
	}

	event := StateEvent{
		MatchID: state.MatchID,
		Status:  state.Status,
		Moves:   len(state.MoveHistory),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal state event: %w", err)
	}

	channel := EventsChannel(state.MatchID)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish state event: %w", err)
	}

	return nil
}

// LoadState retrieves the match record by ID.
// Returns (nil, redis.Nil) if no record exists.
// Use IsNotFound() to check for not-found errors.
func (c *Client) LoadState(ctx context.Context, matchID string) (*MatchState, error) {
	key := StateKey(matchID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read match state from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	state, err := HashToState(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize match state: %w", err)
	}

	return state, nil
}

// Reset atomically replaces the match record with a fresh in-progress state
// and clears any cancellation marker. Returns the fresh state. Resetting is
// idempotent: two consecutive resets produce identical fresh states.
func (c *Client) Reset(ctx context.Context, matchID string) (*MatchState, error) {
	if matchID == "" {
		return nil, fmt.Errorf("match ID cannot be empty")
	}

	state := NewMatchState(matchID)
	hash, err := StateToHash(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize fresh state: %w", err)
	}

	// Delete first so fields from the previous match do not survive the
	// replacement, then write the fresh record in the same pipeline.
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, StateKey(matchID))
	pipe.HSet(ctx, StateKey(matchID), hash)
	pipe.Del(ctx, CancelKey(matchID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset match state: %w", err)
	}

	return state, nil
}

// RequestCancel sets the cancellation marker for a match. Setting it is
// idempotent. The running engine observes the marker cooperatively at the
// top of every turn and after every agent call.
func (c *Client) RequestCancel(ctx context.Context, matchID string) error {
	if matchID == "" {
		return fmt.Errorf("match ID cannot be empty")
	}
	if err := c.rdb.Set(ctx, CancelKey(matchID), "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to set cancellation marker: %w", err)
	}
	return nil
}

// Cancelled reports whether a cancellation marker exists for this match ID.
func (c *Client) Cancelled(ctx context.Context, matchID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, CancelKey(matchID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cancellation marker: %w", err)
	}
	return exists > 0, nil
}

// ClearCancel removes the cancellation marker, e.g. when starting a new
// match under the same ID.
func (c *Client) ClearCancel(ctx context.Context, matchID string) error {
	if err := c.rdb.Del(ctx, CancelKey(matchID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cancellation marker: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to state events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *StateEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of state events.
// The channel is closed when the subscription is closed or the context is
// cancelled.
func (s *Subscription) Events() <-chan *StateEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to state update events for a match.
// Returns a Subscription that delivers StateEvent objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery) - observers should treat events as hints and
// re-read the durable record.
func (c *Client) SubscribeEvents(ctx context.Context, matchID string) (*Subscription, error) {
	channel := EventsChannel(matchID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *StateEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event StateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal state event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if LoadState returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
