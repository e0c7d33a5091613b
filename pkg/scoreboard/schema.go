package scoreboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by match ID so that
// multiple matches can safely coexist on a single Redis server.
//
// Key pattern: gambit:{match_id}:{entity}
// Channel pattern: gambit:{match_id}:events

// StateKey returns the Redis key for the durable match record.
// Pattern: gambit:{match_id}:state
func StateKey(matchID string) string {
	return fmt.Sprintf("gambit:%s:state", matchID)
}

// CancelKey returns the Redis key for the cancellation marker.
// The marker's existence is the signal; its value is irrelevant.
// Pattern: gambit:{match_id}:cancel
func CancelKey(matchID string) string {
	return fmt.Sprintf("gambit:%s:cancel", matchID)
}

// EventsChannel returns the Pub/Sub channel for state update events.
// Pattern: gambit:{match_id}:events
func EventsChannel(matchID string) string {
	return fmt.Sprintf("gambit:%s:events", matchID)
}
