package scoreboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like
// the move log are JSON-encoded into single hash fields. This provides a
// balance between queryability (individual fields) and flexibility (nested
// structures).

// StateToHash converts a MatchState to Redis hash format.
// Slice and struct fields are JSON-encoded.
func StateToHash(m *MatchState) (map[string]interface{}, error) {
	historyJSON, err := json.Marshal(m.MoveHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal move_history: %w", err)
	}

	logJSON, err := json.Marshal(m.MoveLog)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal move_log: %w", err)
	}

	attemptsJSON, err := json.Marshal(m.ForfeitAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forfeit_attempts: %w", err)
	}

	hash := map[string]interface{}{
		"match_id":             m.MatchID,
		"fen":                  m.FEN,
		"move_history":         string(historyJSON),
		"white_name":           m.WhiteName,
		"black_name":           m.BlackName,
		"status":               string(m.Status),
		"move_log":             string(logJSON),
		"white_remaining_ms":   formatRemaining(m.WhiteRemainingMs),
		"black_remaining_ms":   formatRemaining(m.BlackRemainingMs),
		"white_clock_started":  strconv.FormatBool(m.WhiteClockStarted),
		"black_clock_started":  strconv.FormatBool(m.BlackClockStarted),
		"last_timer_update_ms": strconv.FormatInt(m.LastTimerUpdateMs, 10),
		"forfeit_attempts":     string(attemptsJSON),
	}

	if m.Outcome != nil {
		outcomeJSON, err := json.Marshal(m.Outcome)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal outcome: %w", err)
		}
		hash["outcome"] = string(outcomeJSON)
	} else {
		hash["outcome"] = ""
	}

	return hash, nil
}

// HashToState converts a Redis hash back to a MatchState. Enum fields are
// validated and rejected when malformed; malformed clock values default to
// unlimited rather than propagating garbage to observers.
func HashToState(hash map[string]string) (*MatchState, error) {
	status := Status(hash["status"])
	if err := status.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persisted state: %w", err)
	}

	var history []string
	if raw := hash["move_history"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			return nil, fmt.Errorf("failed to unmarshal move_history: %w", err)
		}
	}
	if history == nil {
		history = []string{}
	}

	var moveLog []MoveLogEntry
	if raw := hash["move_log"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &moveLog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal move_log: %w", err)
		}
	}
	if moveLog == nil {
		moveLog = []MoveLogEntry{}
	}

	var attempts []MoveAttempt
	if raw := hash["forfeit_attempts"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &attempts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal forfeit_attempts: %w", err)
		}
	}

	var outcome *Outcome
	if raw := hash["outcome"]; raw != "" {
		outcome = &Outcome{}
		if err := json.Unmarshal([]byte(raw), outcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
		}
	}

	lastUpdate, _ := strconv.ParseInt(hash["last_timer_update_ms"], 10, 64)

	state := &MatchState{
		MatchID:           hash["match_id"],
		FEN:               hash["fen"],
		MoveHistory:       history,
		WhiteName:         hash["white_name"],
		BlackName:         hash["black_name"],
		Status:            status,
		Outcome:           outcome,
		MoveLog:           moveLog,
		WhiteRemainingMs:  parseRemaining(hash["white_remaining_ms"]),
		BlackRemainingMs:  parseRemaining(hash["black_remaining_ms"]),
		WhiteClockStarted: parseBool(hash["white_clock_started"]),
		BlackClockStarted: parseBool(hash["black_clock_started"]),
		LastTimerUpdateMs: lastUpdate,
		ForfeitAttempts:   attempts,
	}

	return state, nil
}

// formatRemaining renders a nullable millisecond value; empty string = unlimited.
func formatRemaining(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}

// parseRemaining parses a nullable millisecond value. Malformed or negative
// values default to unlimited.
func parseRemaining(raw string) *int64 {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return nil
	}
	return &ms
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}
