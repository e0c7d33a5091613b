// Package parse extracts a structured chess move from free-form agent text.
//
// Agents are asked to reply with {"move": "...", "explanation": "..."} but in
// practice wrap it in prose, markdown fences, or restate their answer several
// times. The parser prefers structured payloads over freeform tokens, and
// later occurrences over earlier ones, since agents tend to restate their
// final answer after exploratory text.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Reason classifies why no move could be extracted.
type Reason string

const (
	// ReasonNone means a move was extracted.
	ReasonNone Reason = ""

	// ReasonInvalidStructure means the reply was non-empty but nothing in it
	// could be interpreted as a move or a structured payload.
	ReasonInvalidStructure Reason = "invalid_structure"

	// ReasonNoMoveFound means the reply was empty, or a structured payload
	// was present but carried no usable move.
	ReasonNoMoveFound Reason = "no_move_found"
)

// Result is the outcome of parsing one agent reply.
type Result struct {
	Move        string
	Explanation string
	Reason      Reason
}

// Found reports whether a move was extracted.
func (r Result) Found() bool {
	return r.Move != ""
}

type payload struct {
	Move        string `json:"move"`
	Explanation string `json:"explanation"`
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")

	// A quoted value following a "move" key. Matched literally when no
	// surrounding JSON parses - a stronger signal than freeform tokens.
	moveFieldRe = regexp.MustCompile(`"move"\s*:\s*"([^"]*)"`)

	castlingRe = regexp.MustCompile(`(?i)\b(O-O-O|0-0-0|O-O|0-0)`)
	pieceRe    = regexp.MustCompile(`(?i)\b([KQRBN][a-h]?[1-8]?x?[a-h][1-8][+#]?)`)
	pawnRe     = regexp.MustCompile(`(?i)\b([a-h](?:x[a-h])?[1-8](?:=[QRBN])?[+#]?)`)
)

// Parse extracts a move and explanation from raw agent text.
//
// Priority order, first success wins: the last fenced code block containing a
// structured payload, the last top-level JSON fragment, a fragment anchored
// at the final closing brace, the last literal "move" key occurrence, and
// finally the last move-shaped token in the text.
func Parse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Reason: ReasonNoMoveFound}
	}

	if obj, ok := findStructured(text); ok {
		move := strings.TrimSpace(obj.Move)
		explanation := strings.TrimSpace(obj.Explanation)
		if move != "" {
			return Result{Move: normalizeCastling(move), Explanation: explanation}
		}
		// Structure present but no usable move. The explanation text is the
		// next best place to look, then the whole reply.
		if m := lastMoveToken(explanation); m != "" {
			return Result{Move: m, Explanation: explanation}
		}
		if m := lastMoveToken(text); m != "" {
			return Result{Move: m, Explanation: explanation}
		}
		return Result{Explanation: explanation, Reason: ReasonNoMoveFound}
	}

	if m := lastMoveField(text); m != "" {
		return Result{Move: normalizeCastling(m)}
	}

	if m := lastMoveToken(text); m != "" {
		return Result{Move: m}
	}

	return Result{Reason: ReasonInvalidStructure}
}

// findStructured locates the agent's structured payload, preferring the last
// fenced code block, then the last top-level JSON fragment, then a fragment
// anchored at the final closing brace.
func findStructured(text string) (payload, bool) {
	blocks := fencedBlockRe.FindAllStringSubmatch(text, -1)
	for i := len(blocks) - 1; i >= 0; i-- {
		if obj, ok := tryObject(blocks[i][1]); ok {
			return obj, true
		}
	}

	spans := objectSpans(text)
	for i := len(spans) - 1; i >= 0; i-- {
		if obj, ok := tryObject(text[spans[i][0]:spans[i][1]]); ok {
			return obj, true
		}
	}

	// Earlier malformed braces can hide a well-formed trailing object from
	// the span scanner. Anchor at the final closing brace and widen.
	if end := strings.LastIndexByte(text, '}'); end >= 0 {
		for start := end - 1; start >= 0; start-- {
			if text[start] != '{' {
				continue
			}
			if obj, ok := tryObject(text[start : end+1]); ok {
				return obj, true
			}
		}
	}

	return payload{}, false
}

// tryObject attempts to decode s as a JSON object.
func tryObject(s string) (payload, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return payload{}, false
	}
	var obj payload
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return payload{}, false
	}
	return obj, true
}

// objectSpans returns the [start, end) offsets of top-level {...} fragments,
// tracking quoted strings so braces inside values do not confuse the scan.
func objectSpans(text string) [][2]int {
	var spans [][2]int
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, [2]int{start, i + 1})
				}
			}
		}
	}
	return spans
}

// lastMoveField returns the value of the last literal "move" key in the text.
func lastMoveField(text string) string {
	matches := moveFieldRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// lastMoveToken scans for move-shaped tokens (castling, piece moves, pawn
// moves with optional promotion, each optionally decorated with check or
// mate) and returns the one whose span ends latest in the text.
func lastMoveToken(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")

	best, bestEnd := "", -1
	for _, re := range []*regexp.Regexp{castlingRe, pieceRe, pawnRe} {
		for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
			start, end := loc[2], loc[3]
			if !tokenBoundary(s, end) {
				continue
			}
			if end > bestEnd {
				bestEnd = end
				best = s[start:end]
			}
		}
	}
	if best == "" {
		return ""
	}
	return normalizeCastling(best)
}

// tokenBoundary reports whether the character after end terminates a move
// token. Guards against matching inside longer words like "e4b2c3d4".
func tokenBoundary(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	c := s[end]
	return !(c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9'))
}

// normalizeCastling rewrites zero-notation castling (0-0, 0-0-0) to the
// canonical letter-O form. The two are visually identical in some fonts but
// only O-O is valid SAN.
func normalizeCastling(move string) string {
	if strings.HasPrefix(strings.ToUpper(move), "0-0") {
		return strings.ReplaceAll(move, "0", "O")
	}
	return move
}
