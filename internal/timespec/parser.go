// Package timespec parses human time specifications used in configuration
// and CLI flags.
package timespec

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses a clock budget specification.
// Supports two formats:
//   - Go duration format: "5m", "1h30m", "90s"
//   - a bare number of seconds: "300", "0.5"
func ParseDuration(spec string) (time.Duration, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty duration specification")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return d, nil
	}

	if secs, err := strconv.ParseFloat(spec, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("invalid duration specification: %s (use duration like '5m' or seconds like '300')", spec)
}
