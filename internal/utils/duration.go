package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseMaxAge parses a cache max age. Bare integers are seconds, anything else
// must be a Go duration such as "90s" or "1h30m". Empty means no expiry.
func ParseMaxAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max age %q: %w", s, err)
	}

	return d, nil
}
