// Package duration implements MINOOTS's duration parser:
// strings like "5m", "2h", "500ms" or a raw non-negative millisecond
// integer, normalized to milliseconds.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`^(\d+)(ms|s|m|h|d)$`)

var multipliers = map[string]int64{
	"ms": 1,
	"s":  1000,
	"m":  60000,
	"h":  3600000,
	"d":  86400000,
}

// Parse normalizes v (an int64/int/float64 millisecond count, or a
// duration string) to milliseconds. It rejects negative values and any
// string that doesn't match `^\d+(ms|s|m|h|d)$` (case-insensitive).
func Parse(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return parseMillis(val)
	case int:
		return parseMillis(int64(val))
	case int32:
		return parseMillis(int64(val))
	case float64:
		return parseMillis(int64(val))
	case string:
		return parseString(val)
	default:
		return 0, fmt.Errorf("duration: unsupported type %T", v)
	}
}

func parseMillis(ms int64) (int64, error) {
	if ms < 0 {
		return 0, fmt.Errorf("duration: negative milliseconds %d", ms)
	}
	return ms, nil
}

func parseString(s string) (int64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	match := pattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 0, fmt.Errorf("duration: invalid format %q, expected \\d+(ms|s|m|h|d)", s)
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("duration: invalid number in %q: %w", s, err)
	}

	return n * multipliers[match[2]], nil
}
