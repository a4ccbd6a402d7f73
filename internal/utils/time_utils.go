package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTimeFormat = errors.New("invalid time format")

var timeUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
}

// ParseStringTime parses durations such as "500ms", "10s", "20m", "48h"
// or "2d". Units are case-insensitive and "0" alone means zero.
func ParseStringTime(timeString string) (time.Duration, error) {
	timeString = strings.ToLower(strings.TrimSpace(timeString))
	if timeString == "0" {
		return 0, nil
	}
	for _, u := range timeUnits {
		cutString, found := strings.CutSuffix(timeString, u.suffix)
		if !found {
			continue
		}
		number, err := strconv.Atoi(cutString)
		if err != nil || number < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, timeString)
		}
		return time.Duration(number) * u.unit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, timeString)
}

// MustParseStringTime is ParseStringTime for values validated earlier.
// Invalid input yields zero.
func MustParseStringTime(timeString string) time.Duration {
	d, _ := ParseStringTime(timeString)
	return d
}
