package stomp

import (
	"strconv"
	"strings"
	"time"
)

// HeartBeat is the pair carried by the heart-beat header: the smallest
// interval the sender guarantees between its beats, and the interval it
// wants between the peer's beats. Zero means "none".
type HeartBeat struct {
	Guaranteed time.Duration
	Expected   time.Duration
}

// ParseHeartBeat parses "cx,cy" where both values are milliseconds.
func ParseHeartBeat(value string) (HeartBeat, error) {
	first, second, found := strings.Cut(value, ",")
	if !found {
		return HeartBeat{}, ErrInvalidHeartBeat
	}
	cx, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || cx < 0 {
		return HeartBeat{}, ErrInvalidHeartBeat
	}
	cy, err := strconv.ParseInt(strings.TrimSpace(second), 10, 64)
	if err != nil || cy < 0 {
		return HeartBeat{}, ErrInvalidHeartBeat
	}
	return HeartBeat{
		Guaranteed: time.Duration(cx) * time.Millisecond,
		Expected:   time.Duration(cy) * time.Millisecond,
	}, nil
}

func (hb HeartBeat) String() string {
	return strconv.FormatInt(hb.Guaranteed.Milliseconds(), 10) + "," + strconv.FormatInt(hb.Expected.Milliseconds(), 10)
}
