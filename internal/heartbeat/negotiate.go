// Package heartbeat negotiates STOMP heart-beating and drives the
// periodic keep-alive of a connection.
package heartbeat

import (
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

// Agreement is the outcome of a heart-beat negotiation.
type Agreement struct {
	// Advertise is set when the CONNECTED frame must carry Header.
	Advertise bool
	Header    stomp.HeartBeat
	// Send is the period of the server's beats, zero when off.
	Send time.Duration
	// Receive is the period at which the client promised to beat, zero
	// when the server does not watch for beats.
	Receive time.Duration
}

// Negotiate combines the server's settings with the heart-beat header of
// a CONNECT frame. client is nil when the header was absent, in which case
// heart-beating stays off in both directions.
func Negotiate(server stomp.HeartBeat, client *stomp.HeartBeat) Agreement {
	if client == nil {
		return Agreement{}
	}
	agreement := Agreement{Advertise: true, Header: server}
	if server.Guaranteed > 0 && client.Expected > 0 {
		agreement.Send = max(server.Guaranteed, client.Expected)
	}
	if server.Expected > 0 && client.Guaranteed > 0 {
		agreement.Receive = max(server.Expected, client.Guaranteed)
	}
	return agreement
}

// ReadTimeout is how long the server waits for any byte before it gives
// up on a peer that promised to beat every interval.
func ReadTimeout(interval time.Duration, tolerance float64) time.Duration {
	if interval <= 0 {
		return 0
	}
	if tolerance < 1 {
		tolerance = 1
	}
	return time.Duration(float64(interval) * tolerance)
}
