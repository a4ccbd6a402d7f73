package stomp

import "strings"

// AckMode is the acknowledgement mode requested by a SUBSCRIBE frame.
type AckMode byte

const (
	// AckAuto needs no ACK frame from the client.
	AckAuto AckMode = iota
	// AckClient expects cumulative ACK frames.
	AckClient
	// AckClientIndividual expects one ACK frame per message.
	AckClientIndividual
)

var ackModeNames = map[AckMode]string{
	AckAuto:             "auto",
	AckClient:           "client",
	AckClientIndividual: "client-individual",
}

func (m AckMode) String() string {
	return ackModeNames[m]
}

// ParseAckMode maps the ack header value to a mode. Anything unknown,
// including an absent header, is auto.
func ParseAckMode(value string) AckMode {
	switch strings.ToLower(value) {
	case "client":
		return AckClient
	case "client-individual":
		return AckClientIndividual
	default:
		return AckAuto
	}
}
