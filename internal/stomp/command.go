// Package stomp implements the STOMP 1.1 frame model and wire codec.
package stomp

// Command is the first line of a STOMP frame.
type Command string

const (
	CONNECT     Command = "CONNECT"
	CONNECTED   Command = "CONNECTED"
	DISCONNECT  Command = "DISCONNECT"
	SEND        Command = "SEND"
	MESSAGE     Command = "MESSAGE"
	SUBSCRIBE   Command = "SUBSCRIBE"
	UNSUBSCRIBE Command = "UNSUBSCRIBE"
	ACK         Command = "ACK"
	NACK        Command = "NACK"
	BEGIN       Command = "BEGIN"
	COMMIT      Command = "COMMIT"
	ABORT       Command = "ABORT"
	RECEIPT     Command = "RECEIPT"
	ERROR       Command = "ERROR"
	// HEARTBEAT has no command line on the wire, it is a lone EOL.
	HEARTBEAT Command = "HEARTBEAT"
)

// Version is the only protocol version this broker speaks.
const Version = "1.1"

var validCommands = map[Command]struct{}{
	CONNECT:     {},
	CONNECTED:   {},
	DISCONNECT:  {},
	SEND:        {},
	MESSAGE:     {},
	SUBSCRIBE:   {},
	UNSUBSCRIBE: {},
	ACK:         {},
	NACK:        {},
	BEGIN:       {},
	COMMIT:      {},
	ABORT:       {},
	RECEIPT:     {},
	ERROR:       {},
	HEARTBEAT:   {},
}

// commandsWithBody may carry a body; every other command serializes without one.
var commandsWithBody = map[Command]struct{}{
	SEND:    {},
	MESSAGE: {},
	ERROR:   {},
}

func (c Command) String() string {
	return string(c)
}

// Valid reports whether c is part of the STOMP command vocabulary.
func (c Command) Valid() bool {
	_, ok := validCommands[c]
	return ok
}

// HasBody reports whether frames of this command may carry a body.
func (c Command) HasBody() bool {
	_, ok := commandsWithBody[c]
	return ok
}
