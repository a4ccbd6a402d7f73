package stomp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageFrame(t *testing.T) {
	send := &Frame{
		Command: SEND,
		Header: NewHeader(
			HeaderDestination, "/topic",
			HeaderReceipt, "r-1",
			"priority", "high",
			HeaderTransaction, "tx",
			HeaderSubscription, "99",
		),
		Body: []byte("hello"),
	}

	message := NewMessageFrame(send, "message-3", 7)

	assert.Equal(t, MESSAGE, message.Command)
	assert.Equal(t, []string{HeaderDestination, HeaderMessageID, HeaderSubscription, "priority"}, message.Header.Keys())
	assert.Equal(t, "7", message.Value(HeaderSubscription))
	assert.Equal(t, "high", message.Value("priority"))
	assert.Equal(t, "hello", string(message.Body))
}

func TestNewMessageFrameContentHeaders(t *testing.T) {
	send := &Frame{
		Command: SEND,
		Header:  NewHeader(HeaderDestination, "/topic", HeaderContentType, "text/plain"),
		Body:    []byte("hello"),
	}
	message := NewMessageFrame(send, "message-0", 0)
	assert.Equal(t, "text/plain", message.Value(HeaderContentType))
	assert.Equal(t, "5", message.Value(HeaderContentLength))

	send.Set(HeaderContentLength, "5")
	send.Header.Del(HeaderContentType)
	message = NewMessageFrame(send, "message-1", 0)
	assert.False(t, message.Header.Contains(HeaderContentType))
	assert.Equal(t, "5", message.Value(HeaderContentLength))
}

func TestReceiptFor(t *testing.T) {
	assert.Nil(t, ReceiptFor(NewFrame(SEND)))

	receipt := ReceiptFor(NewFrame(SEND, HeaderReceipt, "42"))
	require.NotNil(t, receipt)
	assert.Equal(t, "RECEIPT\nreceipt-id:42\n\n\x00", string(Encode(receipt)))
}

func TestNewErrorFrame(t *testing.T) {
	frame := NewErrorFrame("Bad credentials", "Username or passcode incorrect")
	assert.Equal(t, "Bad credentials", frame.Value(HeaderMessage))
	assert.Equal(t, "30", frame.Value(HeaderContentLength))
	assert.Equal(t, "Username or passcode incorrect", string(frame.Body))
}

func TestParseHeartBeat(t *testing.T) {
	hb, err := ParseHeartBeat("1000, 250")
	require.NoError(t, err)
	assert.Equal(t, time.Second, hb.Guaranteed)
	assert.Equal(t, 250*time.Millisecond, hb.Expected)
	assert.Equal(t, "1000,250", hb.String())

	for _, bad := range []string{"", "10", "a,b", "-1,0", "0,-5"} {
		_, err := ParseHeartBeat(bad)
		assert.ErrorIs(t, err, ErrInvalidHeartBeat, bad)
	}
}

func TestParseAckMode(t *testing.T) {
	assert.Equal(t, AckAuto, ParseAckMode(""))
	assert.Equal(t, AckAuto, ParseAckMode("auto"))
	assert.Equal(t, AckClient, ParseAckMode("client"))
	assert.Equal(t, AckClientIndividual, ParseAckMode("CLIENT-INDIVIDUAL"))
	assert.Equal(t, AckAuto, ParseAckMode("bogus"))
}

func TestHeader(t *testing.T) {
	h := NewHeader("a", "1", "b", "2")
	h.Set("a", "3")
	h.Set("c", "4")
	assert.Equal(t, []string{"a", "b", "c"}, h.Keys())
	assert.Equal(t, "3", h.Value("a"))

	h.Del("b")
	assert.Equal(t, []string{"a", "c"}, h.Keys())
	assert.Equal(t, []string{"c"}, h.UserKeys("a"))

	clone := h.Clone()
	clone.Set("a", "changed")
	assert.Equal(t, "3", h.Value("a"))
}
