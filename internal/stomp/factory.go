package stomp

import "strconv"

// NewHeartBeat returns the keep-alive frame.
func NewHeartBeat() *Frame {
	return &Frame{Command: HEARTBEAT, Header: &Header{}}
}

// NewConnectedFrame answers a successful CONNECT.
func NewConnectedFrame(version string) *Frame {
	return NewFrame(CONNECTED, HeaderVersion, version)
}

// NewErrorFrame builds an ERROR frame with a short message header and a
// plain text description as body.
func NewErrorFrame(message, description string) *Frame {
	frame := NewFrame(ERROR, HeaderMessage, message)
	if description != "" {
		frame.Body = []byte(description)
		frame.Set(HeaderContentType, "text/plain")
		frame.Set(HeaderContentLength, strconv.Itoa(len(frame.Body)))
	}
	return frame
}

// NewReceiptFrame acknowledges the receipt id requested by a client.
func NewReceiptFrame(receiptID string) *Frame {
	return NewFrame(RECEIPT, HeaderReceiptID, receiptID)
}

// ReceiptFor returns the RECEIPT answering request, or nil when request
// did not ask for one.
func ReceiptFor(request *Frame) *Frame {
	receipt, ok := request.Get(HeaderReceipt)
	if !ok {
		return nil
	}
	return NewReceiptFrame(receipt)
}

// sendControlHeaders are the SEND headers the broker interprets itself,
// everything else is copied to the MESSAGE frames as user headers.
var sendControlHeaders = []string{
	HeaderDestination,
	HeaderTransaction,
	HeaderContentType,
	HeaderContentLength,
	HeaderReceipt,
	HeaderMessageID,
	HeaderSubscription,
	HeaderAck,
}

// NewMessageFrame builds the MESSAGE delivered to one subscription for a
// SEND frame.
func NewMessageFrame(send *Frame, messageID string, subscriptionID int64) *Frame {
	frame := NewFrame(MESSAGE,
		HeaderDestination, send.Value(HeaderDestination),
		HeaderMessageID, messageID,
		HeaderSubscription, strconv.FormatInt(subscriptionID, 10),
	)
	if contentType, ok := send.Get(HeaderContentType); ok {
		frame.Set(HeaderContentType, contentType)
		if _, ok := send.Get(HeaderContentLength); !ok {
			frame.Set(HeaderContentLength, strconv.Itoa(len(send.Body)))
		}
	}
	if contentLength, ok := send.Get(HeaderContentLength); ok {
		frame.Set(HeaderContentLength, contentLength)
	}
	for _, key := range send.Header.UserKeys(sendControlHeaders...) {
		frame.Set(key, send.Value(key))
	}
	frame.Body = send.Body
	return frame
}
