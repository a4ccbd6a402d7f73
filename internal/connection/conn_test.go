package connection

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// readFrames decodes everything the peer writes until it closes.
func readFrames(t *testing.T, conn net.Conn) <-chan []*stomp.Frame {
	t.Helper()
	out := make(chan []*stomp.Frame, 1)
	go func() {
		decoder := stomp.NewDecoder(0)
		var frames []*stomp.Frame
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			_, _ = decoder.Write(buf[:n])
			for {
				frame, decodeErr := decoder.Next()
				if decodeErr != nil || frame == nil {
					break
				}
				frames = append(frames, frame)
			}
			if err != nil {
				out <- frames
				return
			}
		}
	}()
	return out
}

func TestSendAndClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	received := readFrames(t, client)

	c := New("conn-1", server, Options{QueueSize: 8})
	assert.Equal(t, "conn-1", c.ID())

	require.NoError(t, c.Send(stomp.NewConnectedFrame(stomp.Version)))
	require.NoError(t, c.Send(stomp.NewReceiptFrame("r-1")))
	require.NoError(t, c.Send(stomp.NewHeartBeat()))
	require.NoError(t, c.Close())

	frames := <-received
	require.Len(t, frames, 3)
	assert.Equal(t, stomp.CONNECTED, frames[0].Command)
	assert.Equal(t, "r-1", frames[1].Value(stomp.HeaderReceiptID))
	assert.True(t, frames[2].IsHeartBeat())

	count, bytes := c.Stats()
	assert.Equal(t, int64(3), count)
	assert.Greater(t, bytes, int64(0))

	assert.ErrorIs(t, c.Send(stomp.NewHeartBeat()), ErrClosed)
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	default:
		t.Fatal("writer still running after Close")
	}
}

func TestConcurrentSendersDoNotInterleave(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	received := readFrames(t, client)

	c := New("conn-2", server, Options{QueueSize: 1024})

	const senders, perSender = 8, 50
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				frame := &stomp.Frame{
					Command: stomp.MESSAGE,
					Header:  stomp.NewHeader(stomp.HeaderDestination, "/topic"),
					Body:    []byte("payload payload payload"),
				}
				assert.NoError(t, c.Send(frame))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, c.Close())

	frames := <-received
	require.Len(t, frames, senders*perSender)
	for _, frame := range frames {
		assert.Equal(t, "payload payload payload", string(frame.Body))
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	// nobody reads client, the writer blocks on the first frame
	c := New("slow", server, Options{QueueSize: 1, WriteTimeout: time.Minute})

	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = c.Send(stomp.NewHeartBeat())
	}
	require.ErrorIs(t, err, ErrSlowConsumer)
	assert.ErrorIs(t, c.Send(stomp.NewHeartBeat()), ErrClosed)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("writer did not exit after abort")
	}

	_, readErr := client.Read(make([]byte, 1))
	assert.True(t, errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrClosedPipe), "got %v", readErr)
	require.NoError(t, c.Close())
}

func TestWriteFailureBreaksConnection(t *testing.T) {
	server, client := net.Pipe()
	require.NoError(t, client.Close())

	c := New("broken", server, Options{})
	require.NoError(t, c.Send(stomp.NewHeartBeat()))

	assert.Eventually(t, func() bool {
		return errors.Is(c.Send(stomp.NewHeartBeat()), ErrClosed)
	}, time.Second, time.Millisecond)
	require.NoError(t, c.Close())
}
