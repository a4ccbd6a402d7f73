package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRecorder(t *testing.T) {
	m, err := New(Sources{})
	require.NoError(t, err)

	m.FrameReceived(stomp.SEND)
	m.FrameReceived(stomp.SEND)
	m.FrameReceived(stomp.Command("BOGUS"))
	m.FrameSent(stomp.MESSAGE)
	m.MessagePublished(3)
	m.MessagePublished(0)
	m.ProtocolError("Not connected")
	m.ConnectionAccepted("tcp")
	m.ConnectionClosed("eof")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("SEND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("UNKNOWN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSent.WithLabelValues("MESSAGE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesPublished))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.protocolErrors.WithLabelValues("Not connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsTotal.WithLabelValues("tcp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disconnects.WithLabelValues("eof")))
}

func TestGaugesReadSources(t *testing.T) {
	connections := 4
	m, err := New(Sources{
		Connections: func() int { return connections },
		PendingAcks: func() int { return 7 },
	})
	require.NoError(t, err)

	expected := `
# HELP stomp_acks_pending Messages waiting for acknowledgements
# TYPE stomp_acks_pending gauge
stomp_acks_pending 7
# HELP stomp_connections_active Live client connections
# TYPE stomp_connections_active gauge
stomp_connections_active 4
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"stomp_acks_pending", "stomp_connections_active"))

	connections = 1
	count, err := testutil.GatherAndCount(m.Registry(), "stomp_connections_active", "stomp_subscriptions_active")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "nil sources are not registered")
	assert.Contains(t, gathered(t, m), "stomp_connections_active 1")
}

func gathered(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	NewServer("", "", m).handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestServer(t *testing.T) {
	m, err := New(Sources{})
	require.NoError(t, err)
	m.MessagePublished(1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer("", "/metrics", m)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "stomp_messages_published_total 1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	require.NoError(t, <-errCh)
	require.NoError(t, server.Shutdown(ctx))

	http.DefaultClient.CloseIdleConnections()
}

func TestShutdownBeforeServe(t *testing.T) {
	m, err := New(Sources{})
	require.NoError(t, err)
	server := NewServer("", "", m)
	require.NoError(t, server.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, server.Serve(ln))

	_, err = net.Dial("tcp", ln.Addr().String())
	assert.Error(t, err, "listener is closed")
}
