package server

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

// Subprotocols offered to STOMP over WebSocket clients.
var Subprotocols = []string{"v11.stomp", "v10.stomp"}

// websocketConn carries one STOMP frame per text message behind the
// net.Conn interface the read loop and the writer expect.
type websocketConn struct {
	buf        *bytes.Buffer
	readMutex  sync.Mutex
	writeMutex sync.Mutex
	*websocket.Conn
}

func newWebsocketConn(ws *websocket.Conn) *websocketConn {
	return &websocketConn{
		buf:  bytes.NewBuffer(nil),
		Conn: ws,
	}
}

func (w *websocketConn) Read(p []byte) (int, error) {
	if w.buf.Len() == 0 {
		w.readMutex.Lock()
		_, msg, err := w.ReadMessage()
		w.readMutex.Unlock()
		if err != nil {
			return 0, err
		}
		w.buf.Write(msg)
	}
	return w.buf.Read(p)
}

// Write sends p as one message. The writer encodes exactly one frame per
// call.
func (w *websocketConn) Write(p []byte) (int, error) {
	w.writeMutex.Lock()
	err := w.WriteMessage(websocket.TextMessage, p)
	w.writeMutex.Unlock()
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *websocketConn) SetReadDeadline(t time.Time) error {
	w.readMutex.Lock()
	defer w.readMutex.Unlock()
	return w.Conn.SetReadDeadline(t)
}

func (w *websocketConn) SetWriteDeadline(t time.Time) error {
	w.writeMutex.Lock()
	defer w.writeMutex.Unlock()
	return w.Conn.SetWriteDeadline(t)
}

func (w *websocketConn) SetDeadline(t time.Time) error {
	if err := w.SetReadDeadline(t); err != nil {
		return err
	}
	return w.SetWriteDeadline(t)
}

// WebSocketHandler upgrades requests on path and serves them as STOMP
// clients.
func (b *Broker) WebSocketHandler(path string) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: readBufferSize,
		Subprotocols:    Subprotocols,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !b.tryAcquire() {
			logger.WarnF("Rejecting websocket client %s, connection limit reached", r.RemoteAddr)
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		defer b.release()

		if !b.startConn() {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer b.wg.Done()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnF("Fail to upgrade websocket client %s, details: %v", r.RemoteAddr, err)
			return
		}
		if b.cfg.MaxFrameSize > 0 {
			ws.SetReadLimit(int64(b.cfg.MaxFrameSize))
		}

		logger.DebugF("Accepted new websocket connection from %s", ws.RemoteAddr().String())
		b.metrics.ConnectionAccepted("websocket")
		b.ServeConn(newWebsocketConn(ws))
	})
	return mux
}
