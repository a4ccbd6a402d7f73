package connection

import (
	"sync"
	"sync/atomic"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

// Closer is anything the manager can tear down on shutdown.
type Closer interface {
	Close() error
}

// Manager tracks live clients by id.
type Manager struct {
	connections sync.Map
	count       atomic.Int64
}

func NewManager() *Manager {
	return &Manager{}
}

func (cm *Manager) Add(id string, conn Closer) {
	if _, loaded := cm.connections.Swap(id, conn); !loaded {
		cm.count.Add(1)
	}
	logger.InfoF("Client %s connected", id)
}

func (cm *Manager) Remove(id string) {
	if _, loaded := cm.connections.LoadAndDelete(id); loaded {
		cm.count.Add(-1)
		logger.InfoF("Client %s disconnected", id)
	}
}

func (cm *Manager) Get(id string) (Closer, bool) {
	if value, ok := cm.connections.Load(id); ok {
		return value.(Closer), true
	}
	return nil, false
}

func (cm *Manager) Count() int {
	return int(cm.count.Load())
}

// CloseAll closes every tracked client concurrently and waits for them.
func (cm *Manager) CloseAll() {
	var wg sync.WaitGroup
	cm.connections.Range(func(key, value any) bool {
		wg.Add(1)
		go func(id string, conn Closer) {
			defer wg.Done()
			if err := conn.Close(); err != nil {
				logger.WarnF("[%s] Error occured while closing client, details: %v", id, err)
			}
		}(key.(string), value.(Closer))
		return true
	})
	wg.Wait()
}
