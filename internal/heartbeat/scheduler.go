package heartbeat

import (
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

// SendFunc enqueues a frame on the connection's outbound stream.
type SendFunc func(frame *stomp.Frame) error

// Scheduler emits a heart-beat every interval until stopped or until a
// send fails.
type Scheduler struct {
	name     string
	interval time.Duration
	send     SendFunc

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(name string, interval time.Duration, send SendFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		send:     send,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the beat loop. It does nothing when the interval is not
// positive, or when the scheduler was already started or stopped.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped || s.interval <= 0 {
		return
	}
	s.started = true
	logger.DebugF("[%s] Heart-beat every %s", s.name, s.interval)
	go s.loop()
}

// Stop ends the loop and waits for it to exit, no beat is sent once Stop
// returns. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	close(s.stopCh)
	s.mu.Unlock()

	if started {
		<-s.doneCh
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Stop may have raced the tick.
			select {
			case <-s.stopCh:
				return
			default:
			}
			if err := s.send(stomp.NewHeartBeat()); err != nil {
				logger.DebugF("[%s] Heart-beat stopped, details: %v", s.name, err)
				return
			}
		case <-s.stopCh:
			return
		}
	}
}
