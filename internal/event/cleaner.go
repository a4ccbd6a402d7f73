package event

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

const cleanerTimeout = 10 * time.Second

type Callable interface {
	Invoke(ctx context.Context) error
}

// CallableFunc adapts a function to Callable.
type CallableFunc func(ctx context.Context) error

func (f CallableFunc) Invoke(ctx context.Context) error {
	return f(ctx)
}

// Cleaner runs registered shutdown callables in reverse registration
// order, then shuts the logger down.
type Cleaner struct {
	cleaners       []Callable
	mu             sync.Mutex
	cleanOnce      sync.Once
	cleaning       bool
	loggerShutdown Callable
	timeout        time.Duration
	err            error
}

func NewCleaner(loggerShutdown Callable) *Cleaner {
	return &Cleaner{loggerShutdown: loggerShutdown, timeout: cleanerTimeout}
}

func (c *Cleaner) Add(callable Callable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleaning {
		logger.Debug("Cleaner is already shutting down, ignoring new cleaner")
		return
	}
	c.cleaners = append(c.cleaners, callable)
}

// Run blocks until ctx is done, then cleans up. Callers usually pass a
// context from signal.NotifyContext.
func (c *Cleaner) Run(ctx context.Context) error {
	<-ctx.Done()
	logger.Info("Received interrupt signal, shutting down")
	return c.Clean()
}

// Clean invokes every cleaner once, each under its own timeout. Later
// calls return the result of the first.
func (c *Cleaner) Clean() error {
	c.cleanOnce.Do(func() {
		c.mu.Lock()
		c.cleaning = true
		cleanersCopy := make([]Callable, len(c.cleaners))
		copy(cleanersCopy, c.cleaners)
		c.mu.Unlock()

		logger.DebugF("Starting cleanup of %d registered functions", len(cleanersCopy))

		var errs []error
		for i := len(cleanersCopy) - 1; i >= 0; i-- {
			if err := c.invoke(i, cleanersCopy[i]); err != nil {
				errs = append(errs, err)
			}
		}

		if len(errs) > 0 {
			logger.ErrorF("%d errors occurred during cleanup", len(errs))
		} else {
			logger.Debug("All cleaners executed successfully")
		}
		logger.Info("Cleanup finished, server offline")

		if c.loggerShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := c.loggerShutdown.Invoke(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "LOGGER SHUTDOWN ERROR: %v\n", err)
			}
		}
		c.err = errors.Join(errs...)
	})
	return c.err
}

func (c *Cleaner) invoke(idx int, callable Callable) error {
	logger.DebugF("Invoking cleaner #%d (%T)", idx+1, callable)
	timeoutCtx, cancelFunc := context.WithTimeout(context.Background(), c.timeout)
	defer cancelFunc()
	if err := callable.Invoke(timeoutCtx); err != nil {
		logger.ErrorF("Cleaner #%d (%T) failed: %v", idx+1, callable, err)
		return fmt.Errorf("cleaner #%d: %w", idx+1, err)
	}
	return nil
}
