package connection

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	closed atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestManager(t *testing.T) {
	cm := NewManager()
	a := &countingCloser{}
	b := &countingCloser{}

	cm.Add("a", a)
	cm.Add("b", b)
	cm.Add("a", a)
	assert.Equal(t, 2, cm.Count())

	got, ok := cm.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	cm.Remove("a")
	cm.Remove("a")
	assert.Equal(t, 1, cm.Count())
	_, ok = cm.Get("a")
	assert.False(t, ok)
}

func TestManagerCloseAll(t *testing.T) {
	cm := NewManager()
	closers := make([]*countingCloser, 20)
	for i := range closers {
		closers[i] = &countingCloser{}
		cm.Add(fmt.Sprintf("c-%d", i), closers[i])
	}

	cm.CloseAll()
	for _, c := range closers {
		assert.Equal(t, int32(1), c.closed.Load())
	}
}
