package httpserver

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_PerIP(t *testing.T) {
	l := newConnectionLimits(100, 2)

	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)
	ok, _ = l.Acquire("1.1.1.1")
	assert.True(t, ok)

	ok, reason := l.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, int64(2), l.Current(), "rejected acquire must not leak a global slot")

	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)
}

func TestConnectionLimits_Global(t *testing.T) {
	l := newConnectionLimits(2, 10)

	for i := range 2 {
		ok, _ := l.Acquire(fmt.Sprintf("10.0.0.%d", i))
		assert.True(t, ok)
	}

	ok, reason := l.Acquire("10.0.0.99")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
}

func TestConnectionLimits_Release(t *testing.T) {
	l := newConnectionLimits(1, 1)

	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)
	l.Release("1.1.1.1")

	assert.Equal(t, int64(0), l.Current())
	assert.Equal(t, 0, l.countFor("1.1.1.1"))
	ok, _ = l.Acquire("1.1.1.1")
	assert.True(t, ok)
}

func TestConnectionLimits_ReleaseUnknownIPIsNoop(t *testing.T) {
	l := newConnectionLimits(5, 5)
	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)

	l.Release("9.9.9.9")

	assert.Equal(t, int64(1), l.Current())
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	l := newConnectionLimits(50, 1000)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Acquire("1.1.1.1"); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, granted)
	assert.Equal(t, int64(50), l.Current())
}
