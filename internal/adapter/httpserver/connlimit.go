package httpserver

import (
	"sync"
	"sync/atomic"
)

// LimitReason describes why a WebSocket connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
)

// connectionLimits caps concurrent WebSocket sessions, both in total and per client IP.
type connectionLimits struct {
	current atomic.Int64
	max     int64

	mu     sync.Mutex
	perIP  map[string]int
	maxPer int
}

func newConnectionLimits(globalMax int64, perIPMax int) *connectionLimits {
	return &connectionLimits{
		max:    globalMax,
		perIP:  make(map[string]int),
		maxPer: perIPMax,
	}
}

// Acquire reserves a slot for ip. On failure nothing is reserved.
func (l *connectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.acquireGlobal() {
		return false, LimitReasonGlobal
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] >= l.maxPer {
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++
	return true, ""
}

// Release frees a slot previously reserved for ip.
func (l *connectionLimits) Release(ip string) {
	l.mu.Lock()
	if count := l.perIP[ip]; count > 0 {
		if count == 1 {
			delete(l.perIP, ip)
		} else {
			l.perIP[ip] = count - 1
		}
		l.current.Add(-1)
	}
	l.mu.Unlock()
}

func (l *connectionLimits) acquireGlobal() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Current returns the number of reserved slots.
func (l *connectionLimits) Current() int64 {
	return l.current.Load()
}

func (l *connectionLimits) countFor(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
