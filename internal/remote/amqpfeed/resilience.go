package amqpfeed

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	// maxFailures opens the circuit; publishes are then dropped instead of
	// blocking edits behind a dead broker.
	maxFailures = 5

	// openTimeout is how long the circuit stays open before a probe publish
	// is allowed through.
	openTimeout = 30 * time.Second
)

// breaker is a minimal circuit breaker around broker publishes. Notifications
// are best effort, so failing fast beats queueing behind a broken connection.
type breaker struct {
	failureCount int64
	state        int32

	mu          sync.Mutex
	lastFailure time.Time
}

func (b *breaker) isOpen() bool {
	if atomic.LoadInt32(&b.state) != StateOpen {
		return false
	}

	b.mu.Lock()
	elapsed := time.Since(b.lastFailure)
	b.mu.Unlock()

	if elapsed >= openTimeout {
		atomic.StoreInt32(&b.state, StateHalfOpen)
		return false
	}
	return true
}

func (b *breaker) recordSuccess() {
	atomic.StoreInt64(&b.failureCount, 0)
	atomic.StoreInt32(&b.state, StateClosed)
}

func (b *breaker) recordFailure() {
	count := atomic.AddInt64(&b.failureCount, 1)

	b.mu.Lock()
	b.lastFailure = time.Now()
	b.mu.Unlock()

	if count >= maxFailures {
		atomic.StoreInt32(&b.state, StateOpen)
	}
}

// exponentialBackoff returns the wait before reconnect attempt n, doubling
// from one second and capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << uint(attempt)
	if backoff > 30*time.Second || backoff <= 0 {
		return 30 * time.Second
	}
	return backoff
}

// isConnectionError reports whether an error looks like a broken broker
// connection rather than a protocol or usage error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"connection refused",
		"connection closed",
		"message channel closed",
		"connection reset",
		"channel/connection is not open",
		"unexpected eof",
		"broken pipe",
		"no route to host",
		"i/o timeout",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
