package auth

import (
	"sync"
	"time"
)

// Breaker is a minimal failure-counting circuit breaker guarding calls
// to an external collaborator. After threshold consecutive failures it
// rejects calls for openFor, then lets the next call probe again.
type Breaker struct {
	mu         sync.Mutex
	failures   int
	openedTill time.Time
	threshold  int
	openFor    time.Duration
}

// NewBreaker returns a closed breaker. Non-positive arguments fall back
// to 3 failures / 30s open.
func NewBreaker(threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{threshold: threshold, openFor: openFor}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !time.Now().Before(b.openedTill)
}

// ReportSuccess resets the failure count.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// ReportFailure counts a failure and opens the breaker once the
// threshold is reached.
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openedTill = time.Now().Add(b.openFor)
		b.failures = 0
	}
}
