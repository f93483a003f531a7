// SPDX-License-Identifier: MIT
package control

import (
	"sync"
	"time"
)

// SuppressToken distinguishes "the panel closed because the user opened
// the player" from "the user actually closed the panel". Opening a web
// view arms the token; while armed, the next page-close event is
// ignored. The TTL bounds how long the suppression can linger if the
// close event never arrives.
type SuppressToken struct {
	mu    sync.Mutex
	ttl   time.Duration
	until time.Time
	now   func() time.Time
}

// DefaultSuppressTTL covers the observed gap between opening a web view
// and the host delivering the resulting page-close event.
const DefaultSuppressTTL = 500 * time.Millisecond

// NewSuppressToken creates a token with the given TTL (0 uses the
// default).
func NewSuppressToken(ttl time.Duration) *SuppressToken {
	if ttl <= 0 {
		ttl = DefaultSuppressTTL
	}
	return &SuppressToken{ttl: ttl, now: time.Now}
}

// Arm starts (or restarts) the suppression window.
func (s *SuppressToken) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = s.now().Add(s.ttl)
}

// Consume reports whether a close event arriving now should be
// suppressed, and spends the token if so.
func (s *SuppressToken) Consume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().After(s.until) {
		return false
	}
	s.until = time.Time{}
	return true
}
