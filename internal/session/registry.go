// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package session

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry tracks every live session by ID, grounded on the teacher's
// hub.Hub server-registration map generalized from per-protocol servers
// to per-headset sessions. internal/scheduler uses it to find and reap
// idle sessions; internal/httpapi uses it to count and list them.
type Registry struct {
	sessions *xsync.Map[string, *Session]
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: xsync.NewMap[string, *Session]()}
}

// Add registers a session under its ID, replacing any prior entry with
// the same ID (a stale entry from a crashed goroutine that never
// reached teardown).
func (r *Registry) Add(s *Session) {
	r.sessions.Store(s.ID, s)
}

// Remove unregisters a session, typically called from its own teardown.
func (r *Registry) Remove(id string) {
	r.sessions.Delete(id)
}

// Get returns the session with the given ID, if live.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Load(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Snapshot returns every live session, for listing or iteration outside
// the registry's internal locking.
func (r *Registry) Snapshot() []*Session {
	out := make([]*Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *Session) bool {
		out = append(out, s)
		return true
	})
	return out
}

// ReapIdle closes every session whose last activity is older than
// maxIdle, returning how many were closed.
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	closed := 0
	r.sessions.Range(func(_ string, s *Session) bool {
		if s.LastActivity().Before(cutoff) {
			s.Close()
			closed++
		}
		return true
	})
	return closed
}
