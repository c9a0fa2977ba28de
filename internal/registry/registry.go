// Package registry implements ClientRegistry: the concurrent map from
// session id to attached viewer.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Conn is the minimal transport surface ClientSession needs; satisfied
// directly by *websocket.Conn.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one attached viewer.
type Session struct {
	ID            string
	Conn          Conn
	Version       int
	LastFrameSent int64 // sequence number; -1 until first dispatch

	needsKeyframe atomic.Bool
	lastActivity  atomic.Int64 // unix nanos
}

// NewSession wraps conn in a Session with NeedsKeyframe=true and
// LastFrameSent=-1, the initial state every new viewer session starts in.
func NewSession(conn Conn) *Session {
	s := &Session{ID: uuid.NewString(), Conn: conn, LastFrameSent: -1}
	s.needsKeyframe.Store(true)
	s.Touch()
	return s
}

func (s *Session) NeedsKeyframe() bool    { return s.needsKeyframe.Load() }
func (s *Session) SetNeedsKeyframe(v bool) { s.needsKeyframe.Store(v) }

// Touch records activity for send-timeout age-out bookkeeping.
func (s *Session) Touch() { s.lastActivity.Store(time.Now().UnixNano()) }

// IdleFor reports how long it has been since the last recorded activity.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// Registry is the concurrent session map. Capacity is capped at a small
// fixed number; callers must check Add's ok return before treating a
// connection as accepted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	capacity int

	onInsert func(*Session)
}

// New returns an empty registry capped at capacity sessions. onInsert,
// if non-nil, fires after a session is admitted (used to set EncodeStage's
// process-wide keyframe-request flag).
func New(capacity int, onInsert func(*Session)) *Registry {
	return &Registry{sessions: make(map[string]*Session), capacity: capacity, onInsert: onInsert}
}

// Add admits session if the registry is under capacity. ok is false if
// the registry is full; the caller must then close the connection
// cleanly without adding it.
func (r *Registry) Add(s *Session) (ok bool) {
	r.mu.Lock()
	if len(r.sessions) >= r.capacity {
		r.mu.Unlock()
		return false
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()
	if r.onInsert != nil {
		r.onInsert(s)
	}
	return true
}

// Remove is idempotent and safe to call from any component.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Snapshot returns the current set of sessions for FanOut to iterate
// without holding the registry lock during sends.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len reports the current session count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}
