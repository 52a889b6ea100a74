package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type qaSession struct {
	info  domain.SessionInfo
	index *Index

	// ctx is cancelled when the session is closed.
	ctx    context.Context
	cancel context.CancelFunc

	lastUsed time.Time
}

func (s *qaSession) release() {
	s.cancel()
	if err := s.index.Close(); err != nil {
		slog.Warn("qa_index_release_failed", "session_id", s.info.ID, "error", err)
	}
}

// SessionRegistry holds open question answering sessions by id.
// Sessions idle for longer than the idle TTL are released, and opening a
// session past the cap releases the least recently used one.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*qaSession

	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
}

type RegistryOption func(*SessionRegistry)

// WithIdleTTL expires sessions not used for d. Zero keeps sessions until closed.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithMaxSessions caps the number of open sessions. Zero means no cap.
func WithMaxSessions(n int) RegistryOption {
	return func(r *SessionRegistry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*qaSession),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRegistry) put(s *qaSession) {
	r.mu.Lock()
	now := r.now()
	evicted := r.expiredLocked(now)
	if r.maxSessions > 0 {
		for len(r.sessions) >= r.maxSessions {
			evicted = append(evicted, r.evictOldestLocked())
		}
	}
	s.lastUsed = now
	r.sessions[s.info.ID] = s
	r.mu.Unlock()

	releaseEvicted(evicted, "qa_session_evicted")
}

func (r *SessionRegistry) lookup(id string) (*qaSession, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	now := r.now()
	if r.expired(s, now) {
		delete(r.sessions, id)
		r.mu.Unlock()
		releaseEvicted([]*qaSession{s}, "qa_session_expired")
		return nil, false
	}
	s.lastUsed = now
	r.mu.Unlock()
	return s, true
}

// Sweep releases every session idle past the TTL and reports how many it released.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	evicted := r.expiredLocked(r.now())
	r.mu.Unlock()

	releaseEvicted(evicted, "qa_session_expired")
	return len(evicted)
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *SessionRegistry) expired(s *qaSession, now time.Time) bool {
	return r.idleTTL > 0 && now.Sub(s.lastUsed) > r.idleTTL
}

func (r *SessionRegistry) expiredLocked(now time.Time) []*qaSession {
	var out []*qaSession
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			out = append(out, s)
		}
	}
	return out
}

func (r *SessionRegistry) evictOldestLocked() *qaSession {
	var oldest *qaSession
	for _, s := range r.sessions {
		if oldest == nil || s.lastUsed.Before(oldest.lastUsed) ||
			(s.lastUsed.Equal(oldest.lastUsed) && s.info.ID < oldest.info.ID) {
			oldest = s
		}
	}
	delete(r.sessions, oldest.info.ID)
	return oldest
}

func releaseEvicted(sessions []*qaSession, event string) {
	for _, s := range sessions {
		s.release()
		slog.Info(event, "session_id", s.info.ID)
	}
}

func (r *SessionRegistry) remove(id string) (*qaSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns every open session, oldest first.
func (r *SessionRegistry) List() []domain.SessionInfo {
	r.mu.Lock()
	out := make([]domain.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.info)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CloseAll cancels every session; used on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*qaSession)
	r.mu.Unlock()

	for _, s := range sessions {
		s.release()
	}
}
