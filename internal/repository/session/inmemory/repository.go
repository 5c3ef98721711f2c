package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/watchroom/server/internal/repository/session"
)

type entry struct {
	session session.Session
	// zero for host sessions, which live until an explicit leave
	expiresAt time.Time
}

type repo struct {
	sessions  map[string]entry
	viewerTTL time.Duration
	mu        sync.Mutex

	now func() time.Time
}

func NewRepo(viewerTTL time.Duration) *repo {
	return &repo{
		sessions:  make(map[string]entry),
		viewerTTL: viewerTTL,
		now:       time.Now,
	}
}

func (r *repo) Set(s session.Session) error {
	funcName := "session.inmemory.Set"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()

	slog.Debug(funcName, "token", s.Token, "roomID", s.RoomID, "host", s.Host)
	if _, ok := r.sessions[s.Token]; ok {
		slog.Info(funcName, "error", session.ErrAlreadyExists)
		return session.ErrAlreadyExists
	}

	var expiresAt time.Time
	if !s.Host {
		expiresAt = r.now().Add(r.viewerTTL)
	}
	r.sessions[s.Token] = entry{session: s, expiresAt: expiresAt}

	return nil
}

// Get looks a session up by token. A live viewer session has its expiry
// pushed out, so a token in active use keeps working.
func (r *repo) Get(token string) (session.Session, error) {
	funcName := "session.inmemory.Get"
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[token]
	if !ok || r.expired(e) {
		delete(r.sessions, token)
		slog.Debug(funcName, "error", session.ErrNotFound)
		return session.Session{}, session.ErrNotFound
	}

	if !e.expiresAt.IsZero() {
		e.expiresAt = r.now().Add(r.viewerTTL)
		r.sessions[token] = e
	}

	return e.session, nil
}

func (r *repo) Remove(token string) error {
	funcName := "session.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[token]
	if !ok || r.expired(e) {
		delete(r.sessions, token)
		slog.Debug(funcName, "error", session.ErrNotFound)
		return session.ErrNotFound
	}

	delete(r.sessions, token)

	return nil
}

func (r *repo) expired(e entry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}

// sweep drops expired viewer entries so abandoned connections do not pile
// up in the map. Called under the lock.
func (r *repo) sweep() {
	for token, e := range r.sessions {
		if r.expired(e) {
			delete(r.sessions, token)
		}
	}
}
