package application

import (
	"sync"

	"github.com/bnema/lightnode/internal/domain"
)

// sessionGuard serializes every access to the current session. A nil current
// session means a (re)connect is in progress and submitters must fail fast.
type sessionGuard struct {
	mu      sync.Mutex
	current *domain.Session
}

func (g *sessionGuard) install(session domain.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.current = &session
}

func (g *sessionGuard) responses() (<-chan string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return nil, false
	}
	return g.current.Responses, true
}

func (g *sessionGuard) withSession(fn func(domain.Session) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return domain.ErrSessionUnavailable
	}
	return fn(*g.current)
}

// retire detaches the current session and runs closeFn on it while still
// holding the lock, so no submit can race the close.
func (g *sessionGuard) retire(closeFn func(domain.Session) error) (domain.Session, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return domain.Session{}, false, nil
	}

	session := *g.current
	g.current = nil
	return session, true, closeFn(session)
}
