// internal/game/session_store.go
package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/psykos/internal/codes"
	"github.com/jason-s-yu/psykos/internal/metrics"
	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/sirupsen/logrus"
)

// Registry owns the live sessions. Its lock is never held while a session lock is taken.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	codes      *codes.Allocator
	directory  *players.Directory
	deps       Deps
	onTeardown []func(code string)
}

func NewRegistry(alloc *codes.Allocator, dir *players.Directory, deps Deps) *Registry {
	if deps.Settings.DefaultRounds <= 0 {
		deps.Settings.DefaultRounds = DefaultRounds
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Scoring == nil {
		deps.Scoring = FixedPoints(DefaultPointsPerVote)
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		codes:     alloc,
		directory: dir,
		deps:      deps,
	}
}

// OnTeardown registers fn to run whenever a session is removed.
// Hooks run under the departing session's lock and must not call back into it.
func (r *Registry) OnTeardown(fn func(code string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTeardown = append(r.onTeardown, fn)
}

// Create allocates a code and starts a lobby with host as its only member.
func (r *Registry) Create(host *players.Player, category string, rounds int) (*Session, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidArgument)
	}
	if rounds == 0 {
		rounds = r.deps.Settings.DefaultRounds
	}
	if rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be positive", ErrInvalidArgument)
	}
	if limit := r.deps.Settings.MaxRounds; limit > 0 && rounds > limit {
		return nil, fmt.Errorf("%w: at most %d rounds", ErrInvalidArgument, limit)
	}
	if r.deps.Prompts == nil {
		return nil, fmt.Errorf("no prompt source configured")
	}

	code := r.codes.Allocate()
	host.SessionCode = code
	r.directory.Add(host)

	sess := newSession(code, category, rounds, host, r.deps, r.release, r.directory.Remove)
	sess.mu.Lock()
	sess.awaitBindUnsafe(host.ID)
	sess.commitUnsafe(host.ID, "create", map[string]interface{}{"category": category, "rounds": rounds})
	sess.mu.Unlock()

	r.mu.Lock()
	r.sessions[code] = sess
	r.mu.Unlock()
	metrics.SessionsActive.Inc()

	sess.logger.WithField("player", host.ID).Infof("session created by %s (%s, %d rounds)", host.Name, category, rounds)
	return sess, nil
}

// Get looks up a live session. Codes are case-insensitive.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[codes.Normalize(code)]
	return s, ok
}

// Join adds p to the session at code.
func (r *Registry) Join(code string, p *players.Player) (*Session, JoinResult, error) {
	sess, ok := r.Get(code)
	if !ok {
		return nil, JoinResult{}, ErrNotFound
	}
	p.SessionCode = sess.Code()
	r.directory.Add(p)
	res, err := sess.Join(p)
	if err != nil {
		r.directory.Remove(p.ID)
		return nil, JoinResult{}, err
	}
	return sess, res, nil
}

// Delete closes the session at code, if any, and always releases the code.
func (r *Registry) Delete(code string) {
	code = codes.Normalize(code)
	if sess, ok := r.Get(code); ok {
		sess.Close("session deleted")
	}
	r.codes.Release(code)
}

// Count is the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap closes sessions with no committed transition for longer than idle.
func (r *Registry) Reap(idle time.Duration) int {
	r.mu.Lock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	n := 0
	for _, s := range candidates {
		if s.LastActive().Before(cutoff) && s.Close("session idle for too long") {
			n++
		}
	}
	return n
}

// ReaperLoop runs Reap every idle/2 until ctx is done.
func (r *Registry) ReaperLoop(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(idle); n > 0 {
				r.deps.Logger.Infof("reaped %d idle sessions", n)
			}
		}
	}
}

// release is the sessions' teardown callback. It runs with the session lock held.
func (r *Registry) release(code string) {
	r.mu.Lock()
	_, existed := r.sessions[code]
	delete(r.sessions, code)
	hooks := append([]func(string){}, r.onTeardown...)
	r.mu.Unlock()

	r.codes.Release(code)
	r.directory.RemoveSession(code)
	if existed {
		metrics.SessionsActive.Dec()
	}
	for _, fn := range hooks {
		fn(code)
	}
}
