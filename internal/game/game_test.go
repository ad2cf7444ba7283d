// internal/game/game_test.go
package game

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/codes"
	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event               // Events sent to everyone
	playerEvents map[uuid.UUID][]Event // Events sent to specific players
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]Event),
	}
}

func (mb *mockBroadcaster) Broadcast(_ string, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) SendTo(_ string, playerID uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []Event{}
	mb.playerEvents = make(map[uuid.UUID][]Event)
}

func (mb *mockBroadcaster) getLastEvent() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

// eventsOfType returns every broadcast event with the given type, in order.
func (mb *mockBroadcaster) eventsOfType(typ EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.allEvents {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) playerEventsOf(playerID uuid.UUID) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return append([]Event(nil), mb.playerEvents[playerID]...)
}

// seqPrompts returns a new prompt on every call.
type seqPrompts struct {
	n atomic.Int64
}

func (p *seqPrompts) GeneratePrompt(_ context.Context, category string, _ []string) string {
	return fmt.Sprintf("%s prompt %d", category, p.n.Add(1))
}

// scriptedPrompts replays a fixed list, repeating the last entry when exhausted.
type scriptedPrompts struct {
	mu    sync.Mutex
	lines []string
	calls int
}

func (p *scriptedPrompts) GeneratePrompt(context.Context, string, []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.lines) {
		i = len(p.lines) - 1
	}
	p.calls++
	return p.lines[i]
}

// blockingPrompts holds every call until release is closed.
type blockingPrompts struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingPrompts() *blockingPrompts {
	return &blockingPrompts{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *blockingPrompts) GeneratePrompt(ctx context.Context, _ string, _ []string) string {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return "slow prompt " + uuid.NewString()
}

type testEnv struct {
	reg     *Registry
	alloc   *codes.Allocator
	dir     *players.Directory
	mb      *mockBroadcaster
	sess    *Session
	players []*players.Player
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRegistry(mb *mockBroadcaster, src PromptSource) (*Registry, *codes.Allocator, *players.Directory) {
	alloc := codes.NewAllocator(nil)
	dir := players.NewDirectory()
	reg := NewRegistry(alloc, dir, Deps{
		Broadcaster: mb,
		Prompts:     src,
		Logger:      quietLogger(),
		Settings:    Settings{PromptAttempts: 3, MaxRounds: 20},
	})
	return reg, alloc, dir
}

// setupTestSession creates a lobby with numPlayers members; players[0] is the host.
func setupTestSession(t *testing.T, numPlayers, rounds int, src PromptSource) *testEnv {
	t.Helper()
	if src == nil {
		src = &seqPrompts{}
	}
	mb := newMockBroadcaster()
	reg, _, _ := newTestRegistry(mb, src)
	return setupTestSessionOn(t, reg, mb, numPlayers, rounds)
}

func setupTestSessionOn(t *testing.T, reg *Registry, mb *mockBroadcaster, numPlayers, rounds int) *testEnv {
	t.Helper()
	host, err := players.NewPlayer("P0", true)
	require.NoError(t, err)
	sess, err := reg.Create(host, "caption-this", rounds)
	require.NoError(t, err)

	ps := []*players.Player{host}
	for i := 1; i < numPlayers; i++ {
		p, err := players.NewPlayer(fmt.Sprintf("P%d", i), false)
		require.NoError(t, err)
		_, _, err = reg.Join(sess.Code(), p)
		require.NoError(t, err)
		ps = append(ps, p)
	}

	mb.clear() // Clear events from setup phase
	return &testEnv{reg: reg, alloc: reg.codes, dir: reg.directory, mb: mb, sess: sess, players: ps}
}

// startGame starts the session and clears the start events.
func (env *testEnv) startGame(t *testing.T) {
	t.Helper()
	require.NoError(t, env.sess.Start(context.Background(), env.players[0].ID))
	require.Equal(t, PhasePlaying, env.sess.Phase())
	env.mb.clear()
}

// answerAll has every member answer, which moves the session into voting.
func (env *testEnv) answerAll(t *testing.T) {
	t.Helper()
	for i, p := range env.players {
		if !env.sess.IsMember(p.ID) {
			continue
		}
		require.NoError(t, env.sess.SubmitAnswer(p.ID, fmt.Sprintf("answer from %d", i)))
	}
	require.Equal(t, PhaseVoting, env.sess.Phase())
}

// counts returns answers, votes and members sizes under the lock.
func (env *testEnv) counts() (answers, votes, members int) {
	env.sess.mu.Lock()
	defer env.sess.mu.Unlock()
	return len(env.sess.answers), len(env.sess.votes), len(env.sess.members)
}
