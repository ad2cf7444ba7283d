package game

import (
	"strings"
	"testing"
	"time"

	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	mb := newMockBroadcaster()
	reg, alloc, dir := newTestRegistry(mb, &seqPrompts{})
	host, _ := players.NewPlayer("Host", true)

	sess, err := reg.Create(host, "acronyms", 0)
	require.NoError(t, err)

	assert.Equal(t, PhaseLobby, sess.Phase())
	assert.Equal(t, 0, sess.CurrentRound())
	assert.Equal(t, host.ID, sess.HostID())
	assert.Equal(t, DefaultRounds, sess.Info().RoundTarget, "zero rounds uses the default")
	assert.True(t, alloc.InUse(sess.Code()))
	assert.Equal(t, sess.Code(), host.SessionCode)
	_, known := dir.Get(host.ID)
	assert.True(t, known)

	got, ok := reg.Get(sess.Code())
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryCreateValidates(t *testing.T) {
	reg, alloc, _ := newTestRegistry(newMockBroadcaster(), &seqPrompts{})
	host, _ := players.NewPlayer("Host", true)

	_, err := reg.Create(host, " ", 3)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = reg.Create(host, "acronyms", -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = reg.Create(host, "acronyms", 21)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, alloc.Len(), "rejected creates reserve no code")
	assert.Zero(t, reg.Count())
}

func TestRegistryCodesAreUnique(t *testing.T) {
	reg, _, _ := newTestRegistry(newMockBroadcaster(), &seqPrompts{})
	seen := map[string]bool{}
	for i := 0; i < 120; i++ {
		host, _ := players.NewPlayer("Host", true)
		sess, err := reg.Create(host, "ice-breaker", 1)
		require.NoError(t, err)
		require.False(t, seen[sess.Code()], "duplicate code %s", sess.Code())
		seen[sess.Code()] = true
	}
	assert.Equal(t, 120, reg.Count())
}

func TestRegistryGetIsCaseInsensitive(t *testing.T) {
	env := setupTestSession(t, 1, 3, nil)

	_, ok := env.reg.Get("  " + strings.ToLower(env.sess.Code()) + " ")
	assert.True(t, ok)
}

func TestRegistryJoinUnknownCode(t *testing.T) {
	reg, _, dir := newTestRegistry(newMockBroadcaster(), &seqPrompts{})
	p, _ := players.NewPlayer("Nobody", false)

	_, _, err := reg.Join("NOPE", p)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, dir.Len())
}

func TestRegistryJoinBroadcastsMembership(t *testing.T) {
	env := setupTestSession(t, 1, 3, nil)
	p, _ := players.NewPlayer("Guest", false)

	_, res, err := env.reg.Join(env.sess.Code(), p)
	require.NoError(t, err)
	assert.Equal(t, JoinResult{Category: "caption-this", RoundTarget: 3, InProgress: false}, res)

	evs := env.mb.eventsOfType(EventMembershipChanged)
	require.Len(t, evs, 1)
	mc := evs[0].Payload.(MembershipChanged)
	assert.Equal(t, 2, mc.Count)
	require.NotNil(t, mc.Joined)
	assert.Equal(t, "Guest", mc.Joined.Name)
	assert.False(t, mc.Joined.IsHost)
}

func TestRegistryDeleteReleasesCode(t *testing.T) {
	env := setupTestSession(t, 2, 3, nil)
	code := env.sess.Code()

	var torn []string
	env.reg.OnTeardown(func(c string) { torn = append(torn, c) })

	env.reg.Delete(code)
	env.reg.Delete(code)
	env.reg.Delete("NEVER-ISSUED")

	assert.False(t, env.alloc.InUse(code))
	assert.Zero(t, env.reg.Count())
	assert.True(t, env.sess.Closed())
	assert.Equal(t, []string{code}, torn)
	assert.Len(t, env.mb.eventsOfType(EventSessionClosed), 1)
}

func TestRegistryReapIdle(t *testing.T) {
	env := setupTestSession(t, 2, 3, nil)
	fresh, err := env.reg.Create(mustPlayer(t, "Fresh"), "ice-breaker", 3)
	require.NoError(t, err)

	env.sess.mu.Lock()
	env.sess.lastActive = time.Now().Add(-2 * time.Hour)
	env.sess.mu.Unlock()

	assert.Equal(t, 1, env.reg.Reap(time.Hour))
	assert.True(t, env.sess.Closed())
	assert.False(t, fresh.Closed())
	assert.Equal(t, 1, env.reg.Count())
}

func mustPlayer(t *testing.T, name string) *players.Player {
	t.Helper()
	p, err := players.NewPlayer(name, true)
	require.NoError(t, err)
	return p
}
