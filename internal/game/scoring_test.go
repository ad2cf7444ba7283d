package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreFunc func(VoteContext) int

func (f scoreFunc) Score(vc VoteContext) int { return f(vc) }

func TestFixedPoints(t *testing.T) {
	assert.Equal(t, 7, FixedPoints(7).Score(VoteContext{}))
}

func TestPolicySetRoutesByCategory(t *testing.T) {
	ps := PolicySet{
		Default: FixedPoints(10),
		ByCategory: map[string]ScoringPolicy{
			"is-that-a-fact": scoreFunc(func(vc VoteContext) int {
				if vc.Answer == vc.GroundTruth {
					return 25
				}
				return 5
			}),
		},
	}

	assert.Equal(t, 10, ps.Score(VoteContext{Category: "caption-this"}))
	assert.Equal(t, 25, ps.Score(VoteContext{Category: "is-that-a-fact", Answer: "yes", GroundTruth: "yes"}))
	assert.Equal(t, 5, ps.Score(VoteContext{Category: "is-that-a-fact", Answer: "no", GroundTruth: "yes"}))
	assert.Equal(t, DefaultPointsPerVote, PolicySet{}.Score(VoteContext{}))
}

func TestScoreDeltaClampsNegative(t *testing.T) {
	assert.Zero(t, scoreDelta(FixedPoints(-3), VoteContext{}))
	assert.Equal(t, DefaultPointsPerVote, scoreDelta(nil, VoteContext{}))
}

func TestSessionUsesInjectedPolicy(t *testing.T) {
	mb := newMockBroadcaster()
	reg, _, _ := newTestRegistry(mb, &seqPrompts{})
	reg.deps.Scoring = scoreFunc(func(vc VoteContext) int { return len(vc.Answer) })

	env := setupTestSessionOn(t, reg, mb, 2, 1)
	env.startGame(t)
	require.NoError(t, env.sess.SubmitAnswer(env.players[0].ID, "abc"))
	require.NoError(t, env.sess.SubmitAnswer(env.players[1].ID, "hello"))

	require.NoError(t, env.sess.SubmitVote(env.players[0].ID, env.players[1].ID))
	assert.Equal(t, 5, env.sess.Scores()[env.players[1].ID])

	require.NoError(t, env.sess.SubmitVote(env.players[1].ID, env.players[0].ID))
	assert.Equal(t, 3, env.sess.Scores()[env.players[0].ID])
}
