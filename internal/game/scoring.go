// internal/game/scoring.go
package game

import (
	"github.com/google/uuid"
)

// DefaultPointsPerVote is awarded to an answer's owner for each vote it receives.
const DefaultPointsPerVote = 10

// VoteContext is everything a scoring policy may look at for one vote.
type VoteContext struct {
	Category    string
	VoterID     uuid.UUID
	VotedForID  uuid.UUID
	Answer      string
	GroundTruth string // Empty unless the category supplies one
}

// ScoringPolicy computes the score delta for the answer owner. It must be pure.
type ScoringPolicy interface {
	Score(vc VoteContext) int
}

// FixedPoints awards the same value for every vote.
type FixedPoints int

func (f FixedPoints) Score(VoteContext) int { return int(f) }

// PolicySet routes to a category-specific policy, falling back to Default.
type PolicySet struct {
	Default    ScoringPolicy
	ByCategory map[string]ScoringPolicy
}

func (ps PolicySet) Score(vc VoteContext) int {
	if p, ok := ps.ByCategory[vc.Category]; ok && p != nil {
		return p.Score(vc)
	}
	if ps.Default == nil {
		return DefaultPointsPerVote
	}
	return ps.Default.Score(vc)
}

// scoreDelta applies the policy and clamps the result to be non-negative.
func scoreDelta(p ScoringPolicy, vc VoteContext) int {
	if p == nil {
		return DefaultPointsPerVote
	}
	if d := p.Score(vc); d > 0 {
		return d
	}
	return 0
}
