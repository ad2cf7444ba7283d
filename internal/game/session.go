// internal/game/session.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/cache"
	"github.com/jason-s-yu/psykos/internal/metrics"
	"github.com/jason-s-yu/psykos/internal/players"
	"github.com/sirupsen/logrus"
)

// Phase is a session's position in the round lifecycle.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseStarting Phase = "starting" // Prompts are being generated; the lock is not held.
	PhasePlaying  Phase = "playing"
	PhaseVoting   Phase = "voting"
	PhaseResults  Phase = "results"
	PhaseEnded    Phase = "ended"
)

const (
	// MinPlayers is the smallest membership a game can run with.
	MinPlayers = 2
	// DefaultRounds is used when a session is created without a round count.
	DefaultRounds = 10
	// MaxAnswerLength bounds answer text in runes.
	MaxAnswerLength = 280
	// DefaultBindTimeout is how long an admitted player has to open a connection.
	DefaultBindTimeout = 30 * time.Second
)

// PromptSource supplies round prompts. Implementations must fail open and
// return fallback text instead of an error.
type PromptSource interface {
	GeneratePrompt(ctx context.Context, category string, names []string) string
}

// ActionRecorder receives every committed transition in order. It must not block.
type ActionRecorder interface {
	Record(rec cache.SessionActionRecord)
}

// Settings tune session behavior.
type Settings struct {
	PromptAttempts int // Tries per round to get a prompt not used before in the session
	DefaultRounds  int
	MaxRounds      int
	BindTimeout    time.Duration // Admitted players who never bind are removed after this
}

// Deps are the collaborators shared by every session in a registry.
type Deps struct {
	Broadcaster Broadcaster
	Prompts     PromptSource
	Scoring     ScoringPolicy
	Recorder    ActionRecorder
	Logger      logrus.FieldLogger
	Settings    Settings
}

// JoinResult is what a joining player learns about the session.
type JoinResult struct {
	Category    string `json:"category"`
	RoundTarget int    `json:"roundTarget"`
	InProgress  bool   `json:"inProgress"`
}

// Session is the authoritative state of one running game. Exported methods take
// the session lock; methods ending in Unsafe assume it is held.
type Session struct {
	mu sync.Mutex

	code         string
	category     string
	roundTarget  int
	currentRound int
	phase        Phase

	members []uuid.UUID // Join order; host failover picks members[0]
	names   map[uuid.UUID]string
	avatars map[uuid.UUID]string
	hostID  uuid.UUID

	prompts     []string
	usedPrompts map[string]struct{}
	ballot      []AnswerOption

	answers    map[uuid.UUID]string
	votes      map[uuid.UUID]uuid.UUID
	skipVotes  map[uuid.UUID]struct{}
	readyVotes map[uuid.UUID]struct{}

	scores     map[uuid.UUID]int
	scoreOrder []uuid.UUID // Order in which players first entered the ledger

	// unbound holds a removal deadline for each member who has not bound yet.
	unbound map[uuid.UUID]*bindWait

	startGen    uint64
	closed      bool
	lastActive  time.Time
	actionIndex int

	broadcaster Broadcaster
	source      PromptSource
	scoring     ScoringPolicy
	recorder    ActionRecorder
	settings    Settings
	logger      logrus.FieldLogger

	// onTeardown is called with the lock held once the session is closed.
	onTeardown func(code string)
	// forget drops a player removed by the session itself from the directory.
	forget func(id uuid.UUID)
}

type bindWait struct {
	timer *time.Timer
}

func newSession(code, category string, rounds int, host *players.Player, deps Deps, onTeardown func(string), forget func(uuid.UUID)) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Session{
		code:        code,
		category:    category,
		roundTarget: rounds,
		phase:       PhaseLobby,
		members:     []uuid.UUID{host.ID},
		names:       map[uuid.UUID]string{host.ID: host.Name},
		avatars:     map[uuid.UUID]string{host.ID: host.Avatar},
		hostID:      host.ID,
		usedPrompts: make(map[string]struct{}),
		unbound:     make(map[uuid.UUID]*bindWait),
		scores:      make(map[uuid.UUID]int),
		lastActive:  time.Now(),
		broadcaster: deps.Broadcaster,
		source:      deps.Prompts,
		scoring:     deps.Scoring,
		recorder:    deps.Recorder,
		settings:    deps.Settings,
		logger:      logger.WithField("session", code),
		onTeardown:  onTeardown,
		forget:      forget,
	}
	if s.broadcaster == nil {
		s.broadcaster = nopBroadcaster{}
	}
	s.resetRoundUnsafe()
	return s
}

// Code returns the session's share code.
func (s *Session) Code() string { return s.code }

// Category is immutable after creation.
func (s *Session) Category() string { return s.category }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) HostID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

func (s *Session) CurrentRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound
}

// Members returns member ids in host-failover order.
func (s *Session) Members() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.members...)
}

// Scores returns a copy of the score ledger.
func (s *Session) Scores() map[uuid.UUID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]int, len(s.scores))
	for id, v := range s.scores {
		out[id] = v
	}
	return out
}

// IsMember reports whether id currently belongs to the session.
func (s *Session) IsMember(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isMemberUnsafe(id)
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastActive is the time of the last committed transition.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Info describes the session to a joining player.
func (s *Session) Info() JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoUnsafe()
}

func (s *Session) infoUnsafe() JoinResult {
	return JoinResult{
		Category:    s.category,
		RoundTarget: s.roundTarget,
		InProgress:  s.inProgressUnsafe(),
	}
}

// Join adds p to the session. Joining twice is a no-op.
func (s *Session) Join(p *players.Player) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return JoinResult{}, ErrNotFound
	}
	if s.phase == PhaseStarting {
		return JoinResult{}, fmt.Errorf("%w: game is starting, try again", ErrConcurrencyConflict)
	}
	if s.isMemberUnsafe(p.ID) {
		return s.infoUnsafe(), nil
	}

	s.members = append(s.members, p.ID)
	s.names[p.ID] = p.Name
	s.avatars[p.ID] = p.Avatar

	s.awaitBindUnsafe(p.ID)

	joined := s.viewUnsafe(p.ID)
	s.broadcastUnsafe(MembershipChanged{
		Members: s.membersViewUnsafe(),
		HostID:  s.hostID,
		Joined:  &joined,
		Count:   len(s.members),
	})
	// The denominators just grew.
	switch s.phase {
	case PhasePlaying:
		s.broadcastUnsafe(AnswerProgress{Submitted: len(s.answers), Total: len(s.members)})
		s.broadcastSkipProgressUnsafe()
	case PhaseResults:
		s.broadcastReadyProgressUnsafe()
	}
	s.commitUnsafe(p.ID, "join", map[string]interface{}{"name": p.Name})
	s.logger.WithField("player", p.ID).Infof("%s joined", p.Name)

	return s.infoUnsafe(), nil
}

// Bind runs attach and sends the caller a full snapshot, atomically with respect
// to other transitions, so the new connection observes no gap and no reordering.
// p is the directory profile; its name and avatar replace the session's copies.
func (s *Session) Bind(p *players.Player, attach func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotFound
	}
	if p == nil || p.SessionCode != s.code || !s.isMemberUnsafe(p.ID) {
		return fmt.Errorf("%w: player is not a member of this session", ErrNotFound)
	}
	if w, ok := s.unbound[p.ID]; ok {
		w.timer.Stop()
		delete(s.unbound, p.ID)
	}
	s.names[p.ID] = p.Name
	s.avatars[p.ID] = p.Avatar

	if attach != nil {
		attach()
	}
	s.sendSnapshotUnsafe(p.ID)
	return nil
}

// awaitBindUnsafe gives id until the bind timeout to open a connection.
func (s *Session) awaitBindUnsafe(id uuid.UUID) {
	if w, ok := s.unbound[id]; ok {
		w.timer.Stop()
	}
	d := s.settings.BindTimeout
	if d <= 0 {
		d = DefaultBindTimeout
	}
	w := &bindWait{}
	w.timer = time.AfterFunc(d, func() { s.expireUnbound(id, w) })
	s.unbound[id] = w
}

// expireUnbound removes a member whose bind deadline passed without a connection.
func (s *Session) expireUnbound(id uuid.UUID, w *bindWait) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.unbound[id] != w {
		return
	}
	delete(s.unbound, id)
	if !s.isMemberUnsafe(id) {
		return
	}
	s.logger.WithField("player", id).Infof("%s never connected, removing", s.names[id])
	s.leaveUnsafe(id)
	if s.forget != nil {
		s.forget(id)
	}
}

// Snapshot returns the session as seen by viewer.
func (s *Session) Snapshot(viewer uuid.UUID) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotUnsafe(viewer)
}

// Start moves the session from lobby into round 1. Prompt generation happens
// without the lock; the session sits in PhaseStarting meanwhile, and the result
// is discarded if anything invalidated the start before the lock is retaken.
func (s *Session) Start(ctx context.Context, requester uuid.UUID) error {
	s.mu.Lock()
	if err := s.checkStartUnsafe(requester); err != nil {
		s.mu.Unlock()
		return err
	}
	s.phase = PhaseStarting
	s.startGen++
	gen := s.startGen
	names := s.memberNamesUnsafe()
	used := make(map[string]struct{}, len(s.usedPrompts)+s.roundTarget)
	for p := range s.usedPrompts {
		used[p] = struct{}{}
	}
	target := s.roundTarget
	s.mu.Unlock()

	s.logger.WithField("rounds", target).Info("generating prompts")
	prompts, ok := s.generatePrompts(ctx, gen, names, used, target)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Info("session closed while generating prompts, discarding")
		return fmt.Errorf("%w: session closed while the game was starting", ErrNotFound)
	}
	if !ok || s.phase != PhaseStarting || s.startGen != gen {
		s.logger.Info("start interrupted, discarding prompts")
		return fmt.Errorf("%w: start was interrupted", ErrConcurrencyConflict)
	}
	if len(s.members) == 0 {
		s.teardownUnsafe("no players left")
		return fmt.Errorf("%w: every player left", ErrNotFound)
	}

	s.prompts = prompts
	s.usedPrompts = used
	s.currentRound = 1
	s.resetRoundUnsafe()
	s.phase = PhasePlaying

	s.broadcastUnsafe(RoundStarted{Round: 1, Total: s.roundTarget, Prompt: s.currentPromptUnsafe()})
	s.commitUnsafe(requester, "start", map[string]interface{}{"rounds": s.roundTarget})
	return nil
}

func (s *Session) checkStartUnsafe(requester uuid.UUID) error {
	switch {
	case s.closed:
		return ErrNotFound
	case requester != s.hostID:
		return fmt.Errorf("%w: only the host can start the game", ErrInvalidTransition)
	case s.phase == PhaseStarting:
		return fmt.Errorf("%w: game is already starting", ErrConcurrencyConflict)
	case s.phase != PhaseLobby:
		return fmt.Errorf("%w: game already in progress", ErrInvalidTransition)
	case len(s.members) < MinPlayers:
		return fmt.Errorf("%w: need at least %d players to start", ErrInsufficientMembers, MinPlayers)
	}
	return nil
}

// generatePrompts asks the source for n prompts, retrying a bounded number of
// times per round to avoid repeats. It reports false if the start it serves was
// abandoned part way.
func (s *Session) generatePrompts(ctx context.Context, gen uint64, names []string, used map[string]struct{}, n int) ([]string, bool) {
	attempts := s.settings.PromptAttempts
	if attempts < 1 {
		attempts = 1
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s.startAbandoned(gen) {
			return nil, false
		}
		var p string
		for a := 0; a < attempts; a++ {
			p = s.source.GeneratePrompt(ctx, s.category, names)
			if _, dup := used[p]; !dup {
				break
			}
		}
		used[p] = struct{}{}
		out = append(out, p)
	}
	return out, true
}

func (s *Session) startAbandoned(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.phase != PhaseStarting || s.startGen != gen
}

// SubmitAnswer records playerID's answer for the current round.
func (s *Session) SubmitAnswer(playerID uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorUnsafe(playerID, PhasePlaying); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: answer is empty", ErrInvalidArgument)
	}
	if len([]rune(text)) > MaxAnswerLength {
		return fmt.Errorf("%w: answer longer than %d characters", ErrInvalidArgument, MaxAnswerLength)
	}
	if _, done := s.answers[playerID]; done {
		return fmt.Errorf("%w: already answered this round", ErrInvalidTransition)
	}

	s.answers[playerID] = text
	s.broadcastUnsafe(AnswerProgress{Submitted: len(s.answers), Total: len(s.members)})
	s.commitUnsafe(playerID, "submit-answer", map[string]interface{}{"round": s.currentRound, "answer": text})

	if len(s.answers) == len(s.members) {
		s.enterVotingUnsafe()
	}
	return nil
}

// SubmitVote records voterID's vote and scores it immediately.
func (s *Session) SubmitVote(voterID, votedFor uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorUnsafe(voterID, PhaseVoting); err != nil {
		return err
	}
	if voterID == votedFor {
		return fmt.Errorf("%w: you cannot vote for yourself", ErrInvalidTransition)
	}
	if _, done := s.votes[voterID]; done {
		return fmt.Errorf("%w: already voted this round", ErrInvalidTransition)
	}
	answer, ok := s.answers[votedFor]
	if !ok {
		return fmt.Errorf("%w: no answer from that player this round", ErrInvalidTransition)
	}

	s.votes[voterID] = votedFor
	delta := scoreDelta(s.scoring, VoteContext{
		Category:   s.category,
		VoterID:    voterID,
		VotedForID: votedFor,
		Answer:     answer,
	})
	s.addScoreUnsafe(votedFor, delta)
	s.commitUnsafe(voterID, "submit-vote", map[string]interface{}{
		"round":     s.currentRound,
		"voted_for": votedFor.String(),
		"points":    delta,
	})

	if len(s.votes) == len(s.members) {
		s.showResultsUnsafe()
	}
	return nil
}

// RequestSkip adds playerID to the skip set; a majority skips the round.
func (s *Session) RequestSkip(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorUnsafe(playerID, PhasePlaying); err != nil {
		return err
	}
	if _, done := s.skipVotes[playerID]; done {
		return nil
	}

	s.skipVotes[playerID] = struct{}{}
	s.broadcastSkipProgressUnsafe()
	s.commitUnsafe(playerID, "request-skip", map[string]interface{}{"round": s.currentRound})

	if len(s.skipVotes) >= skipThreshold(len(s.members)) {
		s.advanceRoundUnsafe(true)
	}
	return nil
}

// MarkReady acknowledges the results screen. Repeating it is a no-op.
func (s *Session) MarkReady(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorUnsafe(playerID, PhaseResults); err != nil {
		return err
	}
	if _, done := s.readyVotes[playerID]; done {
		return nil
	}

	s.readyVotes[playerID] = struct{}{}
	s.broadcastReadyProgressUnsafe()
	s.commitUnsafe(playerID, "mark-ready", map[string]interface{}{"round": s.currentRound})

	if len(s.readyVotes) == len(s.members) {
		s.advanceRoundUnsafe(false)
	}
	return nil
}

// Leave removes playerID, handing off host and reverting to lobby as needed.
// Removing a non-member is a no-op; a closed session reports ErrNotFound.
func (s *Session) Leave(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotFound
	}
	s.leaveUnsafe(playerID)
	return nil
}

func (s *Session) leaveUnsafe(playerID uuid.UUID) {
	idx := s.indexOfUnsafe(playerID)
	if idx < 0 {
		return
	}
	if w, ok := s.unbound[playerID]; ok {
		w.timer.Stop()
		delete(s.unbound, playerID)
	}

	left := s.viewUnsafe(playerID)
	s.members = append(s.members[:idx], s.members[idx+1:]...)
	delete(s.answers, playerID)
	delete(s.votes, playerID)
	delete(s.skipVotes, playerID)
	delete(s.readyVotes, playerID)
	s.commitUnsafe(playerID, "leave", nil)
	s.logger.WithField("player", playerID).Infof("%s left", left.Name)

	if len(s.members) == 0 {
		s.teardownUnsafe("no players left")
		return
	}

	hostChanged := false
	if playerID == s.hostID {
		s.hostID = s.members[0]
		hostChanged = true
	}
	s.broadcastUnsafe(MembershipChanged{
		Members: s.membersViewUnsafe(),
		HostID:  s.hostID,
		Left:    &left,
		Count:   len(s.members),
	})
	if hostChanged {
		s.broadcastUnsafe(HostChanged{HostID: s.hostID, Name: s.names[s.hostID]})
		s.commitUnsafe(s.hostID, "host-changed", nil)
	}

	if s.phase != PhaseLobby && len(s.members) < MinPlayers {
		s.revertToLobbyUnsafe("not enough players to continue")
		return
	}
	s.recheckThresholdsUnsafe()
}

// recheckThresholdsUnsafe applies at most one transition that a shrinking
// membership has made due.
func (s *Session) recheckThresholdsUnsafe() {
	switch s.phase {
	case PhasePlaying:
		s.broadcastUnsafe(AnswerProgress{Submitted: len(s.answers), Total: len(s.members)})
		s.broadcastSkipProgressUnsafe()
		if len(s.answers) == len(s.members) {
			s.enterVotingUnsafe()
		} else if len(s.skipVotes) >= skipThreshold(len(s.members)) {
			s.advanceRoundUnsafe(true)
		}
	case PhaseVoting:
		s.ballot = s.ballotWithoutDepartedUnsafe()
		// With a single answer left its owner has nothing to vote for.
		if len(s.votes) == len(s.members) || len(s.ballot) < 2 {
			s.showResultsUnsafe()
		}
	case PhaseResults:
		s.broadcastReadyProgressUnsafe()
		if len(s.readyVotes) == len(s.members) {
			s.advanceRoundUnsafe(false)
		}
	}
}

// Close tears the session down after telling members why. It reports whether
// this call closed it.
func (s *Session) Close(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.broadcastUnsafe(SessionClosed{Reason: reason})
	s.teardownUnsafe(reason)
	return true
}

func (s *Session) enterVotingUnsafe() {
	s.phase = PhaseVoting
	ballot := make([]AnswerOption, 0, len(s.answers))
	for _, id := range s.members {
		if a, ok := s.answers[id]; ok {
			ballot = append(ballot, AnswerOption{PlayerID: id, Answer: a})
		}
	}
	rand.Shuffle(len(ballot), func(i, j int) { ballot[i], ballot[j] = ballot[j], ballot[i] })
	s.ballot = ballot

	s.broadcastUnsafe(VotingStarted{
		Round:   s.currentRound,
		Prompt:  s.currentPromptUnsafe(),
		Answers: append([]AnswerOption(nil), ballot...),
	})
	s.commitUnsafe(uuid.Nil, "voting-started", map[string]interface{}{"round": s.currentRound, "answers": len(ballot)})
}

func (s *Session) showResultsUnsafe() {
	s.phase = PhaseResults
	results := make([]AnswerResult, 0, len(s.answers))
	for _, owner := range s.members {
		answer, ok := s.answers[owner]
		if !ok {
			continue
		}
		voters := []uuid.UUID{}
		for _, voter := range s.members {
			if v, ok := s.votes[voter]; ok && v == owner {
				voters = append(voters, voter)
			}
		}
		results = append(results, AnswerResult{
			PlayerID: owner,
			Name:     s.names[owner],
			Answer:   answer,
			Voters:   voters,
			Votes:    len(voters),
		})
	}

	s.broadcastUnsafe(RoundResults{
		Round:   s.currentRound,
		Total:   s.roundTarget,
		Prompt:  s.currentPromptUnsafe(),
		Results: results,
		Scores:  s.standingsUnsafe(),
	})
	s.commitUnsafe(uuid.Nil, "round-results", map[string]interface{}{"round": s.currentRound})
}

// advanceRoundUnsafe moves to the next round, or ends the game after the last.
func (s *Session) advanceRoundUnsafe(skipped bool) {
	if s.currentRound >= s.roundTarget {
		s.endGameUnsafe()
		return
	}
	s.currentRound++
	s.resetRoundUnsafe()
	s.phase = PhasePlaying
	s.broadcastUnsafe(RoundStarted{
		Round:   s.currentRound,
		Total:   s.roundTarget,
		Prompt:  s.currentPromptUnsafe(),
		Skipped: skipped,
	})
	s.commitUnsafe(uuid.Nil, "round-started", map[string]interface{}{"round": s.currentRound, "skipped": skipped})
}

func (s *Session) endGameUnsafe() {
	standings := s.standingsUnsafe()
	ev := GameEnded{Standings: standings}
	if len(standings) > 0 {
		winner := standings[0]
		ev.Winner = &winner
	}
	s.phase = PhaseEnded
	s.broadcastUnsafe(ev)
	s.commitUnsafe(uuid.Nil, "game-ended", map[string]interface{}{"rounds": s.roundTarget})
	s.teardownUnsafe("game over")
}

func (s *Session) revertToLobbyUnsafe(reason string) {
	s.phase = PhaseLobby
	s.currentRound = 0
	s.prompts = nil
	s.resetRoundUnsafe()
	s.broadcastUnsafe(ReturnedToLobby{Reason: reason})
	s.commitUnsafe(uuid.Nil, "returned-to-lobby", map[string]interface{}{"reason": reason})
}

func (s *Session) teardownUnsafe(reason string) {
	if s.closed {
		return
	}
	s.closed = true
	s.phase = PhaseEnded
	s.members = nil
	for id, w := range s.unbound {
		w.timer.Stop()
		delete(s.unbound, id)
	}
	s.resetRoundUnsafe()
	s.logger.Infof("session torn down: %s", reason)
	if s.onTeardown != nil {
		s.onTeardown(s.code)
	}
}

func (s *Session) resetRoundUnsafe() {
	s.answers = make(map[uuid.UUID]string)
	s.votes = make(map[uuid.UUID]uuid.UUID)
	s.skipVotes = make(map[uuid.UUID]struct{})
	s.readyVotes = make(map[uuid.UUID]struct{})
	s.ballot = nil
}

func (s *Session) checkActorUnsafe(playerID uuid.UUID, want Phase) error {
	if s.closed {
		return ErrNotFound
	}
	if !s.isMemberUnsafe(playerID) {
		return fmt.Errorf("%w: not a member of this session", ErrInvalidTransition)
	}
	if s.phase == PhaseStarting {
		return fmt.Errorf("%w: game is starting", ErrConcurrencyConflict)
	}
	if s.phase != want {
		return fmt.Errorf("%w: not allowed while %s", ErrInvalidTransition, s.phase)
	}
	return nil
}

func (s *Session) addScoreUnsafe(id uuid.UUID, delta int) {
	if _, ok := s.scores[id]; !ok {
		s.scoreOrder = append(s.scoreOrder, id)
	}
	s.scores[id] += delta
}

// standingsUnsafe lists everyone in the ledger, then members who never scored,
// stable-sorted by score descending.
func (s *Session) standingsUnsafe() []Standing {
	out := make([]Standing, 0, len(s.scoreOrder)+len(s.members))
	seen := make(map[uuid.UUID]struct{}, cap(out))
	add := func(id uuid.UUID) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, Standing{
			PlayerID: id,
			Name:     s.names[id],
			Score:    s.scores[id],
			Present:  s.isMemberUnsafe(id),
		})
	}
	for _, id := range s.scoreOrder {
		add(id)
	}
	for _, id := range s.members {
		add(id)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Session) ballotWithoutDepartedUnsafe() []AnswerOption {
	out := s.ballot[:0]
	for _, opt := range s.ballot {
		if _, ok := s.answers[opt.PlayerID]; ok {
			out = append(out, opt)
		}
	}
	return out
}

func (s *Session) snapshotUnsafe(viewer uuid.UUID) SessionState {
	scores := make(map[uuid.UUID]int, len(s.scores))
	for id, v := range s.scores {
		scores[id] = v
	}
	st := SessionState{
		Code:         s.code,
		Category:     s.category,
		Phase:        s.phase,
		CurrentRound: s.currentRound,
		RoundTarget:  s.roundTarget,
		HostID:       s.hostID,
		Members:      s.membersViewUnsafe(),
		Scores:       scores,
		InProgress:   s.inProgressUnsafe(),
		You:          viewer,
	}
	switch s.phase {
	case PhasePlaying, PhaseVoting, PhaseResults:
		st.Prompt = s.currentPromptUnsafe()
		_, st.Answered = s.answers[viewer]
		_, st.Voted = s.votes[viewer]
	}
	if s.phase == PhaseVoting {
		st.Answers = append([]AnswerOption(nil), s.ballot...)
	}
	return st
}

func (s *Session) sendSnapshotUnsafe(viewer uuid.UUID) {
	s.sendToUnsafe(viewer, s.snapshotUnsafe(viewer))
	switch s.phase {
	case PhasePlaying:
		s.sendToUnsafe(viewer, AnswerProgress{Submitted: len(s.answers), Total: len(s.members)})
		s.sendToUnsafe(viewer, s.skipProgressUnsafe())
	case PhaseResults:
		s.sendToUnsafe(viewer, s.readyProgressUnsafe())
	}
}

func (s *Session) broadcastSkipProgressUnsafe() {
	s.broadcastUnsafe(s.skipProgressUnsafe())
}

func (s *Session) skipProgressUnsafe() SkipProgress {
	return SkipProgress{
		Count:  len(s.skipVotes),
		Total:  len(s.members),
		Needed: skipThreshold(len(s.members)),
	}
}

func (s *Session) broadcastReadyProgressUnsafe() {
	s.broadcastUnsafe(s.readyProgressUnsafe())
}

func (s *Session) readyProgressUnsafe() ReadyProgress {
	ready := make([]uuid.UUID, 0, len(s.readyVotes))
	for _, id := range s.members {
		if _, ok := s.readyVotes[id]; ok {
			ready = append(ready, id)
		}
	}
	return ReadyProgress{Count: len(s.readyVotes), Total: len(s.members), Ready: ready}
}

func (s *Session) broadcastUnsafe(p Payload) {
	s.broadcaster.Broadcast(s.code, NewEvent(p))
}

func (s *Session) sendToUnsafe(id uuid.UUID, p Payload) {
	s.broadcaster.SendTo(s.code, id, NewEvent(p))
}

// commitUnsafe stamps activity and forwards the transition to metrics and the action log.
func (s *Session) commitUnsafe(actor uuid.UUID, kind string, payload map[string]interface{}) {
	s.lastActive = time.Now()
	s.actionIndex++
	metrics.RecordTransition(kind)
	if s.recorder == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	s.recorder.Record(cache.SessionActionRecord{
		SessionCode:   s.code,
		ActionIndex:   s.actionIndex,
		ActorID:       actor,
		ActionType:    kind,
		ActionPayload: payload,
		Timestamp:     s.lastActive.UnixMilli(),
	})
}

func (s *Session) currentPromptUnsafe() string {
	if s.currentRound < 1 || s.currentRound > len(s.prompts) {
		return ""
	}
	return s.prompts[s.currentRound-1]
}

func (s *Session) inProgressUnsafe() bool {
	switch s.phase {
	case PhasePlaying, PhaseVoting, PhaseResults:
		return true
	}
	return false
}

func (s *Session) viewUnsafe(id uuid.UUID) PlayerView {
	return PlayerView{
		ID:     id,
		Name:   s.names[id],
		Avatar: s.avatars[id],
		IsHost: id == s.hostID,
		Score:  s.scores[id],
	}
}

func (s *Session) membersViewUnsafe() []PlayerView {
	out := make([]PlayerView, 0, len(s.members))
	for _, id := range s.members {
		out = append(out, s.viewUnsafe(id))
	}
	return out
}

func (s *Session) memberNamesUnsafe() []string {
	out := make([]string, 0, len(s.members))
	for _, id := range s.members {
		out = append(out, s.names[id])
	}
	return out
}

func (s *Session) isMemberUnsafe(id uuid.UUID) bool {
	return s.indexOfUnsafe(id) >= 0
}

func (s *Session) indexOfUnsafe(id uuid.UUID) int {
	for i, m := range s.members {
		if m == id {
			return i
		}
	}
	return -1
}

// skipThreshold is the majority needed to skip: ceil(n/2).
func skipThreshold(n int) int {
	return (n + 1) / 2
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, Event)          {}
func (nopBroadcaster) SendTo(string, uuid.UUID, Event) {}
