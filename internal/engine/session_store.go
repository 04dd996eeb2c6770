package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	apperrors "nihilism/server/internal/errors"
	"nihilism/server/internal/game"
	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/models"
	"nihilism/server/internal/storage"
)

const (
	defaultNarratorTimeout = 60 * time.Second
	defaultRecentMemories  = 5
)

// Options configures a SessionStore
type Options struct {
	Rules     game.Rules
	Narrator  interfaces.Narrator
	Snapshots interfaces.SnapshotStore
	// RecentMemories is how many key memories the narrator is shown.
	RecentMemories  int
	NarratorTimeout time.Duration
	Now             func() time.Time
}

// session guards one player. mu protects the player itself and is never held
// across a narrator call; gen serialises narration for the player so only one
// moment is generated at a time; saveMu orders snapshot writes
type session struct {
	mu     sync.Mutex
	gen    sync.Mutex
	saveMu sync.Mutex
	player *models.Player
}

// SessionStore owns every live Player and orchestrates the loop rules, the
// narrator and the snapshot store around them
type SessionStore struct {
	rules           game.Rules
	narrator        interfaces.Narrator
	snapshots       interfaces.SnapshotStore
	recentMemories  int
	narratorTimeout time.Duration
	now             func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session

	obsMu     sync.RWMutex
	observers []Observer

	choicesAccepted  atomic.Int64
	momentsGenerated atomic.Int64
	upstreamFailures atomic.Int64
	saves            atomic.Int64
}

// Stats are counters exposed on the health endpoint
type Stats struct {
	ActiveSessions   int   `json:"active_sessions"`
	ChoicesAccepted  int64 `json:"choices_accepted"`
	MomentsGenerated int64 `json:"moments_generated"`
	UpstreamFailures int64 `json:"upstream_failures"`
	Saves            int64 `json:"saves"`
}

// MomentResult is the outcome of start
type MomentResult struct {
	Player *models.Player          `json:"player"`
	Moment *models.NarrativeMoment `json:"moment"`
	Ending *game.EndingView        `json:"ending,omitempty"`
	// Generated is true when the narrator was called for this result.
	Generated bool `json:"generated"`
}

// ChoiceResult is the outcome of make_choice
type ChoiceResult struct {
	Player   *models.Player          `json:"player"`
	Choice   models.Choice           `json:"choice"`
	Polarity models.Polarity         `json:"polarity"`
	Moment   *models.NarrativeMoment `json:"moment,omitempty"`
	Ending   *game.EndingView        `json:"ending,omitempty"`
}

// NewSessionStore creates an empty store
func NewSessionStore(opts Options) *SessionStore {
	if opts.Snapshots == nil {
		opts.Snapshots = storage.NewMemoryStore()
	}
	if opts.RecentMemories <= 0 {
		opts.RecentMemories = defaultRecentMemories
	}
	if opts.NarratorTimeout <= 0 {
		opts.NarratorTimeout = defaultNarratorTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionStore{
		rules:           opts.Rules,
		narrator:        opts.Narrator,
		snapshots:       opts.Snapshots,
		recentMemories:  opts.RecentMemories,
		narratorTimeout: opts.NarratorTimeout,
		now:             opts.Now,
		sessions:        make(map[string]*session),
	}
}

// Subscribe registers an observer for session events
func (s *SessionStore) Subscribe(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

func (s *SessionStore) publish(events ...Event) {
	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()

	for _, ev := range events {
		for _, o := range observers {
			o.Notify(ev)
		}
	}
}

func (s *SessionStore) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "player not found",
			map[string]string{"player_id": id})
	}
	return sess, nil
}

// CreatePlayer starts a new session with zeroed memory and loop 1
func (s *SessionStore) CreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	now := s.now()
	p := models.NewPlayer(name, now)

	s.mu.Lock()
	s.sessions[p.ID] = &session{player: p}
	s.mu.Unlock()

	log.Printf("[SessionStore] Player created: %s", p.ID)
	out := p.Clone()
	s.publish(newEvent(EventPlayerCreated, out, now))
	return out, nil
}

// Get returns a copy of the live player
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Player, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.player.Clone(), nil
}

// Start returns the moment the player should see. It generates an opening
// moment when the current loop has none and retries the continuation of a
// pending choice; otherwise it returns the latest moment untouched
func (s *SessionStore) Start(ctx context.Context, id string) (*MomentResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.gen.Lock()
	defer sess.gen.Unlock()

	sess.mu.Lock()
	need := game.NextMomentNeed(sess.player)
	if need == game.NeedNone {
		res := s.momentResult(sess.player, false)
		sess.mu.Unlock()
		return res, nil
	}
	var req *interfaces.NarrativeRequest
	if need == game.NeedContinuation {
		pending := *sess.player.PendingChoice
		req = s.buildRequest(sess.player, &pending, game.Classify(pending, sess.player.CurrentMoment()))
	} else {
		req = s.buildRequest(sess.player, nil, "")
	}
	sess.mu.Unlock()

	res, events, err := s.narrate(ctx, sess, req)
	s.publish(events...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MakeChoice commits a choice and asks the narrator for the follow-up moment.
// Memory is committed before the narrator is called; when narration fails
// the committed result is returned together with the upstream error and the
// follow-up is generated by the next Start
func (s *SessionStore) MakeChoice(ctx context.Context, id, choiceID string) (*ChoiceResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.gen.Lock()
	defer sess.gen.Unlock()

	now := s.now()
	sess.mu.Lock()
	outcome, err := s.rules.MakeChoice(sess.player, choiceID, now)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	s.choicesAccepted.Inc()

	chosen := newEvent(EventChoiceMade, sess.player, now)
	chosen.Choice = &outcome.Choice
	chosen.Polarity = outcome.Polarity
	result := &ChoiceResult{
		Choice:   outcome.Choice,
		Polarity: outcome.Polarity,
	}

	if outcome.Ending != nil {
		result.Player = sess.player.Clone()
		result.Ending = game.NewEndingView(sess.player)
		chosen.Ending = result.Ending
		terminal := outcome.Terminal.Clone()
		result.Moment = &terminal
		sess.mu.Unlock()

		log.Printf("[SessionStore] Player %s reached ending %s", id, *outcome.Ending)
		ended := newEvent(EventEndingReached, result.Player, now)
		ended.Moment = result.Moment
		ended.Ending = result.Ending
		s.publish(chosen, ended)
		return result, nil
	}

	req := s.buildRequest(sess.player, &outcome.Choice, outcome.Polarity)
	committed := sess.player.Clone()
	sess.mu.Unlock()
	s.publish(chosen)

	res, events, err := s.narrate(ctx, sess, req)
	s.publish(events...)
	if err != nil {
		result.Player = committed
		return result, err
	}
	result.Player = res.Player
	result.Moment = res.Moment
	return result, nil
}

// narrate calls the narrator for req and appends the moment if the player is
// still waiting for it. The caller holds sess.gen
func (s *SessionStore) narrate(ctx context.Context, sess *session, req *interfaces.NarrativeRequest) (*MomentResult, []Event, error) {
	if s.narrator == nil {
		return nil, nil, apperrors.New(apperrors.CodeUpstream, "no narrator configured")
	}

	genCtx, cancel := context.WithTimeout(ctx, s.narratorTimeout)
	narration, err := s.narrator.Generate(genCtx, req)
	cancel()

	if err != nil {
		s.upstreamFailures.Inc()
		upErr := upstreamError(genCtx, err)
		log.Printf("[SessionStore] Narration failed for %s: %v", req.PlayerID, err)

		sess.mu.Lock()
		failed := newEvent(EventNarrationFailed, sess.player, s.now())
		sess.mu.Unlock()
		failed.Error = upErr.Error()
		return nil, []Event{failed}, upErr
	}

	now := s.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	p := sess.player
	if !stillWaiting(p, req) {
		// A reset or load replaced what this moment was generated for.
		return s.momentResult(p, false), nil, nil
	}

	moment := narration.Moment
	if moment.Timestamp.IsZero() {
		moment.Timestamp = now
	}
	moment.Timestamp = moment.Timestamp.UTC()
	appended := s.rules.AppendMoment(p, moment, narration.Deaths, narration.Truths)
	s.momentsGenerated.Inc()

	res := s.momentResult(p, true)
	ev := newEvent(EventMomentAdded, p, now)
	clone := appended.Clone()
	ev.Moment = &clone
	return res, []Event{ev}, nil
}

// stillWaiting reports whether p is in the state req was built from
func stillWaiting(p *models.Player, req *interfaces.NarrativeRequest) bool {
	if p.CurrentLoop.Number != req.LoopNumber {
		return false
	}
	switch game.NextMomentNeed(p) {
	case game.NeedOpening:
		return req.Choice == nil
	case game.NeedContinuation:
		return req.Choice != nil && p.PendingChoice.ID == req.Choice.ID
	default:
		return false
	}
}

func (s *SessionStore) momentResult(p *models.Player, generated bool) *MomentResult {
	res := &MomentResult{
		Player:    p.Clone(),
		Ending:    game.NewEndingView(p),
		Generated: generated,
	}
	if m := p.LatestMoment(); m != nil {
		clone := m.Clone()
		res.Moment = &clone
	}
	return res
}

func (s *SessionStore) buildRequest(p *models.Player, choice *models.Choice, polarity models.Polarity) *interfaces.NarrativeRequest {
	req := &interfaces.NarrativeRequest{
		PlayerID:        p.ID,
		PlayerName:      p.Name,
		LoopNumber:      p.CurrentLoop.Number,
		TotalLoops:      p.Memory.TotalLoops,
		NihilismScore:   p.Memory.NihilismScore,
		RecentMemories:  p.Memory.RecentKeyMemories(s.recentMemories),
		ChoicesThisLoop: append([]string{}, p.CurrentLoop.ChoicesMade...),
		Polarity:        polarity,
	}
	if m := p.LatestMoment(); m != nil {
		req.PreviousText = m.Text
	}
	if choice != nil {
		c := *choice
		req.Choice = &c
	}
	return req
}

// upstreamError classifies a narrator failure as a timeout or a plain
// upstream error
func upstreamError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.Wrap(apperrors.CodeUpstreamTimeout, "narrator timed out", err)
	default:
		return apperrors.Wrap(apperrors.CodeUpstream, "narrator request failed", err)
	}
}

// Reset ends the current loop and starts the next one
func (s *SessionStore) Reset(ctx context.Context, id string) (*models.Player, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess.mu.Lock()
	if err := s.rules.ResetLoop(sess.player, now); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	out := sess.player.Clone()
	sess.mu.Unlock()

	log.Printf("[SessionStore] Player %s reset to loop %d", id, out.CurrentLoop.Number)
	s.publish(newEvent(EventLoopReset, out, now))
	return out, nil
}

// Save writes a snapshot of the live player
func (s *SessionStore) Save(ctx context.Context, id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}

	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	sess.mu.Lock()
	snapshot := sess.player.Clone()
	sess.mu.Unlock()

	if err := s.snapshots.Put(ctx, snapshot); err != nil {
		return apperrors.Wrap(apperrors.CodePersistence, "failed to save player", err)
	}
	s.saves.Inc()
	s.publish(newEvent(EventSaved, snapshot, s.now()))
	return nil
}

// Load replaces the live player with its saved snapshot. When nothing is
// saved the live session, if any, is returned as is. A concluded session is
// never replaced by a snapshot taken before its ending
func (s *SessionStore) Load(ctx context.Context, id string) (*models.Player, error) {
	loaded, err := s.snapshots.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		if live, getErr := s.Get(ctx, id); getErr == nil {
			return live, nil
		}
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "no saved game for player",
			map[string]string{"player_id": id})
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePersistence, "failed to load player", err)
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{player: loaded}
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	if ok {
		// An ending is final; only a snapshot that shares it may replace the session.
		if sess.player.Concluded() && !loaded.Concluded() {
			sess.mu.Unlock()
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidState, "session has reached an ending",
				map[string]string{"player_id": id})
		}
		sess.player = loaded
	}
	out := sess.player.Clone()
	sess.mu.Unlock()

	log.Printf("[SessionStore] Player %s loaded at loop %d", id, out.CurrentLoop.Number)
	s.publish(newEvent(EventLoaded, out, s.now()))
	return out, nil
}

// List returns the ids of all saved players
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePersistence, "failed to list saved players", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ending returns the player's ending, or nil while the session continues
func (s *SessionStore) Ending(ctx context.Context, id string) (*game.EndingView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return game.NewEndingView(sess.player), nil
}

// Delete drops the live session and its snapshot
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, live := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.snapshots.Delete(ctx, id); err != nil {
		return apperrors.Wrap(apperrors.CodePersistence, "failed to delete saved player", err)
	}
	if live {
		sess.mu.Lock()
		ev := newEvent(EventDeleted, sess.player, s.now())
		sess.mu.Unlock()
		s.publish(ev)
	}
	log.Printf("[SessionStore] Player deleted: %s", id)
	return nil
}

// Stats returns the store counters
func (s *SessionStore) Stats() Stats {
	s.mu.RLock()
	active := len(s.sessions)
	s.mu.RUnlock()
	return Stats{
		ActiveSessions:   active,
		ChoicesAccepted:  s.choicesAccepted.Load(),
		MomentsGenerated: s.momentsGenerated.Load(),
		UpstreamFailures: s.upstreamFailures.Load(),
		Saves:            s.saves.Load(),
	}
}

// Close releases the snapshot store
func (s *SessionStore) Close() error {
	if err := s.snapshots.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot store: %w", err)
	}
	return nil
}
