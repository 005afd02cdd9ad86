package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/staffdrill/internal/catalog"
	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/generator"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
)

// Persister stores encoded profiles and the answer history.
type Persister interface {
	LoadProfile(ctx context.Context, key string) ([]byte, bool, error)
	SaveProfile(ctx context.Context, key string, data []byte) error
	RecordAnswer(ctx context.Context, key string, data []byte, ans model.Answer) error
	DeleteProfile(ctx context.Context, key string) error
}

// Question is one rendered flashcard.
type Question struct {
	ID        int
	Stage     model.Stage
	NoteIndex int
	Note      catalog.Note
	Mastery   float64
	Choices   []string
	TimeLimit time.Duration
	AskedAt   time.Time
	Status    string
}

// Exposure is one priming step.
type Exposure struct {
	Position catalog.Position
	Index    int
	Required int
	Status   string
}

// Result reports what an answer or acknowledgment changed.
type Result struct {
	Outcome
	QuestionID    int
	Note          catalog.Note
	NoteAdvanced  bool
	StageComplete bool
	// Advanced is true when the stage index moved forward.
	Advanced bool
	// Stage is the stage active after the update.
	Stage model.Stage
}

type pending struct {
	q        Question
	resolved bool
}

// Session is the context of one trainer run: the loaded profile, the
// in-memory counters, and the question currently on screen. It is not safe
// for concurrent use; deadline callbacks must hand control back to the
// owning goroutine instead of calling into the Session.
type Session struct {
	variant   curriculum.Variant
	store     Persister
	gen       *generator.Generator
	log       *zap.Logger
	now       func() time.Time
	sessionID string

	profile      model.Profile
	counters     model.SessionCounters
	primingIndex int

	seq      int
	current  *pending
	deadline *time.Timer
}

// Option configures a Session.
type Option func(*Session)

// WithGenerator sets the random source used for picks and choices.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Session) {
		s.gen = g
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Open loads the variant's profile (falling back to defaults when the stored
// record is missing or malformed), applies decay, and saves the result.
func Open(ctx context.Context, store Persister, v curriculum.Variant, opts ...Option) (*Session, error) {
	s := &Session{
		variant:   v,
		store:     store,
		gen:       generator.New(),
		log:       zap.NewNop(),
		now:       time.Now,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, found, err := store.LoadProfile(ctx, v.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	p, err := profile.Decode(raw, v)
	if err != nil {
		s.log.Warn("stored profile unreadable, starting from defaults",
			zap.String("key", v.StorageKey), zap.Error(err))
	}
	before := p.DecayedThrough
	p = ApplyDecay(p, s.now(), v.DecayPerDay)
	if p.DecayedThrough != nil && (before == nil || !p.DecayedThrough.Equal(*before)) {
		s.log.Info("applied mastery decay",
			zap.String("key", v.StorageKey), zap.Timep("through", p.DecayedThrough))
	}
	s.profile = p
	s.log.Debug("profile loaded",
		zap.String("key", v.StorageKey), zap.Bool("found", found), zap.Int("stage", p.CurrentStage))

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Variant returns the curriculum in use.
func (s *Session) Variant() curriculum.Variant {
	return s.variant
}

// Profile returns a copy of the learner state.
func (s *Session) Profile() model.Profile {
	return s.profile.Clone()
}

// Counters returns the current session counters.
func (s *Session) Counters() model.SessionCounters {
	return s.counters
}

// Stage returns the active stage.
func (s *Session) Stage() model.Stage {
	return s.variant.Stage(s.profile.CurrentStage)
}

// SessionID identifies the current practice run in the answer history.
func (s *Session) SessionID() string {
	return s.sessionID
}

// Question returns the question on screen, if any.
func (s *Session) Question() (Question, bool) {
	if s.current == nil || s.current.resolved {
		return Question{}, false
	}
	return s.current.q, true
}

// Start begins a practice run: counters reset and a new run id is issued.
func (s *Session) Start() {
	s.counters = model.SessionCounters{}
	s.sessionID = uuid.NewString()
	s.current = nil
	s.stopDeadline()
}

// Pause drops the question on screen without scoring it.
func (s *Session) Pause() {
	s.current = nil
	s.stopDeadline()
}

// Next draws the next question for the active stage. When the stage is timed
// and onExpire is non-nil, onExpire(id) is called from a timer goroutine once
// the limit passes; the receiver should route it back to Expire. Arming a new
// deadline always cancels the previous one.
func (s *Session) Next(onExpire func(id int)) (Question, error) {
	stage := s.Stage()
	if stage.Mode == model.ModePriming {
		return Question{}, ErrPriming
	}
	pool := Pool(stage, s.profile)
	states := make([]model.NoteState, len(pool))
	labels := make([]string, len(pool))
	for i, idx := range pool {
		states[i] = s.profile.Notes[idx]
		labels[i] = s.profile.Notes[idx].Label
	}
	idx := pool[s.gen.Pick(states, s.variant.WeightCeiling)]
	note := catalog.At(idx)

	s.seq++
	q := Question{
		ID:        s.seq,
		Stage:     stage,
		NoteIndex: idx,
		Note:      note,
		Mastery:   s.profile.Notes[idx].Mastery,
		Choices:   s.gen.Choices(note.Label, labels, catalog.Labels()),
		TimeLimit: stage.TimeLimit,
		AskedAt:   s.now(),
		Status:    PhaseStatus(stage, s.profile, s.counters, note.Label),
	}
	s.current = &pending{q: q}

	s.stopDeadline()
	if stage.Timed() && onExpire != nil {
		id := q.ID
		s.deadline = time.AfterFunc(stage.TimeLimit, func() {
			onExpire(id)
		})
	}
	return q, nil
}

// Answer resolves question id with the chosen label.
func (s *Session) Answer(ctx context.Context, id int, label string) (Result, error) {
	return s.resolve(ctx, id, label)
}

// Expire resolves question id as a timeout.
func (s *Session) Expire(ctx context.Context, id int) (Result, error) {
	return s.resolve(ctx, id, "")
}

func (s *Session) resolve(ctx context.Context, id int, label string) (Result, error) {
	if s.current == nil || s.current.resolved || s.current.q.ID != id {
		return Result{}, ErrStale
	}
	s.current.resolved = true
	s.stopDeadline()

	q := s.current.q
	now := s.now()
	elapsed := now.Sub(q.AskedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	out := Score(&s.profile, q.NoteIndex, label, elapsed, now)

	s.counters.Attempts++
	if out.Correct {
		s.counters.Correct++
		s.counters.ReactionTotalMs += elapsed.Milliseconds()
	}
	if q.Stage.Mode == model.ModeStress {
		s.counters.StressQuestions++
	}

	res := Result{Outcome: out, QuestionID: id, Note: q.Note}
	res.NoteAdvanced = AdvanceNote(q.Stage, &s.profile, q.NoteIndex)
	if Completed(q.Stage, s.profile, s.counters) {
		res.StageComplete = true
		res.Advanced = s.advance()
	}
	res.Stage = s.Stage()

	s.log.Debug("answer scored",
		zap.Int("question", id),
		zap.String("note", q.Note.Name),
		zap.String("chosen", label),
		zap.Bool("correct", out.Correct),
		zap.Duration("reaction", elapsed),
		zap.Float64("mastery", out.Mastery))

	ans := model.Answer{
		SessionID:  s.sessionID,
		ProfileKey: s.variant.StorageKey,
		StageID:    q.Stage.ID,
		Mode:       q.Stage.Mode,
		Note:       q.Note.Name,
		Chosen:     label,
		Correct:    out.Correct,
		TimedOut:   out.TimedOut,
		ReactionMs: elapsed.Milliseconds(),
		Mastery:    out.Mastery,
		AnsweredAt: now,
	}
	data, err := profile.Encode(s.profile)
	if err != nil {
		return res, err
	}
	if err := s.store.RecordAnswer(ctx, s.variant.StorageKey, data, ans); err != nil {
		return res, fmt.Errorf("failed to record answer: %w", err)
	}
	return res, nil
}

// Expose returns the priming step to show next.
func (s *Session) Expose() (Exposure, error) {
	stage := s.Stage()
	if stage.Mode != model.ModePriming {
		return Exposure{}, ErrNotPriming
	}
	return Exposure{
		Position: catalog.PrimingPosition(s.primingIndex),
		Index:    s.profile.StageProgress.PrimingExposures,
		Required: stage.ExposuresRequired,
		Status:   PhaseStatus(stage, s.profile, s.counters, ""),
	}, nil
}

// Continue acknowledges the current priming exposure.
func (s *Session) Continue(ctx context.Context) (Result, error) {
	stage := s.Stage()
	if stage.Mode != model.ModePriming {
		return Result{}, ErrNotPriming
	}
	s.profile.StageProgress.PrimingExposures++
	s.primingIndex++

	var res Result
	if Completed(stage, s.profile, s.counters) {
		res.StageComplete = true
		res.Advanced = s.advance()
	}
	res.Stage = s.Stage()
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Session) advance() bool {
	from := s.profile.CurrentStage
	moved := Advance(&s.profile, &s.counters, len(s.variant.Stages))
	s.primingIndex = 0
	s.log.Info("stage complete",
		zap.String("key", s.variant.StorageKey),
		zap.Int("from", from),
		zap.Int("to", s.profile.CurrentStage))
	return moved
}

// Reset replaces the profile with defaults and clears the answer history.
func (s *Session) Reset(ctx context.Context) error {
	s.stopDeadline()
	s.current = nil
	s.counters = model.SessionCounters{}
	s.primingIndex = 0
	s.profile = profile.Default(s.variant)
	if err := s.store.DeleteProfile(ctx, s.variant.StorageKey); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}
	s.log.Info("profile reset", zap.String("key", s.variant.StorageKey))
	return s.persist(ctx)
}

// Close cancels any pending deadline and saves the profile.
func (s *Session) Close(ctx context.Context) error {
	s.stopDeadline()
	s.current = nil
	return s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) error {
	data, err := profile.Encode(s.profile)
	if err != nil {
		return err
	}
	if err := s.store.SaveProfile(ctx, s.variant.StorageKey, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *Session) stopDeadline() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
}

// StageStatus labels stage i relative to the current stage index.
func StageStatus(current, i int) string {
	switch {
	case i < current:
		return "Complete"
	case i == current:
		return "Active"
	default:
		return "Locked"
	}
}
