package trainer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/generator"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
)

type memStore struct {
	profiles map[string][]byte
	answers  []model.Answer
	saves    int
	failRec  error
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string][]byte{}}
}

func (m *memStore) LoadProfile(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m.profiles[key]
	return data, ok, nil
}

func (m *memStore) SaveProfile(_ context.Context, key string, data []byte) error {
	m.saves++
	m.profiles[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) RecordAnswer(_ context.Context, key string, data []byte, ans model.Answer) error {
	if m.failRec != nil {
		return m.failRec
	}
	m.profiles[key] = append([]byte(nil), data...)
	m.answers = append(m.answers, ans)
	return nil
}

func (m *memStore) DeleteProfile(_ context.Context, key string) error {
	delete(m.profiles, key)
	m.answers = nil
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.t = c.t.Add(d)
}

func openSession(t *testing.T, store *memStore, v curriculum.Variant, clock *fakeClock) *Session {
	t.Helper()
	s, err := Open(context.Background(), store, v,
		WithGenerator(generator.NewWithSeed(1)),
		WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func answerCorrect(t *testing.T, s *Session, clock *fakeClock, reaction time.Duration) Result {
	t.Helper()
	q, err := s.Next(nil)
	require.NoError(t, err)
	clock.Add(reaction)
	res, err := s.Answer(context.Background(), q.ID, q.Note.Label)
	require.NoError(t, err)
	require.True(t, res.Correct)
	return res
}

func TestOpenCreatesDefaultProfile(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Staged(), clock)

	assert.Equal(t, model.ModePriming, s.Stage().Mode)
	assert.Equal(t, 40.0, s.Profile().Notes[0].Mastery)
	assert.Contains(t, store.profiles, "note-instinct-system")
	assert.NotEmpty(t, s.SessionID())
}

func TestOpenMalformedProfileLogsAndDefaults(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore()
	store.profiles["note-instinct-system"] = []byte("{broken")

	s, err := Open(context.Background(), store, curriculum.Staged(), WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, profile.Default(curriculum.Staged()), s.Profile())
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "unreadable")
}

func TestOpenAppliesDecay(t *testing.T) {
	v := curriculum.Staged()
	p := profile.Default(v)
	for i := range p.Notes {
		p.Notes[i].Mastery = 50
	}
	last := epoch
	p.LastSession = &last
	raw, err := profile.Encode(p)
	require.NoError(t, err)

	store := newMemStore()
	store.profiles[v.StorageKey] = raw
	clock := &fakeClock{t: epoch.Add(3 * day)}
	s := openSession(t, store, v, clock)
	assert.Equal(t, 44.0, s.Profile().Notes[3].Mastery)

	// Reopening the same day must not decay again.
	s = openSession(t, store, v, clock)
	assert.Equal(t, 44.0, s.Profile().Notes[3].Mastery)
}

func TestPrimingThenSingleStage(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Staged(), clock)
	ctx := context.Background()

	_, err := s.Next(nil)
	require.ErrorIs(t, err, ErrPriming)

	labels := []string{}
	for i := 0; i < 9; i++ {
		exp, err := s.Expose()
		require.NoError(t, err)
		labels = append(labels, exp.Position.Label)
		res, err := s.Continue(ctx)
		require.NoError(t, err)
		assert.Equal(t, i == 8, res.Advanced)
	}
	assert.Equal(t, []string{"Low", "Middle", "High", "Low", "Middle", "High", "Low", "Middle", "High"}, labels)
	assert.Equal(t, model.ModeSingle, s.Stage().Mode)
	assert.Zero(t, s.Profile().StageProgress.PrimingExposures)

	_, err = s.Expose()
	require.ErrorIs(t, err, ErrNotPriming)

	var last Result
	for i := 0; i < 8; i++ {
		last = answerCorrect(t, s, clock, time.Second)
		assert.Equal(t, "C", last.Note.Label)
	}
	assert.True(t, last.NoteAdvanced)
	assert.Equal(t, 88.0, last.Mastery)
	assert.Equal(t, 1, s.Profile().StageProgress.SingleNoteIndex)

	q, err := s.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "D", q.Note.Label)
	assert.Len(t, q.Choices, 4)
	assert.Contains(t, q.Choices, "D")
	assert.Len(t, store.answers, 8)
}

func TestSingleStageCompletesIntoMulti(t *testing.T) {
	v := curriculum.Staged()
	p := profile.Default(v)
	p.CurrentStage = 1
	raw, err := profile.Encode(p)
	require.NoError(t, err)
	store := newMemStore()
	store.profiles[v.StorageKey] = raw
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, v, clock)

	var res Result
	for i := 0; i < 7*8; i++ {
		res = answerCorrect(t, s, clock, 800*time.Millisecond)
	}
	assert.True(t, res.StageComplete)
	assert.True(t, res.Advanced)
	assert.Equal(t, model.ModeMulti, res.Stage.Mode)
	assert.Equal(t, model.SessionCounters{}, s.Counters())

	// A single fast, correct answer satisfies the multi-note targets.
	res = answerCorrect(t, s, clock, time.Second)
	assert.True(t, res.Advanced)
	assert.Equal(t, model.ModeReflex, s.Stage().Mode)
}

func TestMultiStageWrongAnswerBlocksCompletion(t *testing.T) {
	v := curriculum.Staged()
	p := profile.Default(v)
	p.CurrentStage = 2
	raw, err := profile.Encode(p)
	require.NoError(t, err)
	store := newMemStore()
	store.profiles[v.StorageKey] = raw
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, v, clock)
	ctx := context.Background()

	q, err := s.Next(nil)
	require.NoError(t, err)
	assert.Less(t, q.NoteIndex, 4)
	wrong := q.Choices[0]
	if wrong == q.Note.Label {
		wrong = q.Choices[1]
	}
	res, err := s.Answer(ctx, q.ID, wrong)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, q.Note.Label, res.CorrectLabel)
	assert.False(t, res.StageComplete)
	assert.Equal(t, 1, s.Counters().Attempts)
	assert.Equal(t, 2, s.Stage().ID)
}

func TestAnswerIsResolvedOnce(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(0), clock)
	ctx := context.Background()

	q, err := s.Next(nil)
	require.NoError(t, err)
	_, err = s.Answer(ctx, q.ID, q.Note.Label)
	require.NoError(t, err)

	_, err = s.Answer(ctx, q.ID, q.Note.Label)
	assert.ErrorIs(t, err, ErrStale)
	_, err = s.Expire(ctx, q.ID)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, 1, s.Profile().TotalAttempts)

	q2, err := s.Next(nil)
	require.NoError(t, err)
	_, err = s.Answer(ctx, q.ID, q2.Note.Label)
	assert.ErrorIs(t, err, ErrStale, "old id after a new question")
	_, ok := s.Question()
	assert.True(t, ok)
}

func TestDeadlineExpiresQuestion(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(20*time.Millisecond), clock)
	ctx := context.Background()

	fired := make(chan int, 1)
	q, err := s.Next(func(id int) { fired <- id })
	require.NoError(t, err)

	var id int
	select {
	case id = <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("deadline did not fire")
	}
	require.Equal(t, q.ID, id)

	res, err := s.Expire(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Correct)
	assert.Equal(t, 38.0, res.Mastery)

	_, err = s.Answer(ctx, id, q.Note.Label)
	assert.ErrorIs(t, err, ErrStale)
	require.Len(t, store.answers, 1)
	assert.True(t, store.answers[0].TimedOut)
	assert.Empty(t, store.answers[0].Chosen)
}

func TestAnswerCancelsDeadline(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(30*time.Millisecond), clock)

	fired := make(chan int, 1)
	q, err := s.Next(func(id int) { fired <- id })
	require.NoError(t, err)
	_, err = s.Answer(context.Background(), q.ID, q.Note.Label)
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("deadline fired after answer")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecordsAnswerHistory(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(0), clock)
	s.Start()

	answerCorrect(t, s, clock, 1200*time.Millisecond)
	require.Len(t, store.answers, 1)
	ans := store.answers[0]
	assert.Equal(t, s.SessionID(), ans.SessionID)
	assert.Equal(t, "note-trainer-simple", ans.ProfileKey)
	assert.Equal(t, model.ModeFree, ans.Mode)
	assert.Equal(t, int64(1200), ans.ReactionMs)
	assert.True(t, ans.Correct)
	assert.True(t, ans.AnsweredAt.Equal(epoch.Add(1200*time.Millisecond)))

	decoded, err := profile.Decode(store.profiles["note-trainer-simple"], curriculum.Simple(0))
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.TotalCorrect)
}

func TestAnswerStoreFailureIsReturned(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(0), clock)
	store.failRec = errors.New("disk full")

	q, err := s.Next(nil)
	require.NoError(t, err)
	res, err := s.Answer(context.Background(), q.ID, q.Note.Label)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.failRec)
	assert.True(t, res.Correct)
}

func TestReset(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, curriculum.Simple(0), clock)
	answerCorrect(t, s, clock, time.Second)

	require.NoError(t, s.Reset(context.Background()))
	assert.Equal(t, profile.Default(curriculum.Simple(0)), s.Profile())
	assert.Empty(t, store.answers)
	assert.Contains(t, store.profiles, "note-trainer-simple")
	assert.Equal(t, model.SessionCounters{}, s.Counters())
}

func TestRetentionRepeatsWithoutAdvancing(t *testing.T) {
	v := curriculum.Staged()
	p := profile.Default(v)
	p.CurrentStage = v.Last()
	raw, err := profile.Encode(p)
	require.NoError(t, err)
	store := newMemStore()
	store.profiles[v.StorageKey] = raw
	clock := &fakeClock{t: epoch}
	s := openSession(t, store, v, clock)

	var res Result
	for i := 0; i < 10; i++ {
		res = answerCorrect(t, s, clock, time.Second)
	}
	assert.True(t, res.StageComplete)
	assert.False(t, res.Advanced)
	assert.Equal(t, v.Last(), s.Profile().CurrentStage)
	assert.Zero(t, s.Counters().Attempts)
}
