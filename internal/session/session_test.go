package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/policy"
)

func analysis(score float64) *ai.RawAnalysis {
	return &ai.RawAnalysis{ResumeScore: &score}
}

func completeProfile() applicant.Profile {
	return applicant.Profile{
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		GitHub:      "https://github.com/asha",
		College:     "IIT Madras",
		PassingYear: "2023",
	}
}

func resume(name string) *extract.Document {
	return extract.FromBytes(name, extract.MediaPDF, []byte("%PDF-1.4"))
}

func readySession(t *testing.T, score float64) *Session {
	t.Helper()

	s := New()
	s.UpdateProfile(completeProfile(), policy.NewEngine(""))
	gen, err := s.SelectDocument(resume("cv.pdf"))
	require.NoError(t, err)
	require.True(t, s.MarkAnalyzing(gen))
	require.True(t, s.Complete(gen, analysis(score), policy.NewEngine("")))
	return s
}

func TestSessionHappyPath(t *testing.T) {
	s := New()
	engine := policy.NewEngine("")
	assert.Equal(t, Idle, s.Snapshot().State)
	assert.NotEmpty(t, s.ID())

	s.UpdateProfile(completeProfile(), engine)

	gen, err := s.SelectDocument(resume("cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, Extracting, s.Snapshot().State)

	require.True(t, s.MarkAnalyzing(gen))
	assert.Equal(t, Analyzing, s.Snapshot().State)

	require.True(t, s.Complete(gen, analysis(75), engine))
	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.SubmissionEligibility.CanSubmit)

	ticket, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, Submitting, s.Snapshot().State)
	assert.Equal(t, "cv.pdf", ticket.Document.Name)

	s.FinishSubmit(ticket, nil)
	assert.Equal(t, Submitted, s.Snapshot().State)
}

func TestLatestRequestWins(t *testing.T) {
	s := New()
	engine := policy.NewEngine("")

	first, err := s.SelectDocument(resume("old.pdf"))
	require.NoError(t, err)
	second, err := s.SelectDocument(resume("new.pdf"))
	require.NoError(t, err)

	assert.True(t, s.Complete(second, analysis(80), engine))
	assert.False(t, s.Complete(first, analysis(10), engine), "stale result must be dropped")
	assert.False(t, s.Fail(first, errors.New("late failure")))

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, 80, snap.Result.ResumeScore)
	assert.Equal(t, "new.pdf", snap.Document.Name)
	assert.Empty(t, snap.Error)
}

func TestSelectDocumentClearsPreviousResult(t *testing.T) {
	s := readySession(t, 90)

	_, err := s.SelectDocument(resume("other.pdf"))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Nil(t, snap.Result)
	assert.Equal(t, Extracting, snap.State)
}

func TestRemoveDocumentMakesInFlightStale(t *testing.T) {
	s := New()
	gen, err := s.SelectDocument(resume("cv.pdf"))
	require.NoError(t, err)

	require.NoError(t, s.RemoveDocument())
	assert.False(t, s.Complete(gen, analysis(90), policy.NewEngine("")))

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Document)
	assert.Nil(t, snap.Result)
}

func TestFailRecordsErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{name: "schema", err: &ai.SchemaError{Message: "not json"}, kind: "schema"},
		{name: "transport", err: &ai.TransportError{StatusCode: 503}, kind: "transport"},
		{name: "extraction", err: &extract.ExtractionError{Document: "cv.pdf", Cause: errors.New("eof")}, kind: "extraction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			gen, err := s.SelectDocument(resume("cv.pdf"))
			require.NoError(t, err)

			require.True(t, s.Fail(gen, tt.err))

			snap := s.Snapshot()
			assert.Equal(t, Error, snap.State)
			assert.Equal(t, tt.kind, snap.ErrorKind)
			assert.NotEmpty(t, snap.Error)
			assert.Nil(t, snap.Result)
		})
	}
}

func TestUpdateProfileReevaluates(t *testing.T) {
	s := readySession(t, 75)
	engine := policy.NewEngine("")

	profile := completeProfile()
	profile.Email = "broken"
	snap := s.UpdateProfile(profile, engine)

	require.NotNil(t, snap.Result)
	assert.Equal(t, 75, snap.Result.ResumeScore)
	assert.False(t, snap.Result.SubmissionEligibility.CanSubmit)
	assert.Equal(t, []string{policy.FieldEmail}, snap.Result.SubmissionEligibility.MissingFields)

	_, err := s.BeginSubmit()
	assert.ErrorIs(t, err, ErrBlocked)

	snap = s.UpdateProfile(completeProfile(), engine)
	assert.True(t, snap.Result.SubmissionEligibility.CanSubmit)
}

func TestBeginSubmitGuards(t *testing.T) {
	_, err := New().BeginSubmit()
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = readySession(t, 45).BeginSubmit()
	assert.ErrorIs(t, err, ErrBlocked)

	s := readySession(t, 75)
	ticket, err := s.BeginSubmit()
	require.NoError(t, err)

	_, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrBusy)

	_, err = s.SelectDocument(resume("late.pdf"))
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.RemoveDocument(), ErrBusy)

	s.FinishSubmit(ticket, errors.New("backend down"))
	assert.Equal(t, Ready, s.Snapshot().State)
}

func TestReset(t *testing.T) {
	s := readySession(t, 75)

	require.NoError(t, s.Reset())

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, applicant.Profile{}, snap.Profile)
	assert.Nil(t, snap.Result)
}

func TestConcurrentGenerations(t *testing.T) {
	s := New()
	engine := policy.NewEngine("")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		gen, err := s.SelectDocument(resume("cv.pdf"))
		require.NoError(t, err)

		wg.Add(1)
		go func(gen uint64) {
			defer wg.Done()
			s.Complete(gen, analysis(float64(gen)), engine)
		}(gen)
	}
	wg.Wait()

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, 20, snap.Result.ResumeScore)
	assert.Equal(t, uint64(20), snap.Generation)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(time.Minute)
	store.now = c.Now

	idle := store.Create()
	active := store.Create()
	assert.Equal(t, 2, store.Len())

	c.Advance(45 * time.Second)
	active.UpdateProfile(completeProfile(), policy.NewEngine(""))
	c.Advance(30 * time.Second)

	_, ok := store.Get(idle.ID())
	assert.False(t, ok)

	got, ok := store.Get(active.ID())
	require.True(t, ok)
	assert.Same(t, active, got)

	c.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Prune())
	assert.Zero(t, store.Len())
}

func TestStoreRunStopsWithContext(t *testing.T) {
	store := NewStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, store.Run(ctx, time.Millisecond, nil))
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(0)
	sess := store.Create()

	store.Delete(sess.ID())

	_, ok := store.Get(sess.ID())
	assert.False(t, ok)
}
