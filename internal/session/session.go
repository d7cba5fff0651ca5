// Package session keeps the current analysis slot of one applicant and the
// state machine around it. Every new document bumps a generation counter;
// outcomes carrying an older generation are dropped, so the latest request
// always wins.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/policy"
)

type State string

const (
	Idle       State = "idle"
	Extracting State = "extracting"
	Analyzing  State = "analyzing"
	Ready      State = "ready"
	Error      State = "error"
	Submitting State = "submitting"
	Submitted  State = "submitted"
)

var (
	ErrStale    = errors.New("analysis was superseded by a newer resume")
	ErrBusy     = errors.New("application is being submitted")
	ErrNotReady = errors.New("no completed analysis for the current resume")
	ErrBlocked  = errors.New("application is blocked by the eligibility policy")
)

// Evaluator computes the canonical result. *policy.Engine satisfies it.
type Evaluator interface {
	Evaluate(raw *ai.RawAnalysis, fields policy.Fields, resumePresent bool) policy.Result
}

type Session struct {
	mu sync.Mutex

	id         string
	created    time.Time
	updated    time.Time
	state      State
	generation uint64

	doc     *extract.Document
	profile applicant.Profile
	raw     *ai.RawAnalysis
	result  *policy.Result
	err     error

	now func() time.Time
}

// Snapshot is a consistent copy of the session for presentation.
type Snapshot struct {
	ID         string            `json:"id"`
	State      State             `json:"state"`
	Generation uint64            `json:"generation"`
	Document   *extract.Document `json:"document,omitempty"`
	Profile    applicant.Profile `json:"profile"`
	Result     *policy.Result    `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorKind  string            `json:"errorKind,omitempty"`
	Created    time.Time         `json:"createdAt"`
	Updated    time.Time         `json:"updatedAt"`
}

// Ticket carries what a submission needs, captured when it began.
type Ticket struct {
	Generation uint64
	Document   *extract.Document
	Profile    applicant.Profile
	Result     policy.Result
}

func New() *Session {
	return newSession(uuid.NewString(), time.Now)
}

func newSession(id string, now func() time.Time) *Session {
	ts := now()
	return &Session{id: id, created: ts, updated: ts, state: Idle, now: now}
}

func (s *Session) ID() string {
	return s.id
}

// SelectDocument replaces the document, discards any previous result and
// starts a new generation in Extracting.
func (s *Session) SelectDocument(doc *extract.Document) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Submitting {
		return 0, ErrBusy
	}

	s.generation++
	s.doc = doc
	s.clearOutcome()
	s.state = Extracting
	s.touch()
	return s.generation, nil
}

// MarkAnalyzing records that extraction for gen finished and the model call
// started.
func (s *Session) MarkAnalyzing(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.state != Extracting {
		return false
	}
	s.state = Analyzing
	s.touch()
	return true
}

// Complete stores the analysis for gen and evaluates it against the current
// profile. It reports false when gen is stale.
func (s *Session) Complete(gen uint64, raw *ai.RawAnalysis, eval Evaluator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending(gen) {
		return false
	}

	result := eval.Evaluate(raw, s.profile.Fields(), s.doc != nil)
	s.raw = raw
	s.result = &result
	s.err = nil
	s.state = Ready
	s.touch()
	return true
}

// Fail records the error for gen. It reports false when gen is stale.
func (s *Session) Fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending(gen) {
		return false
	}

	s.raw = nil
	s.result = nil
	s.err = err
	s.state = Error
	s.touch()
	return true
}

// RemoveDocument drops the document and any result. In-flight analyses become
// stale.
func (s *Session) RemoveDocument() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Submitting {
		return ErrBusy
	}

	s.generation++
	s.doc = nil
	s.clearOutcome()
	s.state = Idle
	s.touch()
	return nil
}

// Reset is RemoveDocument plus clearing the profile.
func (s *Session) Reset() error {
	if err := s.RemoveDocument(); err != nil {
		return err
	}

	s.mu.Lock()
	s.profile = applicant.Profile{}
	s.mu.Unlock()
	return nil
}

// UpdateProfile stores the form values and re-evaluates a stored analysis
// against them without another model call.
func (s *Session) UpdateProfile(profile applicant.Profile, eval Evaluator) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = profile
	if s.raw != nil && s.state == Ready {
		result := eval.Evaluate(s.raw, profile.Fields(), s.doc != nil)
		s.result = &result
	}
	s.touch()
	return s.snapshot()
}

func (s *Session) Profile() applicant.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// BeginSubmit moves a submittable session to Submitting. Only a Ready session
// whose result allows submission qualifies.
func (s *Session) BeginSubmit() (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == Submitting:
		return nil, ErrBusy
	case s.state != Ready || s.result == nil:
		return nil, ErrNotReady
	case !s.result.SubmissionEligibility.CanSubmit:
		return nil, ErrBlocked
	}

	s.state = Submitting
	s.touch()
	return &Ticket{
		Generation: s.generation,
		Document:   s.doc,
		Profile:    s.profile,
		Result:     *s.result,
	}, nil
}

// FinishSubmit ends a submission. A nil error moves to Submitted; otherwise
// the session returns to Ready so the applicant may retry.
func (s *Session) FinishSubmit(t *Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == nil || t.Generation != s.generation || s.state != Submitting {
		return
	}

	s.state = Submitted
	if err != nil {
		s.state = Ready
	}
	s.touch()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) lastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		Generation: s.generation,
		Document:   s.doc,
		Profile:    s.profile,
		Created:    s.created,
		Updated:    s.updated,
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	if s.err != nil {
		snap.Error = s.err.Error()
		snap.ErrorKind = ai.Kind(s.err)
		var extractErr *extract.ExtractionError
		if errors.As(s.err, &extractErr) {
			snap.ErrorKind = "extraction"
		}
	}
	return snap
}

func (s *Session) pending(gen uint64) bool {
	return gen == s.generation && (s.state == Extracting || s.state == Analyzing)
}

func (s *Session) clearOutcome() {
	s.raw = nil
	s.result = nil
	s.err = nil
}

func (s *Session) touch() {
	s.updated = s.now()
}
