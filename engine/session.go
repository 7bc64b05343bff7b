package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/fieldline/log"
	"github.com/fieldline/fieldline/model"
)

// DraftStore persists in-progress answer state keyed by form and fill key.
// Save is fire-and-forget from the session's point of view: a failed autosave
// must never break answering.
type DraftStore interface {
	Save(ctx context.Context, formID, fillKey string, draft model.Draft) error
	Load(ctx context.Context, formID, fillKey string) (*model.Draft, error)
	Clear(ctx context.Context, formID, fillKey string) error
}

// ResponseSink receives the finalized response. Implemented by the response
// store; stubbed in tests.
type ResponseSink interface {
	AddResponse(ctx context.Context, response *model.FormResponse) error
}

var (
	ErrAlreadySubmitted = errors.New("response already submitted")
	ErrNotLastSection   = errors.New("submit is only allowed from the last section")
	ErrUnknownQuestion  = errors.New("unknown question id")
)

// Session drives one respondent's pass through a form: a strictly sequential
// walk over sections, forward movement gated on validation, answers
// autosaved as a draft after every change.
type Session struct {
	form      *model.Form
	fillKey   string
	index     int
	responses Responses
	startedAt time.Time
	activity  time.Time
	submitted bool

	drafts DraftStore
	now    func() time.Time
	newID  func() string
}

func NewSession(form *model.Form, fillKey string, drafts DraftStore) *Session {
	s := &Session{
		form:      form,
		fillKey:   fillKey,
		responses: Responses{},
		drafts:    drafts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	s.startedAt = s.now()
	s.activity = s.startedAt
	return s
}

// Restore seeds the session from a previously saved draft, resuming at the
// section the respondent last reached. Without a draft the session starts at
// section 0.
func (s *Session) Restore(ctx context.Context) error {
	draft, err := s.drafts.Load(ctx, s.form.ID, s.fillKey)
	if err != nil {
		return err
	}
	if draft == nil {
		return nil
	}

	s.responses = Responses{}
	for id, v := range draft.Responses {
		s.responses[id] = v
	}
	s.index = clampIndex(draft.CurrentSectionIndex, len(s.form.Sections))
	if !draft.StartedAt.IsZero() {
		s.startedAt = draft.StartedAt
	}
	return nil
}

func (s *Session) SectionIndex() int { return s.index }

func (s *Session) OnLastSection() bool { return s.index == len(s.form.Sections)-1 }

func (s *Session) Submitted() bool { return s.submitted }

// Responses returns a copy of the working answer map.
func (s *Session) Responses() Responses {
	out := make(Responses, len(s.responses))
	for id, v := range s.responses {
		out[id] = v
	}
	return out
}

// Answer records a value for a question and autosaves the draft. The
// question may be a currently hidden conditional one: its stale value stays
// in the map so reselecting the governing option restores it.
func (s *Session) Answer(ctx context.Context, questionID string, raw any) error {
	if s.submitted {
		return ErrAlreadySubmitted
	}
	q, ok := findQuestion(s.form, questionID)
	if !ok {
		return ErrUnknownQuestion
	}

	value, err := Decode(q, raw)
	if err != nil {
		return err
	}
	if value == nil {
		delete(s.responses, questionID)
	} else {
		s.responses[questionID] = value
	}
	s.activity = s.now()
	s.autosave(ctx)
	return nil
}

// Merge decodes and records a whole answer map at once (the shape a stateless
// HTTP submit carries), with a single autosave at the end.
func (s *Session) Merge(ctx context.Context, answers map[string]any) error {
	if s.submitted {
		return ErrAlreadySubmitted
	}
	for questionID, raw := range answers {
		q, ok := findQuestion(s.form, questionID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
		}
		value, err := Decode(q, raw)
		if err != nil {
			return err
		}
		if value == nil {
			delete(s.responses, questionID)
		} else {
			s.responses[questionID] = value
		}
	}
	s.activity = s.now()
	s.autosave(ctx)
	return nil
}

// Next validates the current section and advances by exactly one on success.
// On failure the error map is returned and the index does not move.
func (s *Session) Next(ctx context.Context) map[string]string {
	if s.submitted || s.index >= len(s.form.Sections)-1 {
		return nil
	}
	errs := ValidateSection(s.form.Sections[s.index], s.responses)
	if len(errs) > 0 {
		return errs
	}
	s.index++
	s.activity = s.now()
	s.autosave(ctx)
	return nil
}

// Previous moves back one section unconditionally. Going backward is never
// gated on validation.
func (s *Session) Previous(ctx context.Context) bool {
	if s.submitted || s.index == 0 {
		return false
	}
	s.index--
	s.activity = s.now()
	s.autosave(ctx)
	return true
}

// Submit finalizes the response from the last section. It validates every
// visible question first and returns the error map without changing state if
// anything fails. Answers to conditional questions whose governing option is
// no longer selected are pruned from the finalized payload (they stay in the
// draft map until then). A sink failure leaves the session on the last
// section so the respondent can retry without losing answers; only a
// successful hand-off clears the draft.
func (s *Session) Submit(ctx context.Context, respondentEmail string, sink ResponseSink) (*model.FormResponse, map[string]string, error) {
	if s.submitted {
		return nil, nil, ErrAlreadySubmitted
	}
	if s.index != len(s.form.Sections)-1 {
		return nil, nil, ErrNotLastSection
	}

	if errs := ValidateForm(s.form, s.responses); len(errs) > 0 {
		return nil, errs, nil
	}

	submittedAt := s.now()
	response := &model.FormResponse{
		ID:              s.newID(),
		FormID:          s.form.ID,
		FormVersion:     s.form.Version,
		RespondentEmail: respondentEmail,
		StartedAt:       s.startedAt,
		SubmittedAt:     &submittedAt,
		IsComplete:      true,
		Data:            FinalizeData(s.form, s.responses),
	}

	if err := sink.AddResponse(ctx, response); err != nil {
		return nil, nil, err
	}

	s.submitted = true
	if err := s.drafts.Clear(ctx, s.form.ID, s.fillKey); err != nil {
		log.Errorf("session.draft.clear: %s", err)
	}
	return response, nil, nil
}

// FinalizeData copies only the answers of currently visible questions into a
// submission payload, dropping orphaned conditional answers.
func FinalizeData(form *model.Form, responses Responses) map[string]any {
	data := map[string]any{}
	for _, q := range VisibleFormQuestions(form, responses) {
		if v, ok := responses[q.ID]; ok {
			data[q.ID] = v
		}
	}
	return data
}

func (s *Session) autosave(ctx context.Context) {
	draft := model.Draft{
		FormID:              s.form.ID,
		Responses:           s.responses,
		CurrentSectionIndex: s.index,
		StartedAt:           s.startedAt,
		LastActivityAt:      s.activity,
	}
	if err := s.drafts.Save(ctx, s.form.ID, s.fillKey, draft); err != nil {
		log.Errorf("session.draft.save: %s", err)
	}
}

func findQuestion(form *model.Form, id string) (model.Question, bool) {
	for _, sec := range form.Sections {
		for _, q := range sec.Questions {
			if found, ok := findNested(q, id); ok {
				return found, true
			}
		}
	}
	return model.Question{}, false
}

func findNested(q model.Question, id string) (model.Question, bool) {
	if q.ID == id {
		return q, true
	}
	for _, opt := range q.Options {
		for _, cq := range opt.ConditionalQuestions {
			if found, ok := findNested(cq, id); ok {
				return found, true
			}
		}
	}
	return model.Question{}, false
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
