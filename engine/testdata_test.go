package engine

import (
	"context"
	"fmt"

	"github.com/fieldline/fieldline/model"
)

func textQuestion(id string, required bool) model.Question {
	return model.Question{ID: id, Type: model.ShortText, Title: "Q " + id, IsRequired: required}
}

func choiceQuestion(id string, options ...model.Option) model.Question {
	return model.Question{ID: id, Type: model.SingleChoice, Title: "Q " + id, Options: options}
}

func option(value string, conditional ...model.Question) model.Option {
	return model.Option{
		ID:                      "opt-" + value,
		Label:                   value,
		Value:                   value,
		HasConditionalQuestions: len(conditional) > 0,
		ConditionalQuestions:    conditional,
	}
}

func singleSectionForm(questions ...model.Question) *model.Form {
	return &model.Form{
		ID:      "form-1",
		Title:   "Outcome survey",
		Status:  model.StatusPublished,
		Version: 1,
		Sections: []model.Section{
			{ID: "sec-1", Title: "Section 1", Questions: questions},
		},
	}
}

func twoSectionForm(first, second []model.Question) *model.Form {
	return &model.Form{
		ID:      "form-2",
		Title:   "Baseline survey",
		Status:  model.StatusPublished,
		Version: 1,
		Sections: []model.Section{
			{ID: "sec-1", Title: "Section 1", Questions: first},
			{ID: "sec-2", Title: "Section 2", Order: 1, Questions: second},
		},
	}
}

// memDrafts is an in-memory DraftStore for session tests.
type memDrafts struct {
	drafts map[string]model.Draft
	clears int
}

func newMemDrafts() *memDrafts {
	return &memDrafts{drafts: map[string]model.Draft{}}
}

func (m *memDrafts) key(formID, fillKey string) string {
	return formID + "/" + fillKey
}

func (m *memDrafts) Save(_ context.Context, formID, fillKey string, draft model.Draft) error {
	responses := make(map[string]any, len(draft.Responses))
	for id, v := range draft.Responses {
		responses[id] = v
	}
	draft.Responses = responses
	m.drafts[m.key(formID, fillKey)] = draft
	return nil
}

func (m *memDrafts) Load(_ context.Context, formID, fillKey string) (*model.Draft, error) {
	draft, ok := m.drafts[m.key(formID, fillKey)]
	if !ok {
		return nil, nil
	}
	return &draft, nil
}

func (m *memDrafts) Clear(_ context.Context, formID, fillKey string) error {
	delete(m.drafts, m.key(formID, fillKey))
	m.clears++
	return nil
}

// memSink collects finalized responses; fail makes AddResponse error to
// exercise the submit retry path.
type memSink struct {
	responses []*model.FormResponse
	fail      bool
}

func (m *memSink) AddResponse(_ context.Context, response *model.FormResponse) error {
	if m.fail {
		return fmt.Errorf("backend unavailable")
	}
	m.responses = append(m.responses, response)
	return nil
}
