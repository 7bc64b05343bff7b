package engine

import "github.com/fieldline/fieldline/model"

// ActiveConditional returns the follow-up questions currently activated by
// the answer to q. An option's conditional questions are active iff that
// option is selected right now; resolution recurses, so a conditional
// question carrying options of its own can reveal further levels.
//
// Deselecting an option hides its follow-ups but leaves any answers for them
// untouched in the response map: reselecting the option brings them back.
func ActiveConditional(q model.Question, responses Responses) []model.Question {
	if len(q.Options) == 0 {
		return nil
	}
	selected := selectedChoices(responses[q.ID])
	if len(selected) == 0 {
		return nil
	}

	var active []model.Question
	for _, opt := range q.Options {
		if !opt.HasConditionalQuestions || len(opt.ConditionalQuestions) == 0 {
			continue
		}
		if !isSelected(opt, selected) {
			continue
		}
		for _, cq := range opt.ConditionalQuestions {
			active = append(active, cq)
			active = append(active, ActiveConditional(cq, responses)...)
		}
	}
	return active
}

// VisibleQuestions expands a section into the flat ordered list of questions
// a respondent currently sees: every top-level question followed by its
// active conditional questions.
func VisibleQuestions(sec model.Section, responses Responses) []model.Question {
	visible := make([]model.Question, 0, len(sec.Questions))
	for _, q := range sec.Questions {
		visible = append(visible, q)
		visible = append(visible, ActiveConditional(q, responses)...)
	}
	return visible
}

// VisibleFormQuestions flattens every section's visible questions, in section
// order. Used to prune answers for questions no longer governed by a selected
// option when a response is finalized.
func VisibleFormQuestions(form *model.Form, responses Responses) []model.Question {
	var visible []model.Question
	for _, sec := range form.Sections {
		visible = append(visible, VisibleQuestions(sec, responses)...)
	}
	return visible
}

// selectedChoices normalizes a choice answer to the set of selected values,
// tolerating both canonical and raw wire shapes.
func selectedChoices(v any) []model.ChoiceValue {
	switch val := v.(type) {
	case nil:
		return nil
	case model.ChoiceValue:
		return []model.ChoiceValue{val}
	case []model.ChoiceValue:
		return val
	case string:
		if val == "" {
			return nil
		}
		return []model.ChoiceValue{model.ParseChoiceValue(val)}
	case []string:
		out := make([]model.ChoiceValue, 0, len(val))
		for _, s := range val {
			out = append(out, model.ParseChoiceValue(s))
		}
		return out
	case []any:
		out := make([]model.ChoiceValue, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, model.ParseChoiceValue(s))
			}
		}
		return out
	}
	return nil
}

func isSelected(opt model.Option, selected []model.ChoiceValue) bool {
	for _, cv := range selected {
		if cv.Matches(opt) {
			return true
		}
	}
	return false
}
