package engine

import (
	"errors"
	"fmt"

	"github.com/fieldline/fieldline/model"
)

// RequiredMessage is the fixed inline message for an unanswered required
// question.
const RequiredMessage = "This field is required"

// ValidateSection checks every question currently visible in the section,
// including active conditional questions, and returns one message per failing
// question id. An empty map means the whole visible set is valid; the
// function never stops at the first failure.
func ValidateSection(sec model.Section, responses Responses) map[string]string {
	errs := map[string]string{}
	for _, q := range VisibleQuestions(sec, responses) {
		if msg := validateQuestion(q, responses[q.ID]); msg != "" {
			errs[q.ID] = msg
		}
	}
	return errs
}

// ValidateForm runs ValidateSection over every section and merges the error
// maps. Used as the submission gate: a server cannot trust that earlier
// sections were gated client side.
func ValidateForm(form *model.Form, responses Responses) map[string]string {
	errs := map[string]string{}
	for _, sec := range form.Sections {
		for id, msg := range ValidateSection(sec, responses) {
			errs[id] = msg
		}
	}
	return errs
}

func validateQuestion(q model.Question, raw any) string {
	value, err := Decode(q, raw)
	if err != nil {
		var unsupported *UnsupportedTypeError
		if errors.As(err, &unsupported) {
			return fmt.Sprintf("Unsupported question type %q", unsupported.Type)
		}
		return "Invalid value"
	}

	if IsEmpty(value) {
		if q.IsRequired {
			return RequiredMessage
		}
		return ""
	}

	msg, err := Check(q, value)
	if err != nil {
		var unsupported *UnsupportedTypeError
		if errors.As(err, &unsupported) {
			return fmt.Sprintf("Unsupported question type %q", unsupported.Type)
		}
		return "Invalid value"
	}
	return msg
}
