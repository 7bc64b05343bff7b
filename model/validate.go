package model

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Validate checks a form definition for structural problems and returns all
// of them at once. Malformed imported definitions must be rejected whole, not
// partially accepted with bad questions dropped.
func (f *Form) Validate() error {
	var errs *multierror.Error

	if f.Title == "" {
		errs = multierror.Append(errs, fmt.Errorf("form: title is required"))
	}
	if len(f.Sections) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("form: at least one section is required"))
	}
	if f.Status != "" {
		switch f.Status {
		case StatusDraft, StatusPublished, StatusClosed, StatusArchived:
		default:
			errs = multierror.Append(errs, fmt.Errorf("form: unknown status %q", f.Status))
		}
	}

	seen := map[string]bool{}
	for i, sec := range f.Sections {
		if len(sec.Questions) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("section %d (%s): no questions", i, sec.Title))
		}
		for _, q := range sec.Questions {
			errs = multierror.Append(errs, validateQuestion(q, seen))
		}
	}
	return errs.ErrorOrNil()
}

func validateQuestion(q Question, seen map[string]bool) error {
	var errs *multierror.Error

	if q.ID != "" {
		if seen[q.ID] {
			errs = multierror.Append(errs, fmt.Errorf("question %s: duplicate id", q.ID))
		}
		seen[q.ID] = true
	}
	if q.Title == "" {
		errs = multierror.Append(errs, fmt.Errorf("question %s: title is required", q.ID))
	}
	if !KnownType(q.Type) {
		errs = multierror.Append(errs, fmt.Errorf("question %s: unknown type %q", q.ID, q.Type))
		return errs.ErrorOrNil()
	}

	switch q.Type {
	case SingleChoice, MultipleChoice, Dropdown:
		if len(q.Options) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("question %s: choice question has no options", q.ID))
		}
		values := map[string]bool{}
		for _, opt := range q.Options {
			if opt.Value == "" {
				errs = multierror.Append(errs, fmt.Errorf("question %s: option %q has empty value", q.ID, opt.Label))
			}
			if values[opt.Value] {
				errs = multierror.Append(errs, fmt.Errorf("question %s: duplicate option value %q", q.ID, opt.Value))
			}
			values[opt.Value] = true

			if opt.HasConditionalQuestions && len(opt.ConditionalQuestions) == 0 {
				errs = multierror.Append(errs, fmt.Errorf("question %s: option %q declares conditional questions but has none", q.ID, opt.Value))
			}
			for _, cq := range opt.ConditionalQuestions {
				errs = multierror.Append(errs, validateQuestion(cq, seen))
			}
		}
	case Number, Slider:
		if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
			errs = multierror.Append(errs, fmt.Errorf("question %s: min %v exceeds max %v", q.ID, *q.Min, *q.Max))
		}
		if q.Type == Slider && (q.Min == nil || q.Max == nil) {
			errs = multierror.Append(errs, fmt.Errorf("question %s: slider requires min and max", q.ID))
		}
		if q.Step != nil && *q.Step <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("question %s: step must be positive", q.ID))
		}
	case Date, DateTime:
		if q.MinDate != nil && q.MaxDate != nil && q.MinDate.After(*q.MaxDate) {
			errs = multierror.Append(errs, fmt.Errorf("question %s: minDate after maxDate", q.ID))
		}
	case Likert:
		if len(q.Statements) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("question %s: likert question has no statements", q.ID))
		}
		if len(q.Options) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("question %s: likert question has no scale options", q.ID))
		}
	}

	if q.Rules != nil && q.Rules.Pattern != "" {
		if _, err := regexp.Compile(q.Rules.Pattern); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("question %s: invalid pattern: %v", q.ID, err))
		}
	}
	return errs.ErrorOrNil()
}

// AssignIDs fills in missing ids on the form and every nested section,
// question, option and statement. Imported definitions usually omit them.
func (f *Form) AssignIDs() {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	for i := range f.Sections {
		sec := &f.Sections[i]
		if sec.ID == "" {
			sec.ID = uuid.NewString()
		}
		if sec.Order == 0 {
			sec.Order = i
		}
		for j := range sec.Questions {
			assignQuestionIDs(&sec.Questions[j], j)
		}
	}
}

func assignQuestionIDs(q *Question, order int) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Order == 0 {
		q.Order = order
	}
	for i := range q.Options {
		opt := &q.Options[i]
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		for j := range opt.ConditionalQuestions {
			assignQuestionIDs(&opt.ConditionalQuestions[j], j)
		}
	}
	for i := range q.Statements {
		if q.Statements[i].ID == "" {
			q.Statements[i].ID = uuid.NewString()
		}
	}
}
