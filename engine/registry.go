// Package engine implements the form response engine: per-type answer
// handling, conditional question resolution, section validation and the
// fill-session state machine. It has no knowledge of HTTP or storage; callers
// plug in a DraftStore and a ResponseSink.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/fieldline/fieldline/model"
)

// Responses is the working answer map of one pass through a form, keyed by
// question id. Values hold the canonical per-type shapes produced by Decode.
type Responses map[string]any

// UnsupportedTypeError marks a question whose type is outside the known set.
// It is reported, never swallowed: a malformed imported form must show up as
// a visible error on the offending question, not render as nothing.
type UnsupportedTypeError struct {
	QuestionID string
	Type       model.QuestionType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("question %s: unsupported question type %q", e.QuestionID, e.Type)
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{4,}$`)
)

const (
	dateLayout = "2006-01-02"
)

// Decode coerces a JSON-decoded raw value into the canonical shape for the
// question's type:
//
//	text, dropdown, phone, email  string
//	number, slider                float64
//	single choice                 model.ChoiceValue
//	multiple choice               []model.ChoiceValue
//	date, datetime                time.Time
//	likert                        map[statementID]scaleValue
//	location                      model.GeoPoint
//	media                         []string (attachment references)
//
// nil in gives nil out. Unknown question types return *UnsupportedTypeError.
func Decode(q model.Question, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch q.Type {
	case model.ShortText, model.LongText, model.Dropdown, model.Phone, model.Email:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("question %s: expected string, got %T", q.ID, raw)
		}
		if s == "" {
			return nil, nil
		}
		return s, nil

	case model.Number, model.Slider:
		return decodeNumber(q, raw)

	case model.SingleChoice:
		if cv, ok := raw.(model.ChoiceValue); ok {
			return cv, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("question %s: expected string option value, got %T", q.ID, raw)
		}
		if s == "" {
			return nil, nil
		}
		return model.ParseChoiceValue(s), nil

	case model.MultipleChoice:
		if values, ok := raw.([]model.ChoiceValue); ok {
			return values, nil
		}
		items, err := decodeStringSlice(q, raw)
		if err != nil {
			return nil, err
		}
		values := make([]model.ChoiceValue, 0, len(items))
		for _, s := range items {
			values = append(values, model.ParseChoiceValue(s))
		}
		return values, nil

	case model.Date, model.DateTime:
		return decodeTime(q, raw)

	case model.Likert:
		if answers, ok := raw.(map[string]string); ok {
			return answers, nil
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("question %s: expected statement map, got %T", q.ID, raw)
		}
		answers := make(map[string]string, len(m))
		for statementID, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("question %s: statement %s: expected string scale value, got %T", q.ID, statementID, v)
			}
			answers[statementID] = s
		}
		return answers, nil

	case model.Location:
		if point, ok := raw.(model.GeoPoint); ok {
			return point, nil
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("question %s: expected location object, got %T", q.ID, raw)
		}
		lat, latOK := numberField(m, "latitude")
		lng, lngOK := numberField(m, "longitude")
		if !latOK || !lngOK {
			return nil, fmt.Errorf("question %s: location requires numeric latitude and longitude", q.ID)
		}
		point := model.GeoPoint{Latitude: lat, Longitude: lng}
		if acc, ok := numberField(m, "accuracy"); ok {
			point.Accuracy = &acc
		}
		return point, nil

	case model.Media:
		return decodeStringSlice(q, raw)
	}

	return nil, &UnsupportedTypeError{QuestionID: q.ID, Type: q.Type}
}

func decodeNumber(q model.Question, raw any) (any, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		if n == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("question %s: %q is not a number", q.ID, n)
		}
		return f, nil
	}
	return nil, fmt.Errorf("question %s: expected number, got %T", q.ID, raw)
}

func decodeTime(q model.Question, raw any) (any, error) {
	switch t := raw.(type) {
	case time.Time:
		return t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, nil
		}
		if parsed, err := time.Parse(dateLayout, t); err == nil {
			return parsed, nil
		}
		return nil, fmt.Errorf("question %s: %q is not a valid date", q.ID, t)
	}
	return nil, fmt.Errorf("question %s: expected date string, got %T", q.ID, raw)
}

func decodeStringSlice(q model.Question, raw any) ([]string, error) {
	switch items := raw.(type) {
	case []string:
		return items, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("question %s: expected string entries, got %T", q.ID, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("question %s: expected array, got %T", q.ID, raw)
}

func numberField(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// IsEmpty reports whether a canonical value counts as unanswered. The
// emptiness set is fixed: nil, empty string, empty slice, empty map. Zero is
// a real number answer and false would be a real boolean one.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []model.ChoiceValue:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case map[string]string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case model.ChoiceValue:
		return !val.IsOther && val.Option == ""
	}
	return false
}

// Check validates a non-empty canonical value against the question's
// type-specific constraints and returns a user-facing message, or "" when the
// value passes. Unknown types return *UnsupportedTypeError.
func Check(q model.Question, v any) (string, error) {
	switch q.Type {
	case model.ShortText, model.LongText:
		return checkText(q, v), nil

	case model.Number, model.Slider:
		n, ok := v.(float64)
		if !ok {
			return "Invalid number", nil
		}
		if q.Min != nil && n < *q.Min {
			return fmt.Sprintf("Value must be at least %v", *q.Min), nil
		}
		if q.Max != nil && n > *q.Max {
			return fmt.Sprintf("Value must be at most %v", *q.Max), nil
		}
		return "", nil

	case model.SingleChoice, model.Dropdown:
		cv, ok := v.(model.ChoiceValue)
		if !ok {
			if s, isStr := v.(string); isStr {
				cv = model.ParseChoiceValue(s)
			} else {
				return "Invalid option", nil
			}
		}
		if !optionExists(q, cv) {
			return "Invalid option", nil
		}
		return "", nil

	case model.MultipleChoice:
		values, ok := v.([]model.ChoiceValue)
		if !ok {
			return "Invalid option", nil
		}
		for _, cv := range values {
			if !optionExists(q, cv) {
				return "Invalid option", nil
			}
		}
		return "", nil

	case model.Date, model.DateTime:
		t, ok := v.(time.Time)
		if !ok {
			return "Invalid date", nil
		}
		if q.MinDate != nil && t.Before(*q.MinDate) {
			return fmt.Sprintf("Date must not be before %s", q.MinDate.Format(dateLayout)), nil
		}
		if q.MaxDate != nil && t.After(*q.MaxDate) {
			return fmt.Sprintf("Date must not be after %s", q.MaxDate.Format(dateLayout)), nil
		}
		return "", nil

	case model.Likert:
		return checkLikert(q, v), nil

	case model.Location:
		point, ok := v.(model.GeoPoint)
		if !ok {
			return "Invalid location", nil
		}
		if point.Latitude < -90 || point.Latitude > 90 || point.Longitude < -180 || point.Longitude > 180 {
			return "Invalid coordinates", nil
		}
		return "", nil

	case model.Media:
		if _, ok := v.([]string); !ok {
			return "Invalid attachment list", nil
		}
		return "", nil

	case model.Phone:
		s, ok := v.(string)
		if !ok || !phonePattern.MatchString(s) {
			return "Invalid phone number", nil
		}
		return "", nil

	case model.Email:
		s, ok := v.(string)
		if !ok || !emailPattern.MatchString(s) {
			return "Invalid email address", nil
		}
		return "", nil
	}

	return "", &UnsupportedTypeError{QuestionID: q.ID, Type: q.Type}
}

func checkText(q model.Question, v any) string {
	s, ok := v.(string)
	if !ok {
		return "Invalid text"
	}
	if q.Rules == nil {
		return ""
	}
	if q.Rules.MinLength != nil && len(s) < *q.Rules.MinLength {
		return fmt.Sprintf("Must be at least %d characters", *q.Rules.MinLength)
	}
	if q.Rules.MaxLength != nil && len(s) > *q.Rules.MaxLength {
		return fmt.Sprintf("Must be at most %d characters", *q.Rules.MaxLength)
	}
	if q.Rules.Pattern != "" {
		re, err := regexp.Compile(q.Rules.Pattern)
		if err == nil && !re.MatchString(s) {
			return "Invalid format"
		}
	}
	return ""
}

func checkLikert(q model.Question, v any) string {
	answers, ok := v.(map[string]string)
	if !ok {
		return "Invalid answers"
	}

	statements := map[string]bool{}
	for _, s := range q.Statements {
		statements[s.ID] = true
	}
	scale := map[string]bool{}
	for _, opt := range q.Options {
		scale[opt.Value] = true
	}

	for statementID, value := range answers {
		if !statements[statementID] {
			return "Unknown statement"
		}
		if !scale[value] {
			return "Invalid scale value"
		}
	}
	if q.IsRequired && len(answers) < len(q.Statements) {
		return "All statements must be answered"
	}
	return ""
}

func optionExists(q model.Question, cv model.ChoiceValue) bool {
	for _, opt := range q.Options {
		if cv.Matches(opt) {
			return true
		}
	}
	return false
}
