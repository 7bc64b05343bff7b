package model

import "time"

type FormStatus string

const (
	StatusDraft     FormStatus = "DRAFT"
	StatusPublished FormStatus = "PUBLISHED"
	StatusClosed    FormStatus = "CLOSED"
	StatusArchived  FormStatus = "ARCHIVED"
)

// ValidTransition reports whether a form may move between two statuses.
// Closed forms can be reopened; archived ones are final.
func ValidTransition(from, to FormStatus) bool {
	switch from {
	case StatusDraft:
		return to == StatusPublished
	case StatusPublished:
		return to == StatusClosed || to == StatusArchived
	case StatusClosed:
		return to == StatusPublished || to == StatusArchived
	}
	return false
}

type QuestionType string

const (
	ShortText      QuestionType = "short_text"
	LongText       QuestionType = "long_text"
	Number         QuestionType = "number"
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	Dropdown       QuestionType = "dropdown"
	Date           QuestionType = "date"
	DateTime       QuestionType = "datetime"
	Slider         QuestionType = "slider"
	Likert         QuestionType = "likert"
	Location       QuestionType = "location"
	Media          QuestionType = "media"
	Phone          QuestionType = "phone"
	Email          QuestionType = "email"
)

// KnownType reports whether t belongs to the closed question type set.
// Anything else must surface as an error wherever dispatch happens, never be
// skipped.
func KnownType(t QuestionType) bool {
	switch t {
	case ShortText, LongText, Number, SingleChoice, MultipleChoice, Dropdown,
		Date, DateTime, Slider, Likert, Location, Media, Phone, Email:
		return true
	}
	return false
}

type Form struct {
	ID             string       `json:"id,omitempty"`
	ProjectID      string       `json:"projectId"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         FormStatus   `json:"status"`
	Version        int          `json:"version,omitempty"`
	Sections       []Section    `json:"sections"`
	Settings       FormSettings `json:"settings"`
	ResponseCount  int          `json:"responseCount"`
	LastResponseAt *time.Time   `json:"lastResponseAt,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Category       string       `json:"category,omitempty"`
	CreatedAt      time.Time    `json:"createdAt,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt,omitempty"`
}

type FormSettings struct {
	CollectEmail        bool   `json:"collectEmail,omitempty"`
	ConfirmationMessage string `json:"confirmationMessage,omitempty"`
}

type Section struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	Questions   []Question `json:"questions"`
}

// Question is a tagged union over Type: choice variants use Options, numeric
// variants use Min/Max/Step, date variants use MinDate/MaxDate, likert uses
// Statements plus Options as the scale.
type Question struct {
	ID          string       `json:"id,omitempty"`
	Type        QuestionType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	IsRequired  bool         `json:"isRequired"`
	Order       int          `json:"order"`

	Options    []Option    `json:"options,omitempty"`
	Min        *float64    `json:"min,omitempty"`
	Max        *float64    `json:"max,omitempty"`
	Step       *float64    `json:"step,omitempty"`
	MinDate    *time.Time  `json:"minDate,omitempty"`
	MaxDate    *time.Time  `json:"maxDate,omitempty"`
	Statements []Statement `json:"statements,omitempty"`
	Rules      *Rules      `json:"validationRules,omitempty"`
}

type Rules struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// Option is one selectable choice. An option may own follow-up questions that
// are only visible and validated while the option is selected.
type Option struct {
	ID                      string     `json:"id,omitempty"`
	Label                   string     `json:"label"`
	Value                   string     `json:"value"`
	HasConditionalQuestions bool       `json:"hasConditionalQuestions,omitempty"`
	ConditionalQuestions    []Question `json:"conditionalQuestions,omitempty"`
}

type Statement struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// GeoPoint is the answer shape for location questions.
type GeoPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type FormResponse struct {
	ID              string         `json:"id,omitempty"`
	FormID          string         `json:"formId"`
	FormVersion     int            `json:"formVersion"`
	RespondentEmail string         `json:"respondentEmail,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
	IsComplete      bool           `json:"isComplete"`
	Data            map[string]any `json:"data"`
}

// Draft is one respondent's resumption state for an in-progress pass through
// a form. It is superseded by the finalized FormResponse and cleared on
// submit.
type Draft struct {
	FormID              string         `json:"formId"`
	Responses           map[string]any `json:"responses"`
	CurrentSectionIndex int            `json:"currentSectionIndex"`
	StartedAt           time.Time      `json:"startedAt"`
	LastActivityAt      time.Time      `json:"lastActivityAt"`
}
