package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() *Form {
	return &Form{
		Title: "Water point survey",
		Sections: []Section{
			{
				Title: "Basics",
				Questions: []Question{
					{ID: "q1", Type: ShortText, Title: "Village name", IsRequired: true},
					{
						ID: "q2", Type: SingleChoice, Title: "Source type",
						Options: []Option{
							{Label: "Borehole", Value: "borehole"},
							{Label: "Other", Value: "other",
								HasConditionalQuestions: true,
								ConditionalQuestions: []Question{
									{ID: "q3", Type: ShortText, Title: "Describe the source"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	assert.NoError(t, validForm().Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	form := &Form{
		Sections: []Section{
			{
				Title: "Broken",
				Questions: []Question{
					{ID: "a", Type: "hologram", Title: "Bad type"},
					{ID: "a", Type: ShortText, Title: "Duplicate id"},
					{ID: "c", Type: SingleChoice, Title: "No options"},
				},
			},
		},
	}

	err := form.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "title is required")
	assert.Contains(t, msg, "hologram")
	assert.Contains(t, msg, "duplicate id")
	assert.Contains(t, msg, "no options")
}

func TestValidateConditionalQuestionsRecursively(t *testing.T) {
	form := validForm()
	conditional := &form.Sections[0].Questions[1].Options[1].ConditionalQuestions[0]
	conditional.Type = "mystery"

	err := form.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestValidateSliderRequiresBounds(t *testing.T) {
	form := &Form{
		Title: "Sliders",
		Sections: []Section{
			{Title: "S", Questions: []Question{
				{ID: "s1", Type: Slider, Title: "Satisfaction"},
			}},
		},
	}

	err := form.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slider requires min and max")
}

func TestValidateDeclaredButMissingConditionals(t *testing.T) {
	form := &Form{
		Title: "C",
		Sections: []Section{
			{Title: "S", Questions: []Question{
				{ID: "q", Type: SingleChoice, Title: "Pick", Options: []Option{
					{Label: "A", Value: "a", HasConditionalQuestions: true},
				}},
			}},
		},
	}

	err := form.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares conditional questions but has none")
}

func TestAssignIDsFillsEveryLevel(t *testing.T) {
	form := validForm()
	form.Sections[0].Questions[1].Options[0].ID = ""
	form.AssignIDs()

	assert.NotEmpty(t, form.ID)
	assert.NotEmpty(t, form.Sections[0].ID)
	assert.NotEmpty(t, form.Sections[0].Questions[1].Options[0].ID)
	// existing ids are preserved
	assert.Equal(t, "q1", form.Sections[0].Questions[0].ID)
	assert.Equal(t, "q3", form.Sections[0].Questions[1].Options[1].ConditionalQuestions[0].ID)
}
