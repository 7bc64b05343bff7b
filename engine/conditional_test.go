package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldline/fieldline/model"
)

func questionIDs(questions []model.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func TestActiveConditionalSingleChoice(t *testing.T) {
	q3 := textQuestion("q3", true)
	q2 := choiceQuestion("q2", option("yes"), option("other", q3))

	assert.Empty(t, ActiveConditional(q2, Responses{}))
	assert.Empty(t, ActiveConditional(q2, Responses{"q2": "yes"}))
	assert.Equal(t, []string{"q3"}, questionIDs(ActiveConditional(q2, Responses{"q2": "other"})))
}

func TestActiveConditionalOtherSentinel(t *testing.T) {
	follow := textQuestion("follow", false)
	q := choiceQuestion("q", option("a"), option("other", follow))

	// a free-text answer selects the catch-all "other" option
	active := ActiveConditional(q, Responses{"q": "other:hand-written"})
	assert.Equal(t, []string{"follow"}, questionIDs(active))
}

func TestActiveConditionalMultipleChoice(t *testing.T) {
	fa := textQuestion("fa", false)
	fb := textQuestion("fb", false)
	q := model.Question{
		ID: "m", Type: model.MultipleChoice,
		Options: []model.Option{option("a", fa), option("b", fb), option("c")},
	}

	active := ActiveConditional(q, Responses{"m": []any{"a", "c"}})
	assert.Equal(t, []string{"fa"}, questionIDs(active))

	active = ActiveConditional(q, Responses{"m": []any{"a", "b"}})
	assert.Equal(t, []string{"fa", "fb"}, questionIDs(active))
}

func TestActiveConditionalRecursesDepth(t *testing.T) {
	leaf := textQuestion("leaf", false)
	mid := choiceQuestion("mid", option("deeper", leaf), option("stop"))
	root := choiceQuestion("root", option("expand", mid))

	active := ActiveConditional(root, Responses{"root": "expand", "mid": "deeper"})
	assert.Equal(t, []string{"mid", "leaf"}, questionIDs(active))

	active = ActiveConditional(root, Responses{"root": "expand"})
	assert.Equal(t, []string{"mid"}, questionIDs(active))
}

func TestActiveConditionalCanonicalValues(t *testing.T) {
	follow := textQuestion("follow", false)
	q := choiceQuestion("q", option("a", follow))

	// draft reload hands the resolver raw strings, live sessions hand it
	// decoded ChoiceValues; both select
	assert.Len(t, ActiveConditional(q, Responses{"q": "a"}), 1)
	assert.Len(t, ActiveConditional(q, Responses{"q": model.ChoiceValue{Option: "a"}}), 1)
}

func TestVisibleQuestionsOrder(t *testing.T) {
	follow := textQuestion("follow", false)
	q1 := textQuestion("q1", false)
	q2 := choiceQuestion("q2", option("x", follow))
	q3 := textQuestion("q3", false)
	sec := model.Section{Questions: []model.Question{q1, q2, q3}}

	visible := VisibleQuestions(sec, Responses{"q2": "x"})
	assert.Equal(t, []string{"q1", "q2", "follow", "q3"}, questionIDs(visible))

	visible = VisibleQuestions(sec, Responses{})
	assert.Equal(t, []string{"q1", "q2", "q3"}, questionIDs(visible))
}

func TestFinalizeDataPrunesOrphans(t *testing.T) {
	follow := textQuestion("follow", false)
	q := choiceQuestion("q", option("a", follow), option("b"))
	form := singleSectionForm(q)

	responses := Responses{"q": "b", "follow": "orphaned"}
	data := FinalizeData(form, responses)
	assert.NotContains(t, data, "follow")
	assert.Equal(t, "b", data["q"])

	responses["q"] = "a"
	data = FinalizeData(form, responses)
	assert.Equal(t, "orphaned", data["follow"])
}
