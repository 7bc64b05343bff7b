package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/fieldline/model"
)

func TestDecodeText(t *testing.T) {
	q := textQuestion("q1", false)

	v, err := Decode(q, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = Decode(q, "")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Decode(q, 42.0)
	assert.Error(t, err)
}

func TestDecodeNumber(t *testing.T) {
	q := model.Question{ID: "n", Type: model.Number}

	v, err := Decode(q, 3.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	v, err = Decode(q, "17")
	require.NoError(t, err)
	assert.Equal(t, 17.0, v)

	_, err = Decode(q, "seventeen")
	assert.Error(t, err)
}

func TestDecodeSingleChoiceSentinel(t *testing.T) {
	q := choiceQuestion("q1", option("a"), option("other"))

	v, err := Decode(q, "a")
	require.NoError(t, err)
	assert.Equal(t, model.ChoiceValue{Option: "a"}, v)

	v, err = Decode(q, "other:something else")
	require.NoError(t, err)
	assert.Equal(t, model.ChoiceValue{IsOther: true, OtherText: "something else"}, v)
}

func TestDecodeMultipleChoice(t *testing.T) {
	q := model.Question{
		ID: "m", Type: model.MultipleChoice,
		Options: []model.Option{option("a"), option("b"), option("other")},
	}

	v, err := Decode(q, []any{"a", "other:c"})
	require.NoError(t, err)
	values, ok := v.([]model.ChoiceValue)
	require.True(t, ok)
	require.Len(t, values, 2)
	assert.Equal(t, "a", values[0].Option)
	assert.True(t, values[1].IsOther)
	assert.Equal(t, "c", values[1].OtherText)
}

func TestDecodeDate(t *testing.T) {
	q := model.Question{ID: "d", Type: model.Date}

	v, err := Decode(q, "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), v)

	v, err = Decode(q, "2026-03-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), v)

	_, err = Decode(q, "yesterday")
	assert.Error(t, err)
}

func TestDecodeLikert(t *testing.T) {
	q := model.Question{ID: "l", Type: model.Likert}

	v, err := Decode(q, map[string]any{"st1": "3", "st2": "5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"st1": "3", "st2": "5"}, v)

	_, err = Decode(q, map[string]any{"st1": 3.0})
	assert.Error(t, err)
}

func TestDecodeLocation(t *testing.T) {
	q := model.Question{ID: "loc", Type: model.Location}

	v, err := Decode(q, map[string]any{"latitude": -1.29, "longitude": 36.82})
	require.NoError(t, err)
	point, ok := v.(model.GeoPoint)
	require.True(t, ok)
	assert.Equal(t, -1.29, point.Latitude)
	assert.Equal(t, 36.82, point.Longitude)

	_, err = Decode(q, map[string]any{"latitude": -1.29})
	assert.Error(t, err)
}

func TestDecodeUnsupportedTypeFailsLoud(t *testing.T) {
	q := model.Question{ID: "q1", Type: "telepathy"}

	_, err := Decode(q, "anything")
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "q1", unsupported.QuestionID)
	assert.Contains(t, unsupported.Error(), "telepathy")
}

func TestDecodeIsIdempotent(t *testing.T) {
	q := choiceQuestion("q1", option("a"))

	once, err := Decode(q, "a")
	require.NoError(t, err)
	twice, err := Decode(q, once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", []string{}, []any{}, map[string]string{}, map[string]any{}, []model.ChoiceValue{}}
	for _, v := range empty {
		assert.True(t, IsEmpty(v), "%#v should be empty", v)
	}

	filled := []any{"x", 0.0, []string{"a"}, map[string]string{"k": "v"}, model.ChoiceValue{Option: "a"}, model.GeoPoint{}}
	for _, v := range filled {
		assert.False(t, IsEmpty(v), "%#v should not be empty", v)
	}
}

func TestCheckChoiceMembership(t *testing.T) {
	q := choiceQuestion("q1", option("a"), option("b"))

	msg, err := Check(q, model.ChoiceValue{Option: "a"})
	require.NoError(t, err)
	assert.Empty(t, msg)

	msg, err = Check(q, model.ChoiceValue{Option: "z"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid option", msg)

	// free-text answers need a catch-all "other" option to land on
	msg, err = Check(q, model.ChoiceValue{IsOther: true, OtherText: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid option", msg)

	withOther := choiceQuestion("q2", option("a"), option("other"))
	msg, err = Check(withOther, model.ChoiceValue{IsOther: true, OtherText: "custom"})
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestCheckSliderRange(t *testing.T) {
	min, max := 0.0, 10.0
	q := model.Question{ID: "s", Type: model.Slider, Min: &min, Max: &max}

	msg, err := Check(q, 5.0)
	require.NoError(t, err)
	assert.Empty(t, msg)

	msg, err = Check(q, -1.0)
	require.NoError(t, err)
	assert.Equal(t, "Value must be at least 0", msg)
}

func TestCheckDateBounds(t *testing.T) {
	minDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := model.Question{ID: "d", Type: model.Date, MinDate: &minDate}

	msg, err := Check(q, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Date must not be before 2026-01-01", msg)
}

func TestCheckLikertCoverage(t *testing.T) {
	q := model.Question{
		ID: "l", Type: model.Likert, IsRequired: true,
		Statements: []model.Statement{{ID: "st1"}, {ID: "st2"}},
		Options:    []model.Option{option("1"), option("2"), option("3")},
	}

	msg, err := Check(q, map[string]string{"st1": "2"})
	require.NoError(t, err)
	assert.Equal(t, "All statements must be answered", msg)

	msg, err = Check(q, map[string]string{"st1": "2", "st2": "9"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid scale value", msg)

	msg, err = Check(q, map[string]string{"st1": "2", "st2": "3"})
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestCheckTextRules(t *testing.T) {
	minLen := 3
	q := model.Question{
		ID: "t", Type: model.ShortText,
		Rules: &model.Rules{MinLength: &minLen, Pattern: `^[a-z]+$`},
	}

	msg, err := Check(q, "ab")
	require.NoError(t, err)
	assert.Equal(t, "Must be at least 3 characters", msg)

	msg, err = Check(q, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "Invalid format", msg)

	msg, err = Check(q, "abcd")
	require.NoError(t, err)
	assert.Empty(t, msg)
}
