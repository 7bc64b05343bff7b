package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/database"
	"github.com/fieldline/fieldline/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func sampleForm() *model.Form {
	return &model.Form{
		ProjectID:   "proj-1",
		Title:       "Latrine coverage",
		Description: "Quarterly outcome tracking",
		Status:      model.StatusPublished,
		Tags:        []string{"wash"},
		Category:    "outcome",
		Sections: []model.Section{
			{
				ID:    "sec-1",
				Title: "Coverage",
				Questions: []model.Question{
					{ID: "q1", Type: model.ShortText, Title: "Village", IsRequired: true},
					{
						ID: "q2", Type: model.SingleChoice, Title: "Latrine type",
						Options: []model.Option{
							{ID: "o1", Label: "Pit", Value: "pit"},
							{ID: "o2", Label: "Other", Value: "other",
								HasConditionalQuestions: true,
								ConditionalQuestions: []model.Question{
									{ID: "q3", Type: model.ShortText, Title: "Describe"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestFormRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	form := sampleForm()
	require.NoError(t, st.CreateForm(ctx, form))
	require.NotEmpty(t, form.ID)
	assert.Equal(t, 1, form.Version)

	loaded, err := st.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, form.Title, loaded.Title)
	assert.Equal(t, []string{"wash"}, loaded.Tags)
	require.Len(t, loaded.Sections, 1)
	require.Len(t, loaded.Sections[0].Questions, 2)
	// the conditional question tree survives the JSON column
	other := loaded.Sections[0].Questions[1].Options[1]
	require.Len(t, other.ConditionalQuestions, 1)
	assert.Equal(t, "q3", other.ConditionalQuestions[0].ID)
}

func TestGetFormNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetForm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPublishedFormHidesDrafts(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	form := sampleForm()
	form.Status = model.StatusDraft
	require.NoError(t, st.CreateForm(ctx, form))

	_, err := st.GetPublishedForm(ctx, form.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetFormStatus(ctx, form.ID, model.StatusPublished))
	_, err = st.GetPublishedForm(ctx, form.ID)
	assert.NoError(t, err)
}

func TestUpdateFormOptimisticLock(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	form := sampleForm()
	require.NoError(t, st.CreateForm(ctx, form))

	form.Title = "Latrine coverage (rev)"
	require.NoError(t, st.UpdateForm(ctx, form))
	assert.Equal(t, 2, form.Version)

	// stale version loses
	stale := sampleForm()
	stale.ID = form.ID
	stale.Version = 1
	assert.ErrorIs(t, st.UpdateForm(ctx, stale), ErrVersionConflict)

	missing := sampleForm()
	missing.ID = "missing"
	missing.Version = 1
	assert.ErrorIs(t, st.UpdateForm(ctx, missing), ErrNotFound)
}

func TestListFormsByProject(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	first := sampleForm()
	require.NoError(t, st.CreateForm(ctx, first))
	second := sampleForm()
	second.ProjectID = "proj-2"
	require.NoError(t, st.CreateForm(ctx, second))

	all, err := st.ListForms(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := st.ListForms(ctx, "proj-2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, second.ID, scoped[0].ID)
}

func TestDraftRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	form := sampleForm()
	require.NoError(t, st.CreateForm(ctx, form))

	started := time.Now().UTC().Truncate(time.Second)
	draft := model.Draft{
		FormID:              form.ID,
		Responses:           map[string]any{"q1": "Kisumu", "q2": "other", "q3": "composting"},
		CurrentSectionIndex: 0,
		StartedAt:           started,
		LastActivityAt:      started,
	}
	require.NoError(t, st.Save(ctx, form.ID, "fill-1", draft))

	loaded, err := st.Load(ctx, form.ID, "fill-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, draft.Responses, loaded.Responses)
	assert.Equal(t, 0, loaded.CurrentSectionIndex)

	// saving again overwrites in place
	draft.Responses["q1"] = "Nakuru"
	draft.CurrentSectionIndex = 0
	require.NoError(t, st.Save(ctx, form.ID, "fill-1", draft))
	loaded, err = st.Load(ctx, form.ID, "fill-1")
	require.NoError(t, err)
	assert.Equal(t, "Nakuru", loaded.Responses["q1"])

	// other fill keys are isolated
	missing, err := st.Load(ctx, form.ID, "fill-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.Clear(ctx, form.ID, "fill-1"))
	cleared, err := st.Load(ctx, form.ID, "fill-1")
	require.NoError(t, err)
	assert.Nil(t, cleared)

	// clearing an absent draft is not an error
	assert.NoError(t, st.Clear(ctx, form.ID, "fill-1"))
}

func TestAddResponseBumpsFormStats(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	form := sampleForm()
	require.NoError(t, st.CreateForm(ctx, form))

	submitted := time.Now().UTC().Truncate(time.Second)
	response := &model.FormResponse{
		ID:          "resp-1",
		FormID:      form.ID,
		FormVersion: form.Version,
		StartedAt:   submitted.Add(-2 * time.Minute),
		SubmittedAt: &submitted,
		IsComplete:  true,
		Data:        map[string]any{"q1": "Kisumu", "q2": "pit"},
	}
	require.NoError(t, st.AddResponse(ctx, response))

	loaded, err := st.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ResponseCount)
	require.NotNil(t, loaded.LastResponseAt)

	responses, err := st.ListResponses(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.True(t, responses[0].IsComplete)
	assert.Equal(t, "Kisumu", responses[0].Data["q1"])

	// responses for an unknown form are rejected whole
	orphan := &model.FormResponse{
		ID: "resp-2", FormID: "missing", FormVersion: 1,
		StartedAt: submitted, SubmittedAt: &submitted, IsComplete: true,
		Data: map[string]any{},
	}
	assert.Error(t, st.AddResponse(ctx, orphan))
}
