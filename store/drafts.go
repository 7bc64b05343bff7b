package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/fieldline/fieldline/model"
)

// Save upserts the draft for one (form, fill key) pair. Called on every
// answer change, so it is a single statement.
func (s *Store) Save(ctx context.Context, formID, fillKey string, draft model.Draft) error {
	responses, err := encodeJSON(draft.Responses)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO draft (form_id, fill_key, responses, section_index,
			started_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (form_id, fill_key) DO UPDATE
		SET responses = excluded.responses,
			section_index = excluded.section_index,
			last_activity_at = excluded.last_activity_at`,
		formID, fillKey, responses, draft.CurrentSectionIndex,
		draft.StartedAt, draft.LastActivityAt,
	)
	return errors.Wrap(err, "save draft")
}

// Load returns the stored draft or nil when the respondent has none.
func (s *Store) Load(ctx context.Context, formID, fillKey string) (*model.Draft, error) {
	var draft model.Draft
	var responses string
	err := s.db.QueryRowContext(ctx, `
		SELECT responses, section_index, started_at, last_activity_at
		FROM draft
		WHERE form_id = ? AND fill_key = ?`,
		formID, fillKey,
	).Scan(&responses, &draft.CurrentSectionIndex, &draft.StartedAt, &draft.LastActivityAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load draft")
	}

	draft.FormID = formID
	if err = decodeJSON(responses, &draft.Responses); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Clear drops the draft. Clearing an absent draft is not an error: the call
// happens exactly once after submit, possibly racing a concurrent clear.
func (s *Store) Clear(ctx context.Context, formID, fillKey string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM draft WHERE form_id = ? AND fill_key = ?`,
		formID, fillKey,
	)
	return errors.Wrap(err, "clear draft")
}
