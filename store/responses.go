package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/fieldline/fieldline/model"
)

// AddResponse stores a finalized response and bumps the owning form's
// response counters in the same transaction, so a half-recorded submission
// can never show up in dashboard stats.
func (s *Store) AddResponse(ctx context.Context, response *model.FormResponse) error {
	data, err := encodeJSON(response.Data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO response (id, form_id, form_version, respondent_email,
			started_at, submitted_at, is_complete, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		response.ID, response.FormID, response.FormVersion, response.RespondentEmail,
		response.StartedAt, response.SubmittedAt, response.IsComplete, data,
	)
	if err != nil {
		return errors.Wrap(err, "insert response")
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET response_count = response_count + 1,
			last_response_at = ?
		WHERE id = ?`,
		response.SubmittedAt, response.FormID,
	)
	if err != nil {
		return errors.Wrap(err, "update response stats")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update response stats: rows affected")
	}
	if n < 1 {
		return ErrNotFound
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (s *Store) ListResponses(ctx context.Context, formID string) ([]model.FormResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, form_version, respondent_email,
			started_at, submitted_at, is_complete, data
		FROM response
		WHERE form_id = ?
		ORDER BY started_at`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	defer rows.Close()

	responses := []model.FormResponse{}
	for rows.Next() {
		var r model.FormResponse
		var data string
		var submittedAt sql.NullTime
		err = rows.Scan(
			&r.ID, &r.FormID, &r.FormVersion, &r.RespondentEmail,
			&r.StartedAt, &submittedAt, &r.IsComplete, &data,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan response row")
		}
		if submittedAt.Valid {
			r.SubmittedAt = &submittedAt.Time
		}
		if err = decodeJSON(data, &r.Data); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}
