package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fieldline/fieldline/model"
)

// CreateForm inserts a new form at version 1 in DRAFT status unless the
// definition carries a status already (imports may arrive pre-published).
func (s *Store) CreateForm(ctx context.Context, form *model.Form) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	if form.Status == "" {
		form.Status = model.StatusDraft
	}
	form.Version = 1
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now

	sections, err := encodeJSON(form.Sections)
	if err != nil {
		return err
	}
	settings, err := encodeJSON(form.Settings)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(form.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form (id, project_id, title, description, status, version,
			category, tags, settings, sections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		form.ID, form.ProjectID, form.Title, form.Description, form.Status, form.Version,
		form.Category, tags, settings, sections, form.CreatedAt, form.UpdatedAt,
	)
	return errors.Wrap(err, "insert form")
}

func (s *Store) GetForm(ctx context.Context, id string) (*model.Form, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, version, category,
			tags, settings, sections, response_count, last_response_at,
			created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	)
	return scanForm(row)
}

// GetPublishedForm is the public lookup: anything not currently accepting
// respondents reads as not found.
func (s *Store) GetPublishedForm(ctx context.Context, id string) (*model.Form, error) {
	form, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status != model.StatusPublished {
		return nil, ErrNotFound
	}
	return form, nil
}

// ListForms returns form headers (no section trees) for the dashboard list,
// optionally filtered by project.
func (s *Store) ListForms(ctx context.Context, projectID string) ([]model.Form, error) {
	query := `
		SELECT id, project_id, title, description, status, version, category,
			tags, response_count, last_response_at, created_at, updated_at
		FROM form`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list forms")
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		var f model.Form
		var tags string
		var lastResponse sql.NullTime
		err = rows.Scan(
			&f.ID, &f.ProjectID, &f.Title, &f.Description, &f.Status, &f.Version,
			&f.Category, &tags, &f.ResponseCount, &lastResponse,
			&f.CreatedAt, &f.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan form row")
		}
		if err = decodeJSON(tags, &f.Tags); err != nil {
			return nil, err
		}
		if lastResponse.Valid {
			f.LastResponseAt = &lastResponse.Time
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// UpdateForm replaces the definition under an optimistic version check: the
// caller's version must match the stored one, and the stored version is
// bumped in the same statement. ErrVersionConflict means a concurrent editor
// won.
func (s *Store) UpdateForm(ctx context.Context, form *model.Form) error {
	sections, err := encodeJSON(form.Sections)
	if err != nil {
		return err
	}
	settings, err := encodeJSON(form.Settings)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(form.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE form
		SET title = ?,
			description = ?,
			category = ?,
			tags = ?,
			settings = ?,
			sections = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ?
			AND version = ?`,
		form.Title, form.Description, form.Category, tags, settings, sections,
		time.Now().UTC(),
		form.ID, form.Version,
	)
	if err != nil {
		return errors.Wrap(err, "update form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update form: rows affected")
	}
	if n < 1 {
		if _, err := s.GetForm(ctx, form.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	form.Version++
	return nil
}

func (s *Store) SetFormStatus(ctx context.Context, id string, status model.FormStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE form SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return errors.Wrap(err, "set form status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "set form status: rows affected")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteForm(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM draft WHERE form_id = ?`, id); err != nil {
		return errors.Wrap(err, "delete form drafts")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM response WHERE form_id = ?`, id); err != nil {
		return errors.Wrap(err, "delete form responses")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM form WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete form: rows affected")
	}
	if n < 1 {
		return ErrNotFound
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func scanForm(row *sql.Row) (*model.Form, error) {
	var f model.Form
	var tags, settings, sections string
	var lastResponse sql.NullTime
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.Title, &f.Description, &f.Status, &f.Version,
		&f.Category, &tags, &settings, &sections, &f.ResponseCount, &lastResponse,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan form")
	}
	if err = decodeJSON(tags, &f.Tags); err != nil {
		return nil, err
	}
	if err = decodeJSON(settings, &f.Settings); err != nil {
		return nil, err
	}
	if err = decodeJSON(sections, &f.Sections); err != nil {
		return nil, err
	}
	if lastResponse.Valid {
		f.LastResponseAt = &lastResponse.Time
	}
	return &f, nil
}
