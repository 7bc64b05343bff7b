// Package store is the SQLite persistence layer. Form definitions and answer
// maps nest (conditional questions), so they are kept as JSON document
// columns rather than flattened into rows.
package store

import (
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func encodeJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode json column")
	}
	return string(b), nil
}

func decodeJSON(raw string, out any) error {
	if raw == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(raw), out), "decode json column")
}
