// Package store reads the site content out of Postgres.
package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/vroom-be/sitemaps/internal/content"
)

// Ensure Repo implements the Reader interface
var _ content.Reader = (*Repo)(nil)

// Repo represents the read-only surface over the content tables.
type Repo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// New creates a Repo issuing Postgres-style placeholders.
func New(db *sqlx.DB) Repo {
	return NewWithPlaceholders(db, sq.Dollar)
}

// NewWithPlaceholders creates a Repo for drivers that bind differently, like sqlite.
func NewWithPlaceholders(db *sqlx.DB, format sq.PlaceholderFormat) Repo {
	return Repo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}
