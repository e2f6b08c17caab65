package repository

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// SeenHashes is a sqlite-backed duplicate scope. The scope is usually a batch ID.
type SeenHashes struct {
	db    *sql.DB
	scope string
}

func NewSeenHashes(db *sql.DB, scope string) *SeenHashes {
	return &SeenHashes{db: db, scope: scope}
}

func (s *SeenHashes) Claim(ctx context.Context, hash, recordID string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_hashes (scope, hash, record_id) VALUES (?, ?, ?)
		 ON CONFLICT(scope, hash) DO NOTHING`,
		s.scope, hash, recordID,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: claim hash %s", hash)
	}
	var owner string
	err = s.db.QueryRowContext(ctx,
		`SELECT record_id FROM seen_hashes WHERE scope = ? AND hash = ?`,
		s.scope, hash,
	).Scan(&owner)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: read hash owner %s", hash)
	}
	return owner, nil
}

func (s *SeenHashes) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen_hashes WHERE scope = ?`, s.scope)
	return eris.Wrapf(err, "sqlite: reset hashes for %s", s.scope)
}
