package store

import (
	"context"
	"database/sql"

	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/types"
)

// IssuanceStore writes a resident upsert and its new token atomically.
type IssuanceStore struct {
	db *sql.DB
}

func NewIssuanceStore(conn *sql.DB) *IssuanceStore {
	return &IssuanceStore{db: conn}
}

// Issue upserts res and inserts tok in one transaction. Either both rows
// are written or neither is.
func (s *IssuanceStore) Issue(ctx context.Context, res types.Resident, tok types.Token) (types.Token, error) {
	var stored types.Token
	err := db.WithTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if err := NewResidentRepository(tx).Upsert(ctx, res); err != nil {
			return err
		}
		inserted, err := NewTokenRepository(tx).Insert(ctx, tok)
		if err != nil {
			return err
		}
		stored = inserted
		return nil
	})
	if err != nil {
		return types.Token{}, err
	}
	return stored, nil
}
