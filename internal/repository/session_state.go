package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/astroline/consult-agent-go/internal/model"
)

// SessionStateRepository persists the single active-session record for an
// owner. It is the only state shared between the foreground coordinator
// and the background handler, so every write is write-through.
type SessionStateRepository interface {
	Find(ctx context.Context, ownerID string) (*model.SessionStateRow, error)
	Upsert(ctx context.Context, ownerID string, sessionType model.SessionType, params json.RawMessage) error
	Delete(ctx context.Context, ownerID string) error
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// stateDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type stateDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionStateRepo struct {
	db stateDB
}

func NewSessionStateRepository(db *sqlx.DB) SessionStateRepository {
	return &sessionStateRepo{db: db}
}

func (r *sessionStateRepo) Find(ctx context.Context, ownerID string) (*model.SessionStateRow, error) {
	var row model.SessionStateRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM active_sessions WHERE owner_id = $1
	`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sessionStateRepo) Upsert(ctx context.Context, ownerID string, sessionType model.SessionType, params json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO active_sessions (owner_id, session_type, params, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
			session_type = EXCLUDED.session_type,
			params = EXCLUDED.params,
			updated_at = EXCLUDED.updated_at
	`, ownerID, sessionType, params, time.Now())
	return err
}

func (r *sessionStateRepo) Delete(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM active_sessions WHERE owner_id = $1
	`, ownerID)
	return err
}

func (r *sessionStateRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM active_sessions WHERE updated_at < $1
	`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
