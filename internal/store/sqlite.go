package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLiteStore is a Store backed by SQLite via sqlx. The caller imports the
// driver (modernc.org/sqlite) and owns the *sqlx.DB.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the schema and returns the store.
func NewSQLiteStore(db *sqlx.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			workflow_id TEXT PRIMARY KEY,
			topology TEXT NOT NULL,
			status TEXT NOT NULL,
			config_key TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflows (workflow_id, topology, status, config_key, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.WorkflowID, string(rec.Topology), string(rec.Status), rec.ConfigKey, rec.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, workflowID string) (Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec, `
		SELECT workflow_id, topology, status, config_key, created_at
		FROM workflows WHERE workflow_id = ?`, workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrWorkflowNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, workflowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE workflow_id = ?`, workflowID)
	return err
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, workflowID string, status Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflows SET status = ? WHERE workflow_id = ?`,
		string(status), workflowID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWorkflowNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.db.SelectContext(ctx, &records, `
		SELECT workflow_id, topology, status, config_key, created_at
		FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return records, nil
}
