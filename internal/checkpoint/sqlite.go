package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/auramail/auramail/internal/engine"
)

// SQLiteCheckpointer persists checkpoints in SQLite. It expects a *sqlx.DB
// opened with a SQLite driver; the caller imports the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteCheckpointer struct {
	db *sqlx.DB
}

var _ engine.Checkpointer = (*SQLiteCheckpointer)(nil)

// NewSQLiteCheckpointer initializes the schema and returns the store.
func NewSQLiteCheckpointer(db *sqlx.DB) (*SQLiteCheckpointer, error) {
	s := &SQLiteCheckpointer{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteCheckpointer) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			key TEXT PRIMARY KEY,
			node TEXT NOT NULL,
			state BLOB NOT NULL,
			saved_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteCheckpointer) Save(ctx context.Context, key string, cp engine.Checkpoint) error {
	state, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("encoding checkpoint state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, node, state, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET node = excluded.node, state = excluded.state, saved_at = excluded.saved_at`,
		key, cp.Node, state, cp.SavedAt,
	)
	return err
}

func (s *SQLiteCheckpointer) Load(ctx context.Context, key string) (engine.Checkpoint, error) {
	var row struct {
		Node    string    `db:"node"`
		State   []byte    `db:"state"`
		SavedAt time.Time `db:"saved_at"`
	}

	err := s.db.GetContext(ctx, &row, `
		SELECT node, state, saved_at FROM checkpoints WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Checkpoint{}, engine.ErrCheckpointNotFound
		}
		return engine.Checkpoint{}, err
	}

	cp := engine.Checkpoint{Node: row.Node, SavedAt: row.SavedAt}
	if err := json.Unmarshal(row.State, &cp.State); err != nil {
		return engine.Checkpoint{}, fmt.Errorf("decoding checkpoint state: %w", err)
	}
	return cp, nil
}

func (s *SQLiteCheckpointer) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = ?`, key)
	return err
}
