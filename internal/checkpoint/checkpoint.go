// Package checkpoint persists Group Actor snapshots to SQLite, the
// best-effort durability hook described in spec §5: an actor awaits its
// checkpoint after every mutation but never fails the caller because of
// it.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dilbagh/theunfairwheel/internal/actor"
)

// Store is a single-table SQLite-backed actor.CheckpointStore. Unlike the
// teacher's relational schema, a Group Actor's entire snapshot is one
// opaque JSON blob keyed by group id — there is nothing here that needs
// relational structure, since the actor itself is the only reader.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS group_snapshots (
		group_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, groupID string, snapshot actor.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO group_snapshots (group_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(group_id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		groupID, string(data))
	return err
}

func (s *Store) Load(ctx context.Context, groupID string) (actor.Snapshot, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM group_snapshots WHERE group_id = ?`, groupID).Scan(&data)
	if err == sql.ErrNoRows {
		return actor.Snapshot{}, false, nil
	}
	if err != nil {
		return actor.Snapshot{}, false, err
	}

	var snap actor.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return actor.Snapshot{}, false, err
	}
	return snap, true, nil
}
