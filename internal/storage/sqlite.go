package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nihilism/server/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS player_snapshots (
	id             TEXT PRIMARY KEY,
	format_version INTEGER NOT NULL,
	payload        TEXT NOT NULL,
	loop_number    INTEGER NOT NULL,
	nihilism_score INTEGER NOT NULL,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
)`

// SQLiteStore persists snapshots in a SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p *models.Player) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixMilli()
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO player_snapshots (
		   id, format_version, payload, loop_number, nihilism_score, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   format_version = excluded.format_version,
		   payload = excluded.payload,
		   loop_number = excluded.loop_number,
		   nihilism_score = excluded.nihilism_score,
		   updated_at = excluded.updated_at`,
		p.ID,
		FormatVersion,
		string(data),
		p.CurrentLoop.Number,
		p.Memory.NihilismScore,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	var payload string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload FROM player_snapshots WHERE id = ?`, playerID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return Decode([]byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM player_snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, playerID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM player_snapshots WHERE id = ?`, playerID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
