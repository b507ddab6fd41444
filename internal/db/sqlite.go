package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"naturedex/internal/game"
	"naturedex/internal/stat"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ game.Store = (*SQLiteStore)(nil)

// SQLiteStore keeps characters in a single local file. Writes go through
// one connection, which serializes them.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
	} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate characters: %w", err)
	}
	return &SQLiteStore{db: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID string) (game.Character, error) {
	var c game.Character
	var atk, spAtk, def, spDef, spe int
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE owner_id = ?
	`, ownerID).Scan(
		&c.OwnerID, &c.Name, &c.Profession, &c.Nature, &c.Level, &c.StatPoints,
		&atk, &spAtk, &def, &spDef, &spe, &c.HP, &c.EP, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Character{}, game.ErrCharacterNotFound
		}
		return game.Character{}, err
	}
	c.Stats = stat.Block{stat.ATK: atk, stat.SpATK: spAtk, stat.DEF: def, stat.SpDEF: spDef, stat.SPE: spe}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, c game.Character) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.OwnerID, c.Name, c.Profession, c.Nature, c.Level, c.StatPoints,
		c.Stats.Get(stat.ATK), c.Stats.Get(stat.SpATK), c.Stats.Get(stat.DEF), c.Stats.Get(stat.SpDEF), c.Stats.Get(stat.SPE),
		c.HP, c.EP, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	if err != nil {
		if isSQLiteConstraint(err) {
			return game.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) Increment(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, true)
}

func (s *SQLiteStore) ReplaceFields(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, false)
}

func (s *SQLiteStore) update(ctx context.Context, ownerID string, fields game.Fields, increment bool) error {
	query, args, err := buildUpdate(sqliteDialect, ownerID, fields, increment)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return game.ErrCharacterNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ownerID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM characters WHERE owner_id = ?`, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	now:         func() any { return toMillis(time.Now()) },
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
