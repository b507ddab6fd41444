package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"naturedex/internal/game"
	"naturedex/internal/stat"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ game.Store = (*PostgresStore)(nil)

// Connect opens a tuned pool and pings it. The bot holds few concurrent
// statements: one per in-flight command.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "naturedex"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate characters: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID string) (game.Character, error) {
	var c game.Character
	var atk, spAtk, def, spDef, spe int
	err := s.db.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE owner_id = $1
	`, ownerID).Scan(
		&c.OwnerID, &c.Name, &c.Profession, &c.Nature, &c.Level, &c.StatPoints,
		&atk, &spAtk, &def, &spDef, &spe, &c.HP, &c.EP, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Character{}, game.ErrCharacterNotFound
		}
		return game.Character{}, err
	}
	c.Stats = stat.Block{stat.ATK: atk, stat.SpATK: spAtk, stat.DEF: def, stat.SpDEF: spDef, stat.SPE: spe}
	return c, nil
}

func (s *PostgresStore) Insert(ctx context.Context, c game.Character) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.OwnerID, c.Name, c.Profession, c.Nature, c.Level, c.StatPoints,
		c.Stats.Get(stat.ATK), c.Stats.Get(stat.SpATK), c.Stats.Get(stat.DEF), c.Stats.Get(stat.SpDEF), c.Stats.Get(stat.SPE),
		c.HP, c.EP, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return game.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Increment(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, true)
}

func (s *PostgresStore) ReplaceFields(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, false)
}

func (s *PostgresStore) update(ctx context.Context, ownerID string, fields game.Fields, increment bool) error {
	query, args, err := buildUpdate(postgresDialect, ownerID, fields, increment)
	if err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrCharacterNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID string) (bool, error) {
	cmd, err := s.db.Exec(ctx, `DELETE FROM characters WHERE owner_id = $1`, ownerID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	now:         func() any { return time.Now().UTC() },
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
