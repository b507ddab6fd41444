package db

import (
	"fmt"
	"sort"
	"strings"

	"naturedex/internal/game"
)

const characterColumns = `owner_id, name, profession, nature, level, stat_points, atk, sp_atk, def, sp_def, spe, hp, ep, created_at, updated_at`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS characters (
	owner_id    TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	profession  TEXT NOT NULL,
	nature      TEXT NOT NULL,
	level       INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
	stat_points INTEGER NOT NULL DEFAULT 0 CHECK (stat_points >= 0),
	atk         INTEGER NOT NULL DEFAULT 0,
	sp_atk      INTEGER NOT NULL DEFAULT 0,
	def         INTEGER NOT NULL DEFAULT 0,
	sp_def      INTEGER NOT NULL DEFAULT 0,
	spe         INTEGER NOT NULL DEFAULT 0,
	hp          INTEGER NOT NULL DEFAULT 0,
	ep          INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// SQLite keeps timestamps as unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS characters (
	owner_id    TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	profession  TEXT NOT NULL,
	nature      TEXT NOT NULL,
	level       INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
	stat_points INTEGER NOT NULL DEFAULT 0 CHECK (stat_points >= 0),
	atk         INTEGER NOT NULL DEFAULT 0,
	sp_atk      INTEGER NOT NULL DEFAULT 0,
	def         INTEGER NOT NULL DEFAULT 0,
	sp_def      INTEGER NOT NULL DEFAULT 0,
	spe         INTEGER NOT NULL DEFAULT 0,
	hp          INTEGER NOT NULL DEFAULT 0,
	ep          INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// columns maps document fields to columns. Only these names are ever
// interpolated into SQL.
var columns = map[game.Field]string{
	game.FieldLevel:      "level",
	game.FieldStatPoints: "stat_points",
	game.FieldATK:        "atk",
	game.FieldSpATK:      "sp_atk",
	game.FieldDEF:        "def",
	game.FieldSpDEF:      "sp_def",
	game.FieldSPE:        "spe",
	game.FieldHP:         "hp",
	game.FieldEP:         "ep",
}

type dialect struct {
	placeholder func(n int) string
	now         func() any
}

// buildUpdate renders one UPDATE statement covering every field, so the
// whole change lands atomically. increment selects col = col + v over
// col = v.
func buildUpdate(d dialect, ownerID string, fields game.Fields, increment bool) (string, []any, error) {
	if err := fields.Validate(); err != nil {
		return "", nil, err
	}
	keys := make([]string, 0, len(fields))
	for f := range fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)

	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return d.placeholder(len(args))
	}
	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		f := game.Field(k)
		col, ok := columns[f]
		if !ok {
			return "", nil, fmt.Errorf("no column for field %q", f)
		}
		if increment {
			sets = append(sets, fmt.Sprintf("%s = %s + %s", col, col, bind(fields[f])))
		} else {
			sets = append(sets, fmt.Sprintf("%s = %s", col, bind(fields[f])))
		}
	}
	sets = append(sets, "updated_at = "+bind(d.now()))
	query := fmt.Sprintf("UPDATE characters SET %s WHERE owner_id = %s", strings.Join(sets, ", "), bind(ownerID))
	return query, args, nil
}
