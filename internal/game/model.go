package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"naturedex/internal/nature"
	"naturedex/internal/stat"
)

const (
	RegistrationBudget = 5
	StartingLevel      = 5
	BoostAmount        = 5

	DefaultMaxLevel   = 15
	DefaultStartingHP = 25
	DefaultStartingEP = 15
)

var (
	ErrAlreadyRegistered    = errors.New("you have already registered a character")
	ErrNotRegistered        = errors.New("you have not registered a character yet")
	ErrUnknownNature        = nature.ErrUnknownNature
	ErrMaxLevelReached      = errors.New("character is already at the maximum level")
	ErrNoPointsToDistribute = errors.New("no stat points to distribute")
	ErrInvalidChoice        = errors.New("invalid stat choice")
	ErrInvalidAmount        = errors.New("invalid number of points")
	ErrSessionTimedOut      = errors.New("stat allocation timed out")
	ErrStorageUnavailable   = errors.New("character storage unavailable")
	ErrOwnerBusy            = errors.New("another command for this character is still running")
	ErrInvalidCharacter     = errors.New("character name and profession are required")
	ErrInvalidLevel         = errors.New("level out of range")
	ErrInvalidResource      = errors.New("resource must be HP or EP")

	// Returned by Store implementations.
	ErrDuplicateKey      = errors.New("duplicate owner key")
	ErrCharacterNotFound = errors.New("character not found")
)

type Resource string

const (
	ResourceHP Resource = "HP"
	ResourceEP Resource = "EP"
)

var Resources = []Resource{ResourceHP, ResourceEP}

func ParseResource(raw string) (Resource, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HP":
		return ResourceHP, nil
	case "EP":
		return ResourceEP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidResource, raw)
	}
}

func (r Resource) Field() Field {
	if r == ResourceEP {
		return FieldEP
	}
	return FieldHP
}

// Field names a numeric column of the character document. Stores translate
// fields to their own column names.
type Field string

const (
	FieldLevel      Field = "level"
	FieldStatPoints Field = "stat_points"
	FieldATK        Field = "atk"
	FieldSpATK      Field = "sp_atk"
	FieldDEF        Field = "def"
	FieldSpDEF      Field = "sp_def"
	FieldSPE        Field = "spe"
	FieldHP         Field = "hp"
	FieldEP         Field = "ep"
)

var statFields = map[stat.Stat]Field{
	stat.ATK:   FieldATK,
	stat.SpATK: FieldSpATK,
	stat.DEF:   FieldDEF,
	stat.SpDEF: FieldSpDEF,
	stat.SPE:   FieldSPE,
}

// AllFields lists every mutable numeric field in a stable order.
var AllFields = []Field{FieldLevel, FieldStatPoints, FieldATK, FieldSpATK, FieldDEF, FieldSpDEF, FieldSPE, FieldHP, FieldEP}

func StatField(s stat.Stat) Field {
	return statFields[s]
}

func (f Field) Valid() bool {
	for _, v := range AllFields {
		if v == f {
			return true
		}
	}
	return false
}

// Fields maps document fields to a delta (Increment) or a new value
// (ReplaceFields).
type Fields map[Field]int

func (f Fields) Validate() error {
	if len(f) == 0 {
		return fmt.Errorf("no fields given")
	}
	for k := range f {
		if !k.Valid() {
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}

// Commit converts a completed allocation into the single increment that
// moves points from the unallocated budget into the base stats.
func Commit(deltas stat.Block) Fields {
	out := Fields{FieldStatPoints: -deltas.Sum()}
	for _, s := range stat.All {
		out[StatField(s)] = deltas.Get(s)
	}
	return out
}

type Character struct {
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	Profession string     `json:"profession"`
	Nature     string     `json:"nature"`
	Level      int        `json:"level"`
	StatPoints int        `json:"stat_points"`
	Stats      stat.Block `json:"stats"`
	HP         int        `json:"hp"`
	EP         int        `json:"ep"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (c Character) Field(f Field) int {
	switch f {
	case FieldLevel:
		return c.Level
	case FieldStatPoints:
		return c.StatPoints
	case FieldHP:
		return c.HP
	case FieldEP:
		return c.EP
	}
	for s, sf := range statFields {
		if sf == f {
			return c.Stats.Get(s)
		}
	}
	return 0
}

func (c *Character) SetField(f Field, v int) {
	switch f {
	case FieldLevel:
		c.Level = v
		return
	case FieldStatPoints:
		c.StatPoints = v
		return
	case FieldHP:
		c.HP = v
		return
	case FieldEP:
		c.EP = v
		return
	}
	for s, sf := range statFields {
		if sf == f {
			if c.Stats == nil {
				c.Stats = stat.NewBlock()
			}
			c.Stats[s] = v
			return
		}
	}
}

// Increment applies deltas in memory the way a store applies them on disk.
func (c *Character) Increment(fields Fields) {
	for f, d := range fields {
		c.SetField(f, c.Field(f)+d)
	}
}

func validateCharacterText(name, profession string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(profession) == "" {
		return ErrInvalidCharacter
	}
	return nil
}
