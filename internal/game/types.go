package game

import (
	"context"
	"fmt"
	"time"

	"naturedex/internal/nature"
	"naturedex/internal/prompt"
	"naturedex/internal/stat"
)

// Store is the per-owner character document store. Implementations must
// apply Increment and ReplaceFields atomically.
type Store interface {
	Get(ctx context.Context, ownerID string) (Character, error)
	Insert(ctx context.Context, c Character) error
	Increment(ctx context.Context, ownerID string, fields Fields) error
	ReplaceFields(ctx context.Context, ownerID string, fields Fields) error
	Delete(ctx context.Context, ownerID string) (bool, error)
}

// Locker hands out one exclusive slot per owner.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type Config struct {
	MaxLevel          int
	StartingHP        int
	StartingEP        int
	RegisterTimeout   time.Duration
	DistributeTimeout time.Duration
	BoostTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxLevel:          DefaultMaxLevel,
		StartingHP:        DefaultStartingHP,
		StartingEP:        DefaultStartingEP,
		RegisterTimeout:   60 * time.Second,
		DistributeTimeout: 120 * time.Second,
		BoostTimeout:      60 * time.Second,
	}
}

type RegisterInput struct {
	OwnerID    string
	ChannelID  string
	Name       string
	Profession string
	Nature     string
}

type StatLine struct {
	Stat      stat.Stat `json:"stat"`
	Base      int       `json:"base"`
	Modifier  int       `json:"modifier"`
	Effective int       `json:"effective"`
}

func (l StatLine) String() string {
	if l.Modifier == 0 {
		return fmt.Sprintf("%d", l.Base)
	}
	return fmt.Sprintf("%d (Nature: %+d -> %d)", l.Base, l.Modifier, l.Effective)
}

// Sheet is a character as shown to its owner: stored base stats with the
// nature modifier applied on top.
type Sheet struct {
	Character Character     `json:"character"`
	Nature    nature.Nature `json:"nature"`
	Lines     []StatLine    `json:"lines"`
}

func NewSheet(c Character, n nature.Nature) Sheet {
	out := Sheet{Character: c, Nature: n}
	effective := c.Stats.Plus(n.Modifier)
	for _, s := range stat.All {
		out.Lines = append(out.Lines, StatLine{
			Stat:      s,
			Base:      c.Stats.Get(s),
			Modifier:  n.Modifier.Get(s),
			Effective: effective.Get(s),
		})
	}
	return out
}

func (s Sheet) Line(st stat.Stat) StatLine {
	for _, l := range s.Lines {
		if l.Stat == st {
			return l
		}
	}
	return StatLine{Stat: st}
}

func (s Sheet) Notice() prompt.Notice {
	c := s.Character
	n := prompt.Notice{
		Level: prompt.LevelInfo,
		Title: fmt.Sprintf("%s the %s", c.Name, c.Profession),
		Text:  fmt.Sprintf("Nature: %s - %s", s.Nature.Name, s.Nature.Category),
		Fields: []prompt.Field{
			{Name: "Level", Value: fmt.Sprintf("%d", c.Level)},
			{Name: "Stat points", Value: fmt.Sprintf("%d", c.StatPoints)},
		},
	}
	for _, l := range s.Lines {
		n.Fields = append(n.Fields, prompt.Field{Name: string(l.Stat), Value: l.String()})
	}
	n.Fields = append(n.Fields,
		prompt.Field{Name: string(ResourceHP), Value: fmt.Sprintf("%d", c.HP)},
		prompt.Field{Name: string(ResourceEP), Value: fmt.Sprintf("%d", c.EP)},
	)
	return n
}
