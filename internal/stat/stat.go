package stat

import (
	"strings"
)

type Stat string

const (
	ATK   Stat = "ATK"
	SpATK Stat = "SpATK"
	DEF   Stat = "DEF"
	SpDEF Stat = "SpDEF"
	SPE   Stat = "SPE"
)

// All lists the base stats in display order.
var All = []Stat{ATK, SpATK, DEF, SpDEF, SPE}

var aliases = map[string]Stat{
	"atk":    ATK,
	"spatk":  SpATK,
	"sp_atk": SpATK,
	"sp.atk": SpATK,
	"def":    DEF,
	"spdef":  SpDEF,
	"sp_def": SpDEF,
	"sp.def": SpDEF,
	"spe":    SPE,
	"speed":  SPE,
}

// Parse accepts a stat tag in any case, including the underscored spellings
// older character documents used.
func Parse(raw string) (Stat, bool) {
	s, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

func (s Stat) Valid() bool {
	for _, v := range All {
		if v == s {
			return true
		}
	}
	return false
}

func Tags() []string {
	out := make([]string, len(All))
	for i, s := range All {
		out[i] = string(s)
	}
	return out
}

// Block holds one integer per base stat. Missing stats read as zero.
type Block map[Stat]int

func NewBlock() Block {
	b := make(Block, len(All))
	for _, s := range All {
		b[s] = 0
	}
	return b
}

func (b Block) Get(s Stat) int {
	if b == nil {
		return 0
	}
	return b[s]
}

func (b Block) Sum() int {
	total := 0
	for _, s := range All {
		total += b.Get(s)
	}
	return total
}

func (b Block) Clone() Block {
	out := NewBlock()
	for _, s := range All {
		out[s] = b.Get(s)
	}
	return out
}

// Plus returns a new block with other added stat by stat.
func (b Block) Plus(other Block) Block {
	out := b.Clone()
	for _, s := range All {
		out[s] += other.Get(s)
	}
	return out
}
