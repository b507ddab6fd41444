// Package nature holds the fixed table of character natures: a flavor
// category plus the stat modifiers applied when a sheet is displayed.
package nature

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"naturedex/internal/stat"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// Count is the number of natures a valid table carries.
const Count = 25

var ErrUnknownNature = errors.New("unknown nature")

//go:embed natures.yaml
var natureYAML []byte

type Nature struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Modifier stat.Block `json:"modifier"`
}

type Table struct {
	byName map[string]Nature
	names  []string
}

type entry struct {
	Category string         `yaml:"category"`
	Modifier map[string]int `yaml:"modifier"`
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Load(natureYAML)
})

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	return defaultTable()
}

func Load(raw []byte) (*Table, error) {
	var doc map[string]entry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("natures.yaml: %w", err)
	}
	if len(doc) != Count {
		return nil, fmt.Errorf("natures.yaml: expected %d natures, found %d", Count, len(doc))
	}
	t := &Table{byName: make(map[string]Nature, len(doc))}
	for name, e := range doc {
		canonical := Normalize(name)
		if canonical != name {
			return nil, fmt.Errorf("natures.yaml: nature %q must be written as %q", name, canonical)
		}
		if strings.TrimSpace(e.Category) == "" {
			return nil, fmt.Errorf("natures.yaml: nature %q has no category", name)
		}
		mod := stat.Block{}
		for key, delta := range e.Modifier {
			s := stat.Stat(key)
			if !s.Valid() {
				return nil, fmt.Errorf("natures.yaml: nature %q modifies unknown stat %q", name, key)
			}
			mod[s] = delta
		}
		t.byName[name] = Nature{Name: name, Category: e.Category, Modifier: mod}
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// Normalize upper-cases the first letter and lower-cases the rest, so
// "aDaMaNt" and "adamant" both resolve to "Adamant".
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

func (t *Table) Lookup(name string) (Nature, error) {
	n, ok := t.byName[Normalize(name)]
	if !ok {
		return Nature{}, fmt.Errorf("%w: %q", ErrUnknownNature, strings.TrimSpace(name))
	}
	return n, nil
}

func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Suggest returns the nature closest to name by edit distance, if one is
// close enough to be a plausible typo.
func (t *Table) Suggest(name string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(name))
	if len(in) < 3 {
		return "", false
	}
	best := ""
	bestDist := -1
	for _, cand := range t.names {
		dist := levenshtein.ComputeDistance(in, strings.ToLower(cand))
		if dist > distanceLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best, bestDist >= 0
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 6:
		return 2
	default:
		return 3
	}
}
