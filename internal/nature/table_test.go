package nature

import (
	"errors"
	"testing"

	"naturedex/internal/stat"
)

func TestDefaultTable(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("load default table: %v", err)
	}
	names := tbl.Names()
	if len(names) != Count {
		t.Fatalf("got %d natures want %d", len(names), Count)
	}
	if names[0] != "Adamant" || names[len(names)-1] != "Timid" {
		t.Fatalf("names not sorted: first=%s last=%s", names[0], names[len(names)-1])
	}
	for _, name := range names {
		n, err := tbl.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		if sum := n.Modifier.Sum(); sum != 0 && sum != 1 {
			t.Fatalf("nature %s has unexpected modifier sum %d", name, sum)
		}
	}
}

func TestLookupNormalizesCase(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("load default table: %v", err)
	}
	for _, in := range []string{"adamant", "ADAMANT", " aDaMaNt "} {
		n, err := tbl.Lookup(in)
		if err != nil {
			t.Fatalf("lookup %q: %v", in, err)
		}
		if n.Name != "Adamant" || n.Category != "Physical Prowess & Strength" {
			t.Fatalf("lookup %q got %+v", in, n)
		}
		if n.Modifier[stat.ATK] != 2 || n.Modifier[stat.DEF] != -1 {
			t.Fatalf("unexpected Adamant modifier: %v", n.Modifier)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("load default table: %v", err)
	}
	if _, err := tbl.Lookup("Grumpy"); !errors.Is(err, ErrUnknownNature) {
		t.Fatalf("expected ErrUnknownNature, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("load default table: %v", err)
	}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "adamnt", want: "Adamant", ok: true},
		{in: "Timd", want: "Timid", ok: true},
		{in: "xx", ok: false},
		{in: "helicopter", ok: false},
	}
	for _, tc := range tests {
		got, ok := tbl.Suggest(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Suggest(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLoadRejectsBadTables(t *testing.T) {
	if _, err := Load([]byte("Adamant: {category: x, modifier: {ATK: 2}}")); err == nil {
		t.Fatalf("expected short table to fail")
	}
	if _, err := Load([]byte("not: [valid")); err == nil {
		t.Fatalf("expected malformed yaml to fail")
	}
}
