package keys

import (
	"errors"
	"testing"
	"time"
)

func TestDeriveDeterministic(t *testing.T) {
	t.Run("identical inputs produce identical keys", func(t *testing.T) {
		a := Derive("pkg.list", []any{"winget", 42, true})
		b := Derive("pkg.list", []any{"winget", 42, true})
		if a != b {
			t.Errorf("Derive() not deterministic: %v != %v", a, b)
		}
	})

	t.Run("no arguments", func(t *testing.T) {
		a := Derive("pkg.refresh", nil)
		b := Derive("pkg.refresh", []any{})
		if a != b {
			t.Errorf("nil and empty argument lists should match: %v != %v", a, b)
		}
		if a.Arity != 0 {
			t.Errorf("Arity = %d, want 0", a.Arity)
		}
	})
}

func TestDeriveDistinguishes(t *testing.T) {
	t.Run("different tasks", func(t *testing.T) {
		a := Derive("pkg.list", []any{"x"})
		b := Derive("pkg.details", []any{"x"})
		if a == b {
			t.Error("different task identities must not collide")
		}
	})

	t.Run("different arguments", func(t *testing.T) {
		a := Derive("pkg.list", []any{"winget"})
		b := Derive("pkg.list", []any{"scoop"})
		if a == b {
			t.Error("different arguments must not collide")
		}
	})

	t.Run("argument order is significant", func(t *testing.T) {
		a := Derive("pkg.search", []any{"a", "b"})
		b := Derive("pkg.search", []any{"b", "a"})
		if a == b {
			t.Error("swapped arguments must produce different keys")
		}
	})

	t.Run("argument boundaries are significant", func(t *testing.T) {
		// A naive concatenating or additive combiner would merge these.
		a := Derive("pkg.search", []any{"ab", "c"})
		b := Derive("pkg.search", []any{"a", "bc"})
		if a == b {
			t.Error("re-split arguments must produce different keys")
		}
	})

	t.Run("arity is significant", func(t *testing.T) {
		a := Derive("pkg.search", []any{"a"})
		b := Derive("pkg.search", []any{"a", nil})
		if a == b {
			t.Error("argument count must be part of the key")
		}
	})
}

func TestDeriveNilArguments(t *testing.T) {
	a := Derive("pkg.lookup", []any{nil, "x"})
	b := Derive("pkg.lookup", []any{nil, "x"})
	if a != b {
		t.Errorf("nil arguments must hash stably: %v != %v", a, b)
	}

	c := Derive("pkg.lookup", []any{"x", nil})
	if a == c {
		t.Error("nil position must be significant")
	}
}

func TestDeriveTypedArguments(t *testing.T) {
	cases := []struct {
		name string
		a    []any
		b    []any
		same bool
	}{
		{"equal ints", []any{42}, []any{42}, true},
		{"int vs string", []any{42}, []any{"42"}, false},
		{"int vs int64", []any{42}, []any{int64(42)}, true},
		{"bools", []any{true}, []any{false}, false},
		{"durations", []any{time.Second}, []any{time.Second}, true},
		{"duration vs int", []any{time.Duration(5)}, []any{int64(5)}, false},
		{"errors", []any{errors.New("boom")}, []any{errors.New("boom")}, true},
		{"byte slices", []any{[]byte("ab")}, []any{[]byte("ab")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ka := Derive("task", tc.a)
			kb := Derive("task", tc.b)
			if (ka == kb) != tc.same {
				t.Errorf("Derive(%v) == Derive(%v) is %v, want %v", tc.a, tc.b, ka == kb, tc.same)
			}
		})
	}
}

func TestDeriveStructArguments(t *testing.T) {
	type filter struct {
		Source  string `json:"source"`
		Preview bool   `json:"preview"`
	}

	a := Derive("pkg.search", []any{filter{Source: "winget"}})
	b := Derive("pkg.search", []any{filter{Source: "winget"}})
	c := Derive("pkg.search", []any{filter{Source: "scoop"}})

	if a != b {
		t.Errorf("equal structs must hash identically: %v != %v", a, b)
	}
	if a == c {
		t.Error("different structs must not collide")
	}
}

func TestTaskKeyString(t *testing.T) {
	k := Derive("pkg.list", []any{"winget"})
	s := k.String()
	if s == "" {
		t.Fatal("String() returned empty")
	}

	other := Derive("pkg.list", []any{"scoop"}).String()
	if s == other {
		t.Error("textual keys for different arguments must differ")
	}
}
