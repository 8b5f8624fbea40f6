package memo

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDefaultKeyer_Deterministic(t *testing.T) {
	k := NewDefaultKeyer()
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"z": true, "y": []any{"x", 1}}}
	b := map[string]any{"nested": map[string]any{"y": []any{"x", 1}, "z": true}, "a": 1, "b": 2}

	ka, err := k.Key("pkg.f", a)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	kb, err := k.Key("pkg.f", b)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if !bytes.Equal(ka, kb) {
		t.Errorf("keys differ:\n%s\n%s", ka, kb)
	}
}

func TestDefaultKeyer_Format(t *testing.T) {
	tests := []struct {
		name string
		args any
		want string
	}{
		{name: "nil", args: nil, want: "pkg.f\nnull"},
		{name: "int", args: 42, want: "pkg.f\n42"},
		{name: "pair", args: Pair[int, string]{First: 1, Second: "x"}, want: "pkg.f\n[1,\"x\"]"},
		{name: "empty args", args: A(), want: "pkg.f\n{\"args\":[],\"kwargs\":[]}"},
		{
			name: "positional and keyword",
			args: A(1, "two").With("c", 3.5).With("d", nil),
			want: "pkg.f\n{\"args\":[1,\"two\"],\"kwargs\":[[\"c\",3.5],[\"d\",null]]}",
		},
		{name: "struct", args: struct{ N int }{N: 1}, want: "pkg.f\n{\"N\":1}"},
		{name: "no args", args: struct{}{}, want: "pkg.f\n{}"},
		{name: "integral float", args: A(2.0, float32(3)), want: "pkg.f\n{\"args\":[2.0,3.0],\"kwargs\":[]}"},
		{name: "exponent float", args: 1e21, want: "pkg.f\n1e+21"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewDefaultKeyer().Key("pkg.f", tc.args)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDefaultKeyer_FunctionNameSeparatesKeys(t *testing.T) {
	k := NewDefaultKeyer()
	a, _ := k.Key("pkg.f", 1)
	b, _ := k.Key("pkg.g", 1)
	if bytes.Equal(a, b) {
		t.Error("different functions produced the same key")
	}
}

func TestDefaultKeyer_KeywordOrderMatters(t *testing.T) {
	k := NewDefaultKeyer()
	a, _ := k.Key("pkg.f", A().With("a", 2).With("b", 3))
	b, _ := k.Key("pkg.f", A().With("b", 3).With("a", 2))
	if bytes.Equal(a, b) {
		t.Error("keyword order should be part of the key")
	}
}

func TestDefaultKeyer_Unencodable(t *testing.T) {
	_, err := NewDefaultKeyer().Key("pkg.f", A(make(chan int)))
	if err == nil || !strings.Contains(err.Error(), "canonicalize") {
		t.Errorf("Key() error = %v, want canonicalize failure", err)
	}
}

func TestArgs_WithDoesNotAlias(t *testing.T) {
	base := A(1).With("a", 1)
	x := base.With("b", 2)
	y := base.With("c", 3)

	if len(base.Kw) != 1 {
		t.Fatalf("base mutated: %+v", base.Kw)
	}
	if v, _ := x.Lookup("b"); v != 2 {
		t.Errorf("x.Lookup(b) = %v", v)
	}
	if _, ok := x.Lookup("c"); ok {
		t.Error("x sees y's keyword")
	}
	if v, ok := y.Lookup("c"); !ok || v != 3 {
		t.Errorf("y.Lookup(c) = %v, %v", v, ok)
	}
}

func TestArgs_LookupLastWins(t *testing.T) {
	a := A().With("k", 1).With("k", 2)
	if v, _ := a.Lookup("k"); v != 2 {
		t.Errorf("Lookup(k) = %v, want 2", v)
	}
}

func TestDefaultKeyer_LossyValues(t *testing.T) {
	tests := []struct {
		name string
		args any
		want error
	}{
		{name: "unexported struct", args: hiddenQuery{id: 1}, want: ErrLossyType},
		{name: "unexported struct in args", args: A(hiddenQuery{id: 1}), want: ErrLossyType},
		{name: "pointer in keyword", args: A().With("q", &hiddenQuery{id: 1}), want: ErrLossyType},
		{name: "skipped field in map", args: map[string]any{"q": skippedQuery{ID: 1}}, want: ErrLossyType},
		{name: "time in args", args: A(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
		{name: "promoted fields", args: A(withEmbedded{namedBase: namedBase{Name: "x"}, N: 1})},
		{name: "self-referencing slice", args: selfRef()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDefaultKeyer().Key("pkg.f", tc.args)
			if tc.want == nil {
				if err != nil && errors.Is(err, ErrLossyType) {
					t.Fatalf("Key() error = %v, want no ErrLossyType", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Key() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func selfRef() any {
	n := &tree{Label: "root"}
	n.Extra = n
	return n
}

func TestDefaultKeyer_NumericKindsDiffer(t *testing.T) {
	k := NewDefaultKeyer()
	pairs := [][2]any{
		{A(1), A(1.0)},
		{A().With("n", 1), A().With("n", 1.0)},
		{map[string]any{"n": 1}, map[string]any{"n": 1.0}},
		{Pair[any, int]{First: 1, Second: 2}, Pair[any, int]{First: 1.0, Second: 2}},
	}
	for _, p := range pairs {
		a, err := k.Key("pkg.f", p[0])
		if err != nil {
			t.Fatalf("Key(%v) error = %v", p[0], err)
		}
		b, err := k.Key("pkg.f", p[1])
		if err != nil {
			t.Fatalf("Key(%v) error = %v", p[1], err)
		}
		if bytes.Equal(a, b) {
			t.Errorf("%v and %v share key %s", p[0], p[1], a)
		}
	}
}

func TestDefaultKeyer_NonFiniteFloat(t *testing.T) {
	if _, err := NewDefaultKeyer().Key("pkg.f", A(math.NaN())); err == nil {
		t.Error("Key(NaN) error = nil, want failure")
	}
}
