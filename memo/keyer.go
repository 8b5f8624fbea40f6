package memo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Keyer derives the record key for one call.
//
// Contract:
// - Determinism: same inputs must produce the same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key builds the key for a call of fn with args.
	Key(fn string, args any) ([]byte, error)
}

// DefaultKeyer keys calls by the function name and the canonical JSON of
// its arguments. Keys are not hashed: the record store keeps them to
// tell colliding file names apart.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns fn, a newline, then the canonical arguments. Arguments
// holding values JSON would encode without some of their fields are
// rejected with ErrLossyType, since distinct calls would share a key.
func (k *DefaultKeyer) Key(fn string, args any) ([]byte, error) {
	if err := jsonRules.checkValue(args); err != nil {
		return nil, err
	}
	canonical, err := canonicalize(args)
	if err != nil {
		return nil, fmt.Errorf("memo: failed to canonicalize arguments: %w", err)
	}
	key := make([]byte, 0, len(fn)+1+len(canonical))
	key = append(key, fn...)
	key = append(key, '\n')
	return append(key, canonical...), nil
}

// Kwarg is one keyword argument.
type Kwarg struct {
	Name  string
	Value any
}

// Args models a call with positional and keyword arguments.
//
// Keyword arguments are keyed in the order given: With("a", 1).With("b", 2)
// and With("b", 2).With("a", 1) are different keys.
type Args struct {
	Pos []any
	Kw  []Kwarg
}

// A builds Args from positional values.
func A(pos ...any) Args {
	return Args{Pos: pos}
}

// With returns a copy of a with a keyword argument appended.
func (a Args) With(name string, value any) Args {
	kw := make([]Kwarg, len(a.Kw), len(a.Kw)+1)
	copy(kw, a.Kw)
	return Args{Pos: a.Pos, Kw: append(kw, Kwarg{Name: name, Value: value})}
}

// Lookup returns the last keyword argument called name.
func (a Args) Lookup(name string) (any, bool) {
	for i := len(a.Kw) - 1; i >= 0; i-- {
		if a.Kw[i].Name == name {
			return a.Kw[i].Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes a as {"args":[...],"kwargs":[[name,value],...]}.
func (a Args) MarshalJSON() ([]byte, error) {
	return canonicalizeArgs(a)
}

// Pair is the key of a two-argument function.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MarshalJSON encodes p as a two-element array.
func (p Pair[A, B]) MarshalJSON() ([]byte, error) {
	return canonicalizeSlice([]any{p.First, p.Second})
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering. Integral floats
// keep a fraction so 1.0 and 1 key differently.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case float64:
		return canonicalizeFloat(val, 64)
	case float32:
		return canonicalizeFloat(float64(val), 32)
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case Args:
		return canonicalizeArgs(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeFloat(f float64, bits int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported float value %v", f)
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, bits)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

func canonicalizeArgs(a Args) ([]byte, error) {
	pos, err := canonicalizeSlice(a.Pos)
	if err != nil {
		return nil, err
	}
	kw := make([]any, len(a.Kw))
	for i, p := range a.Kw {
		kw[i] = []any{p.Name, p.Value}
	}
	kwBytes, err := canonicalizeSlice(kw)
	if err != nil {
		return nil, err
	}

	result := append([]byte(`{"args":`), pos...)
	result = append(result, `,"kwargs":`...)
	result = append(result, kwBytes...)
	return append(result, '}'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
