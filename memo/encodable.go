package memo

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// fieldRules describes which struct fields an encoding keeps.
type fieldRules struct {
	name string
	// tag is the struct tag whose "-" value drops a field.
	tag string
	// marshalers are interfaces through which a type encodes itself.
	marshalers []reflect.Type

	types sync.Map // reflect.Type -> typeReport
}

type typeReport struct {
	// dynamic is set when the type holds interface values whose
	// concrete types are only known per value.
	dynamic bool
	err     error
}

var (
	jsonRules = &fieldRules{
		name: "json",
		tag:  "json",
		marshalers: []reflect.Type{
			reflect.TypeFor[json.Marshaler](),
			reflect.TypeFor[encoding.TextMarshaler](),
		},
	}
	msgpackRules = &fieldRules{
		name: "msgpack",
		tag:  "msgpack",
		marshalers: []reflect.Type{
			reflect.TypeFor[msgpack.CustomEncoder](),
			reflect.TypeFor[msgpack.Marshaler](),
			reflect.TypeFor[encoding.BinaryMarshaler](),
			reflect.TypeFor[encoding.TextMarshaler](),
		},
	}
)

// keyContainer marks this package's argument types. They implement
// json.Marshaler but are walked field by field.
type keyContainer interface{ keyContainer() }

func (Args) keyContainer()       {}
func (Pair[A, B]) keyContainer() {}

var keyContainerType = reflect.TypeFor[keyContainer]()

// rulesFor returns the rules of a built-in codec. Other codecs are
// trusted to carry their values.
func rulesFor(c Codec) (*fieldRules, bool) {
	switch c.(type) {
	case jsonCodec:
		return jsonRules, true
	case msgpackCodec:
		return msgpackRules, true
	default:
		return nil, false
	}
}

// checkType reports whether values of t survive encoding. Interface
// positions cannot be judged from the type and mark the report dynamic.
func (r *fieldRules) checkType(t reflect.Type) typeReport {
	if rep, ok := r.types.Load(t); ok {
		return rep.(typeReport)
	}
	rep := r.inspect(t, map[reflect.Type]bool{})
	r.types.Store(t, rep)
	return rep
}

func (r *fieldRules) encodesItself(t reflect.Type) bool {
	if t.Implements(keyContainerType) {
		return false
	}
	for _, m := range r.marshalers {
		if t.Implements(m) {
			return true
		}
	}
	return false
}

func (r *fieldRules) inspect(t reflect.Type, seen map[reflect.Type]bool) typeReport {
	if seen[t] || r.encodesItself(t) {
		return typeReport{}
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Interface:
		return typeReport{dynamic: true}
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return r.inspect(t.Elem(), seen)
	case reflect.Map:
		k := r.inspect(t.Key(), seen)
		if k.err != nil {
			return k
		}
		v := r.inspect(t.Elem(), seen)
		v.dynamic = v.dynamic || k.dynamic
		return v
	case reflect.Struct:
		var rep typeReport
		for i := range t.NumField() {
			f := t.Field(i)
			if err := r.dropped(t, f); err != nil {
				return typeReport{err: err}
			}
			fr := r.inspect(f.Type, seen)
			if fr.err != nil {
				return fr
			}
			rep.dynamic = rep.dynamic || fr.dynamic
		}
		return rep
	default:
		return typeReport{}
	}
}

// dropped returns an error if the encoding silently skips f.
func (r *fieldRules) dropped(owner reflect.Type, f reflect.StructField) error {
	if f.Tag.Get(r.tag) == "-" {
		return fmt.Errorf("%w: %s field %s is tagged %s:\"-\"", ErrLossyType, owner, f.Name, r.tag)
	}
	if f.IsExported() {
		return nil
	}
	// Fields of an embedded struct are promoted even when the embedding
	// itself is unexported.
	ft := f.Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if f.Anonymous && ft.Kind() == reflect.Struct {
		return nil
	}
	return fmt.Errorf("%w: %s field %s is unexported and not %s-encoded", ErrLossyType, owner, f.Name, r.name)
}

// checkValue reports whether v survives encoding, looking through the
// interface values its type leaves open.
func (r *fieldRules) checkValue(v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	rep := r.checkType(rv.Type())
	if rep.err != nil || !rep.dynamic {
		return rep.err
	}
	return r.walk(rv, map[uintptr]bool{})
}

func (r *fieldRules) walk(v reflect.Value, seen map[uintptr]bool) error {
	if !v.IsValid() {
		return nil
	}
	rep := r.checkType(v.Type())
	if rep.err != nil || !rep.dynamic {
		return rep.err
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return r.walk(v.Elem(), seen)
	case reflect.Pointer:
		if v.IsNil() || seen[v.Pointer()] {
			return nil
		}
		seen[v.Pointer()] = true
		return r.walk(v.Elem(), seen)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if err := r.walk(v.Index(i), seen); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := r.walk(iter.Key(), seen); err != nil {
				return err
			}
			if err := r.walk(iter.Value(), seen); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if err := r.walk(v.Field(i), seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkWrapTypes rejects key and result types whose values would be
// stored without some of their fields.
func checkWrapTypes[K, R any](o options) error {
	if _, ok := o.keyer.(*DefaultKeyer); ok {
		if err := jsonRules.checkType(reflect.TypeFor[K]()).err; err != nil {
			return fmt.Errorf("memo: key type: %w", err)
		}
	}
	if rules, ok := rulesFor(o.codec); ok {
		if err := rules.checkType(reflect.TypeFor[R]()).err; err != nil {
			return fmt.Errorf("memo: result type: %w", err)
		}
	}
	return nil
}
