package identity

import (
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

// Separator joins Location and Name in String.
var Separator = string(filepath.Separator)

// Identity names a memoized function.
type Identity struct {
	// Location is the source file that registered the function.
	Location string

	// Name is the function's qualified symbol, import path stripped
	// down to the package name.
	Name string
}

// String renders the identity as Location + Separator + Name.
// This is the value persisted in a cache directory marker.
func (id Identity) String() string {
	return id.Location + Separator + id.Name
}

// IsZero reports whether id is the zero Identity.
func (id Identity) IsZero() bool {
	return id.Location == "" && id.Name == ""
}

// Of resolves the identity of fn, which must be a non-nil func value.
// The location is the first caller outside this module's sources.
func Of(fn any) (Identity, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return Identity{}, ErrNotFunc
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return Identity{}, ErrNotFunc
	}

	loc, err := Locate()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Location: loc, Name: QualifiedName(rf.Name())}, nil
}

// Named builds an identity from an explicit name and the caller's file.
func Named(name string) (Identity, error) {
	if strings.TrimSpace(name) == "" {
		return Identity{}, ErrEmptyName
	}
	loc, err := Locate()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Location: loc, Name: name}, nil
}

// QualifiedName trims a runtime symbol to its package-qualified form.
//
//	github.com/acme/app/billing.(*Ledger).Total-fm -> billing.(*Ledger).Total
//	github.com/acme/app/billing.outer.func1.2      -> billing.outer.func1.2
func QualifiedName(symbol string) string {
	symbol = strings.TrimSuffix(symbol, "-fm")

	// Type parameters may contain import paths of their own.
	head := symbol
	if i := strings.IndexByte(symbol, '['); i >= 0 {
		head = symbol[:i]
	}
	if i := strings.LastIndexByte(head, '/'); i >= 0 {
		symbol = symbol[i+1:]
	}
	return symbol
}
