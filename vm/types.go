package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Type catalog
// ---------------------------------------------------------------------------

// Type is one of the language's static types. The catalog is closed: every
// Type in a program is one of the package-level values below, so types can be
// compared with ==.
type Type struct {
	Name    string // name as written in source annotations
	JvmName string // name used by the Java generator
}

func (t *Type) String() string {
	if t == nil {
		return "<unresolved>"
	}
	return t.Name
}

var (
	AnyType        = &Type{Name: "Any", JvmName: "Object"}
	NilType        = &Type{Name: "Nil", JvmName: "Void"}
	ComparableType = &Type{Name: "Comparable", JvmName: "Comparable"}
	BooleanType    = &Type{Name: "Boolean", JvmName: "boolean"}
	IntegerType    = &Type{Name: "Integer", JvmName: "int"}
	DecimalType    = &Type{Name: "Decimal", JvmName: "double"}
	CharacterType  = &Type{Name: "Character", JvmName: "char"}
	StringType     = &Type{Name: "String", JvmName: "String"}
)

var typesByName = map[string]*Type{
	AnyType.Name:        AnyType,
	NilType.Name:        NilType,
	ComparableType.Name: ComparableType,
	BooleanType.Name:    BooleanType,
	IntegerType.Name:    IntegerType,
	DecimalType.Name:    DecimalType,
	CharacterType.Name:  CharacterType,
	StringType.Name:     StringType,
}

// Types lists the catalog in name order.
func Types() []*Type {
	out := make([]*Type, 0, len(typesByName))
	for _, t := range typesByName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetType resolves a type annotation.
func GetType(name string) (*Type, error) {
	if t, ok := typesByName[name]; ok {
		return t, nil
	}
	return nil, &UnresolvedNameError{Kind: "type", Name: name, Arity: -1}
}

// ---------------------------------------------------------------------------
// Assignability
// ---------------------------------------------------------------------------

// IsAssignable reports whether a value of type source may be stored in a
// location of type target.
func IsAssignable(target, source *Type) bool {
	switch {
	case target == source:
		return true
	case target == AnyType:
		return true
	case target == ComparableType:
		return source == IntegerType || source == DecimalType ||
			source == CharacterType || source == StringType
	}
	return false
}

// RequireAssignable is IsAssignable returning a *TypeError on failure.
func RequireAssignable(target, source *Type) error {
	if IsAssignable(target, source) {
		return nil
	}
	return &TypeError{Target: target, Source: source}
}

// TypeError reports a failed assignability check.
type TypeError struct {
	Target *Type
	Source *Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type %s is not assignable to %s", e.Source, e.Target)
}
