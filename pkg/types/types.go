package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of a type descriptor.
type Kind int

const (
	// KindPrimitive is a named type, optionally with a parent forming a
	// subtype chain (e.g. integer < number).
	KindPrimitive Kind = iota

	// KindConstant is a literal-valued subtype of a primitive.
	KindConstant

	// KindStruct is a named list of fields.
	KindStruct

	// KindUnion accepts values matching at least one member type.
	KindUnion

	// KindIntersection accepts values matching every member type.
	KindIntersection

	// KindTuple is an ordered list of item types; the last item may be
	// variadic.
	KindTuple

	// KindFunction is a params tuple plus a returns tuple, modeled as a
	// two-field struct.
	KindFunction

	// KindAlias is a transparent rename delegating to its underlying type.
	KindAlias

	// KindVariadic wraps a type to mean "zero or more of". It may only
	// occupy the final slot of a tuple.
	KindVariadic
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindConstant:
		return "constant"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindTuple:
		return "tuple"
	case KindFunction:
		return "function"
	case KindAlias:
		return "alias"
	case KindVariadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// Field is one named member of a struct type.
type Field struct {
	Name string
	Type *Type
}

// Type is a node in a structural type description graph. Types are built
// through the constructor functions and treated as immutable afterwards.
type Type struct {
	kind    Kind
	name    string
	lit     string
	parent  *Type
	fields  []Field
	members []*Type
	items   []*Type
	elem    *Type
}

// Primitive creates a root primitive type.
func Primitive(name string) *Type {
	return &Type{kind: KindPrimitive, name: name}
}

// Subtype creates a primitive that is a declared subtype of parent.
func Subtype(name string, parent *Type) *Type {
	return &Type{kind: KindPrimitive, name: name, parent: parent}
}

// Constant creates a literal type: a subtype of parent carrying one value.
func Constant(lit string, parent *Type) *Type {
	return &Type{kind: KindConstant, lit: lit, parent: parent}
}

// Struct creates a named struct type with the given fields.
func Struct(name string, fields ...Field) *Type {
	return &Type{kind: KindStruct, name: name, fields: fields}
}

// Union creates a union of member types.
func Union(members ...*Type) *Type {
	return &Type{kind: KindUnion, members: members}
}

// Intersection creates an intersection of member types.
func Intersection(members ...*Type) *Type {
	return &Type{kind: KindIntersection, members: members}
}

// Tuple creates an ordered tuple type. A variadic item is only permitted in
// the final position; any other placement is a construction error.
func Tuple(items ...*Type) (*Type, error) {
	for i, it := range items {
		if it.kind == KindVariadic && i != len(items)-1 {
			return nil, fmt.Errorf("types: variadic item at position %d, only the final tuple position may be variadic", i)
		}
	}
	return &Type{kind: KindTuple, items: items}, nil
}

// MustTuple is Tuple but panics on a misplaced variadic item.
func MustTuple(items ...*Type) *Type {
	t, err := Tuple(items...)
	if err != nil {
		panic(err)
	}
	return t
}

// Function creates a function type from its params and returns tuples. It is
// checked as a two-field struct {params, returns}, so function assignability
// reduces to struct field assignability.
func Function(params, returns *Type) *Type {
	return &Type{
		kind: KindFunction,
		fields: []Field{
			{Name: "params", Type: params},
			{Name: "returns", Type: returns},
		},
	}
}

// Alias creates a transparent rename of under. An alias and its underlying
// type are mutually assignable.
func Alias(name string, under *Type) *Type {
	return &Type{kind: KindAlias, name: name, elem: under}
}

// Variadic wraps elem to mean "zero or more of elem".
func Variadic(elem *Type) *Type {
	return &Type{kind: KindVariadic, elem: elem}
}

// Kind returns the variant of the type.
func (t *Type) Kind() Kind { return t.kind }

// Name returns the declared name of a primitive, struct or alias, and the
// empty string for anonymous types.
func (t *Type) Name() string { return t.name }

// Parent returns the declared supertype of a primitive or constant.
func (t *Type) Parent() *Type { return t.parent }

// Fields returns the fields of a struct or function type.
func (t *Type) Fields() []Field { return t.fields }

// Members returns the member types of a union or intersection.
func (t *Type) Members() []*Type { return t.members }

// Items returns the item types of a tuple.
func (t *Type) Items() []*Type { return t.items }

// Elem returns the underlying type of an alias or variadic.
func (t *Type) Elem() *Type { return t.elem }

// field looks up a named member on struct and function types.
func (t *Type) field(name string) (*Type, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// resolve unwraps alias indirections. Alias chains are expected to be short;
// the guard only protects against accidental cycles.
func resolve(t *Type) *Type {
	for i := 0; t != nil && t.kind == KindAlias && i < 64; i++ {
		t = t.elem
	}
	return t
}

func (t *Type) String() string {
	switch t.kind {
	case KindPrimitive:
		return t.name
	case KindConstant:
		return t.lit
	case KindStruct:
		if t.name != "" {
			return t.name
		}
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindUnion:
		return joinTypes(t.members, " | ")
	case KindIntersection:
		return joinTypes(t.members, " & ")
	case KindTuple:
		return "(" + joinTypes(t.items, ", ") + ")"
	case KindFunction:
		params, _ := t.field("params")
		returns, _ := t.field("returns")
		return params.String() + " -> " + returns.String()
	case KindAlias:
		return t.name
	case KindVariadic:
		return "..." + t.elem.String()
	default:
		return "<invalid>"
	}
}

func joinTypes(ts []*Type, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
