package types

import (
	"fmt"
	"strings"
)

// ReasonKind discriminates incompatibility reasons.
type ReasonKind int

const (
	// NotSubtype is a leaf mismatch between two types.
	NotSubtype ReasonKind = iota

	// FieldMismatch reports that one named or positional member failed; it
	// wraps the nested reason for that member.
	FieldMismatch

	// Multiple bundles several failed requirements of one check.
	Multiple
)

func (k ReasonKind) String() string {
	switch k {
	case NotSubtype:
		return "not-subtype"
	case FieldMismatch:
		return "field"
	case Multiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// Reason describes why a source type failed to satisfy a target type.
// Reasons compose recursively so a checker can render the full failure tree
// as a diagnostic.
type Reason struct {
	// Kind is the reason variant.
	Kind ReasonKind

	// Source and Target are set on NotSubtype leaves.
	Source *Type
	Target *Type

	// Name is the failing member for FieldMismatch reasons: a field name or
	// a tuple position.
	Name string

	// Nested holds the wrapped reason(s): exactly one for FieldMismatch,
	// one or more for Multiple.
	Nested []*Reason
}

func notSubtype(src, tgt *Type) *Reason {
	return &Reason{Kind: NotSubtype, Source: src, Target: tgt}
}

func fieldMismatch(name string, nested *Reason) *Reason {
	return &Reason{Kind: FieldMismatch, Name: name, Nested: []*Reason{nested}}
}

func multiple(nested []*Reason) *Reason {
	// A single failed requirement needs no bundling.
	if len(nested) == 1 {
		return nested[0]
	}
	return &Reason{Kind: Multiple, Nested: nested}
}

// String renders the reason tree with two-space indentation.
func (r *Reason) String() string {
	return r.Render("  ")
}

// Render renders the reason tree using indent as the per-depth prefix.
func (r *Reason) Render(indent string) string {
	var sb strings.Builder
	r.render(&sb, indent, 0)
	return sb.String()
}

func (r *Reason) render(sb *strings.Builder, indent string, depth int) {
	prefix := strings.Repeat(indent, depth)

	switch r.Kind {
	case NotSubtype:
		fmt.Fprintf(sb, "%s%s is not a subtype of %s", prefix, r.Source, r.Target)
	case FieldMismatch:
		fmt.Fprintf(sb, "%sfield %q:\n", prefix, r.Name)
		r.Nested[0].render(sb, indent, depth+1)
	case Multiple:
		for i, n := range r.Nested {
			if i > 0 {
				sb.WriteString("\n")
			}
			n.render(sb, indent, depth)
		}
	}
}

// Find returns the first nested reason (including r itself, depth-first)
// matching kind, or nil.
func (r *Reason) Find(kind ReasonKind) *Reason {
	if r == nil {
		return nil
	}
	if r.Kind == kind {
		return r
	}
	for _, n := range r.Nested {
		if found := n.Find(kind); found != nil {
			return found
		}
	}
	return nil
}
