package types

import "strconv"

// Assignable checks whether a value of type src can be used where tgt is
// required. The check is target-driven: it asks whether src satisfies every
// requirement tgt declares. On failure the returned Reason captures all
// failing requirements, not just the first, so diagnostics stay complete.
//
// env resolves by-name lookups, in particular the nil fallback used for
// fields that src does not declare. Assignability is pure: neither the types
// nor the environment are modified.
func Assignable(env *Env, src, tgt *Type) (bool, *Reason) {
	src = resolve(src)
	tgt = resolve(tgt)

	switch tgt.kind {
	case KindUnion:
		return assignToUnion(env, src, tgt)
	case KindIntersection:
		return assignToIntersection(env, src, tgt)
	}

	// Target is not a combinator: decompose a composite source first. A
	// union source must satisfy tgt through every member; an intersection
	// source through at least one.
	switch src.kind {
	case KindUnion:
		var fails []*Reason
		for _, m := range src.members {
			if ok, r := Assignable(env, m, tgt); !ok {
				fails = append(fails, r)
			}
		}
		if len(fails) == 0 {
			return true, nil
		}
		return false, multiple(fails)
	case KindIntersection:
		var fails []*Reason
		for _, m := range src.members {
			ok, r := Assignable(env, m, tgt)
			if ok {
				return true, nil
			}
			fails = append(fails, r)
		}
		return false, multiple(fails)
	}

	switch tgt.kind {
	case KindPrimitive:
		return assignToPrimitive(src, tgt)
	case KindConstant:
		return assignToConstant(src, tgt)
	case KindStruct, KindFunction:
		return assignToStruct(env, src, tgt)
	case KindTuple:
		return assignToTuple(env, src, tgt)
	case KindVariadic:
		inner := src
		if src.kind == KindVariadic {
			inner = src.elem
		}
		return Assignable(env, inner, tgt.elem)
	default:
		return false, notSubtype(src, tgt)
	}
}

// assignToPrimitive walks src's declared subtype chain looking for tgt.
// Constants step to their parent primitive first.
func assignToPrimitive(src, tgt *Type) (bool, *Reason) {
	for s := src; s != nil; s = s.parent {
		if s.kind == KindPrimitive && s.name == tgt.name {
			return true, nil
		}
	}
	return false, notSubtype(src, tgt)
}

// assignToConstant accepts only an identical literal; a bare primitive is
// never assignable to one of its constants.
func assignToConstant(src, tgt *Type) (bool, *Reason) {
	if src.kind == KindConstant && src.lit == tgt.lit {
		if ok, _ := assignToPrimitive(src, primitiveOf(tgt)); ok {
			return true, nil
		}
	}
	return false, notSubtype(src, tgt)
}

// primitiveOf returns the nearest primitive ancestor of a constant.
func primitiveOf(t *Type) *Type {
	for s := t; s != nil; s = s.parent {
		if s.kind == KindPrimitive {
			return s
		}
	}
	return t
}

// assignToStruct checks every target field against the source's field of
// the same name, falling back to the environment's nil type for fields the
// source does not declare. All failing fields are collected.
func assignToStruct(env *Env, src, tgt *Type) (bool, *Reason) {
	if src.kind != tgt.kind {
		return false, notSubtype(src, tgt)
	}

	var fails []*Reason
	for _, f := range tgt.fields {
		st, ok := src.field(f.Name)
		if !ok {
			st, ok = missingFieldType(env)
			if !ok {
				fails = append(fails, fieldMismatch(f.Name, notSubtype(src, f.Type)))
				continue
			}
		}
		if ok, r := Assignable(env, st, f.Type); !ok {
			fails = append(fails, fieldMismatch(f.Name, r))
		}
	}

	if len(fails) == 0 {
		return true, nil
	}
	return false, multiple(fails)
}

// assignToTuple checks items by position. A variadic final item consumes
// every remaining source position; the source running out of items under a
// variadic is success (zero-or-more), not failure.
func assignToTuple(env *Env, src, tgt *Type) (bool, *Reason) {
	if src.kind != KindTuple {
		return false, notSubtype(src, tgt)
	}

	var fails []*Reason
	for i, item := range tgt.items {
		if item.kind == KindVariadic {
			// Check against the variadic itself so a variadic-tailed source
			// (its own last item) unwraps through the KindVariadic target case.
			for j := i; j < len(src.items); j++ {
				if ok, r := Assignable(env, src.items[j], item); !ok {
					fails = append(fails, fieldMismatch(strconv.Itoa(j), r))
				}
			}
			break
		}

		st := src.items[i:]
		if len(st) == 0 {
			mt, ok := missingFieldType(env)
			if !ok {
				fails = append(fails, fieldMismatch(strconv.Itoa(i), notSubtype(src, item)))
				continue
			}
			if ok, r := Assignable(env, mt, item); !ok {
				fails = append(fails, fieldMismatch(strconv.Itoa(i), r))
			}
			continue
		}
		if ok, r := Assignable(env, st[0], item); !ok {
			fails = append(fails, fieldMismatch(strconv.Itoa(i), r))
		}
	}

	if len(fails) == 0 {
		return true, nil
	}
	return false, multiple(fails)
}

// assignToUnion accepts src if at least one member accepts it. A union
// source must have every one of its members accepted by the target union.
func assignToUnion(env *Env, src, tgt *Type) (bool, *Reason) {
	if src.kind == KindUnion {
		var fails []*Reason
		for _, m := range src.members {
			if ok, r := assignToUnion(env, m, tgt); !ok {
				fails = append(fails, r)
			}
		}
		if len(fails) == 0 {
			return true, nil
		}
		return false, multiple(fails)
	}

	var fails []*Reason
	for _, m := range tgt.members {
		ok, r := Assignable(env, src, m)
		if ok {
			return true, nil
		}
		fails = append(fails, r)
	}
	return false, multiple(fails)
}

// assignToIntersection accepts src only if every member accepts it. An
// intersection source is accepted if any one of its members satisfies the
// target on its own.
func assignToIntersection(env *Env, src, tgt *Type) (bool, *Reason) {
	if src.kind == KindIntersection {
		var fails []*Reason
		for _, m := range src.members {
			ok, r := assignToIntersection(env, m, tgt)
			if ok {
				return true, nil
			}
			fails = append(fails, r)
		}
		return false, multiple(fails)
	}

	var fails []*Reason
	for _, m := range tgt.members {
		if ok, r := Assignable(env, src, m); !ok {
			fails = append(fails, r)
		}
	}
	if len(fails) == 0 {
		return true, nil
	}
	return false, multiple(fails)
}

// missingFieldType returns the type used for fields the source does not
// declare: the environment's nil type when registered.
func missingFieldType(env *Env) (*Type, bool) {
	if env == nil {
		return nil, false
	}
	return env.Lookup("nil")
}
