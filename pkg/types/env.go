package types

// Env is an explicit registry of named types with child-scope support.
// Lookups fall back to the parent scope, so a checker can layer local
// declarations over the runtime's global environment.
type Env struct {
	parent *Env
	named  map[string]*Type
}

// NewEnv creates a registry. parent may be nil for a root environment.
func NewEnv(parent *Env) *Env {
	return &Env{
		parent: parent,
		named:  make(map[string]*Type),
	}
}

// DefaultEnv creates a root environment pre-populated with the runtime's
// base primitives: nil, boolean, number and string.
func DefaultEnv() *Env {
	e := NewEnv(nil)
	for _, name := range []string{"nil", "boolean", "number", "string"} {
		e.Define(name, Primitive(name))
	}
	return e
}

// Define registers t under name in this scope, shadowing any parent entry.
func (e *Env) Define(name string, t *Type) {
	e.named[name] = t
}

// Lookup resolves name in this scope, walking parent scopes on a miss.
func (e *Env) Lookup(name string) (*Type, bool) {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.named[name]; ok {
			return t, true
		}
	}
	return nil, false
}
