// Package types implements a structural type-compatibility engine.
//
// Types are immutable descriptors built through constructor functions:
// primitives with declared subtype chains, literal constants, structs,
// unions, intersections, tuples with an optional variadic tail, functions
// and transparent aliases. Assignable answers whether a source type can be
// used where a target type is required, and on failure returns a Reason
// tree describing every requirement that was not met.
//
// Named types live in an Env registry. Environments chain, so a checker can
// layer local declarations over a shared root scope. The engine itself
// holds no global state.
package types
