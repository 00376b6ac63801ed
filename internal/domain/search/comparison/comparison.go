// Package comparison defines the closed set of filter comparison types and
// the reciprocal table used to rewrite "not" joiners.
package comparison

import "sort"

// Type is a filter comparison code.
type Type string

// Comparison types.
const (
	Eq    Type = "eq"    // is exactly
	Neq   Type = "neq"   // is not exactly
	In    Type = "in"    // contains
	Nin   Type = "nin"   // does not contain
	Sw    Type = "sw"    // starts with
	Nsw   Type = "nsw"   // does not start with
	Ew    Type = "ew"    // ends with
	New   Type = "new"   // does not end with
	List  Type = "list"  // is in list
	Nlist Type = "nlist" // is not in list
	Res   Type = "res"   // is resource with id
	Nres  Type = "nres"  // is not resource with id
	Ex    Type = "ex"    // has any value
	Nex   Type = "nex"   // has no value
	Gt    Type = "gt"    // greater than
	Gte   Type = "gte"   // greater than or equal
	Lt    Type = "lt"    // lower than
	Lte   Type = "lte"   // lower than or equal
	Dtp   Type = "dtp"   // has data type
	Ndtp  Type = "ndtp"  // does not have data type
	Lex   Type = "lex"   // is linked by any resource
	Nlex  Type = "nlex"  // is not linked by any resource
	Lres  Type = "lres"  // is linked by resource with id
	Nlres Type = "nlres" // is not linked by resource with id
)

// Shape tells how a type's positive form is matched.
type Shape int

// Shapes.
const (
	ShapeExact Shape = iota
	ShapeContains
	ShapePrefix
	ShapeSuffix
	ShapeList
	ShapeResource
	ShapeExists
	ShapeRange
	ShapeDataType
	ShapeLinked
	ShapeLinkedBy
)

type info struct {
	positive      bool
	reciprocal    Type
	requiresValue bool
	shape         Shape
}

var table = map[Type]info{
	Eq:    {positive: true, reciprocal: Neq, requiresValue: true, shape: ShapeExact},
	Neq:   {positive: false, reciprocal: Eq, requiresValue: true, shape: ShapeExact},
	In:    {positive: true, reciprocal: Nin, requiresValue: true, shape: ShapeContains},
	Nin:   {positive: false, reciprocal: In, requiresValue: true, shape: ShapeContains},
	Sw:    {positive: true, reciprocal: Nsw, requiresValue: true, shape: ShapePrefix},
	Nsw:   {positive: false, reciprocal: Sw, requiresValue: true, shape: ShapePrefix},
	Ew:    {positive: true, reciprocal: New, requiresValue: true, shape: ShapeSuffix},
	New:   {positive: false, reciprocal: Ew, requiresValue: true, shape: ShapeSuffix},
	List:  {positive: true, reciprocal: Nlist, requiresValue: true, shape: ShapeList},
	Nlist: {positive: false, reciprocal: List, requiresValue: true, shape: ShapeList},
	Res:   {positive: true, reciprocal: Nres, requiresValue: true, shape: ShapeResource},
	Nres:  {positive: false, reciprocal: Res, requiresValue: true, shape: ShapeResource},
	Ex:    {positive: true, reciprocal: Nex, requiresValue: false, shape: ShapeExists},
	Nex:   {positive: false, reciprocal: Ex, requiresValue: false, shape: ShapeExists},
	Gt:    {positive: true, reciprocal: Lte, requiresValue: true, shape: ShapeRange},
	Lte:   {positive: true, reciprocal: Gt, requiresValue: true, shape: ShapeRange},
	Gte:   {positive: true, reciprocal: Lt, requiresValue: true, shape: ShapeRange},
	Lt:    {positive: true, reciprocal: Gte, requiresValue: true, shape: ShapeRange},
	Dtp:   {positive: true, reciprocal: Ndtp, requiresValue: true, shape: ShapeDataType},
	Ndtp:  {positive: false, reciprocal: Dtp, requiresValue: true, shape: ShapeDataType},
	Lex:   {positive: true, reciprocal: Nlex, requiresValue: false, shape: ShapeLinked},
	Nlex:  {positive: false, reciprocal: Lex, requiresValue: false, shape: ShapeLinked},
	Lres:  {positive: true, reciprocal: Nlres, requiresValue: true, shape: ShapeLinkedBy},
	Nlres: {positive: false, reciprocal: Lres, requiresValue: true, shape: ShapeLinkedBy},
}

// Parse returns the Type for code and whether it is known.
func Parse(code string) (Type, bool) {
	t := Type(code)
	_, ok := table[t]
	return t, ok
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := table[t]
	return ok
}

// Reciprocal returns the type expressing the negation of t.
// Unknown types return themselves.
func (t Type) Reciprocal() Type {
	if i, ok := table[t]; ok {
		return i.reciprocal
	}
	return t
}

// IsPositive reports whether t matches directly. Negative types are
// compiled as "no value satisfies the reciprocal".
func (t Type) IsPositive() bool { return table[t].positive }

// RequiresValue reports whether a clause of type t needs a value.
func (t Type) RequiresValue() bool { return table[t].requiresValue }

// Shape returns how the positive form of t is matched.
func (t Type) Shape() Shape { return table[t].shape }

// Positive returns t if positive, else its reciprocal.
func (t Type) Positive() Type {
	if t.IsPositive() {
		return t
	}
	return t.Reciprocal()
}

// IsDateType reports whether t is accepted in a created/modified row.
func (t Type) IsDateType() bool {
	switch t {
	case Gt, Gte, Lt, Lte, Eq, Neq, Ex, Nex:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// All returns every known type, sorted by code.
func All() []Type {
	out := make([]Type, 0, len(table))
	for t := range table {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
