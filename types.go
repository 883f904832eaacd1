package scc

// Specifier is the base type keyword a declaration starts with.
type Specifier int

const (
	SpecInt Specifier = iota
	SpecChar
	SpecLong
	SpecVoid
)

func (s Specifier) String() string {
	switch s {
	case SpecInt:
		return "int"
	case SpecChar:
		return "char"
	case SpecLong:
		return "long"
	case SpecVoid:
		return "void"
	default:
		return "?"
	}
}

func (s Specifier) size() int {
	switch s {
	case SpecChar:
		return SizeofChar
	case SpecInt:
		return SizeofInt
	case SpecLong:
		return SizeofLong
	default:
		panic("size of void specifier")
	}
}

// TypeTag distinguishes the four shapes a Type can take.
type TypeTag int

const (
	TypeError TypeTag = iota
	TypeScalar
	TypeArray
	TypeFunction
)

// Type is the value-based descriptor carried by every Tree node and every
// Symbol. Scalar and Array types share the Spec/Indirection pair, which
// doubles as the "element type" of an Array. Function types reuse the
// same pair for the return type, plus an explicit parameter list.
type Type struct {
	Tag         TypeTag
	Spec        Specifier
	Indirection int
	Length      uint64 // meaningful only when Tag == TypeArray
	Params      []Type // meaningful only when Tag == TypeFunction
	HasParams   bool   // false means "f()", an unknown/unchecked parameter list
}

// ErrorType is the single sentinel value every Error-tagged node carries.
var ErrorType = Type{Tag: TypeError}

func scalarType(spec Specifier, indirection int) Type {
	return Type{Tag: TypeScalar, Spec: spec, Indirection: indirection}
}

func (t Type) IsError() bool { return t.Tag == TypeError }

// IsPointer reports whether t denotes a memory address: either a scalar
// with at least one level of indirection, or an array (which always
// decays to one).
func (t Type) IsPointer() bool {
	return (t.Tag == TypeScalar && t.Indirection > 0) || t.Tag == TypeArray
}

// IsNumeric reports whether t is an arithmetic scalar (char, int or long
// with no indirection).
func (t Type) IsNumeric() bool {
	return t.Tag == TypeScalar && t.Indirection == 0 && t.Spec != SpecVoid
}

// IsPredicate reports whether t can stand as a test/logical-operand: any
// numeric type, or any pointer.
func (t Type) IsPredicate() bool {
	return t.IsNumeric() || t.IsPointer()
}

// IsVoidPointer reports whether t is exactly `void*`.
func (t Type) IsVoidPointer() bool {
	return t.Tag == TypeScalar && t.Spec == SpecVoid && t.Indirection == 1
}

// elementType returns the scalar type of one element of an array.
func (t Type) elementType() Type {
	return scalarType(t.Spec, t.Indirection)
}

// Size returns the size in bytes of a complete object of this type. It
// panics for void and for function/error types, which the Checker must
// never let reach code that calls Size.
func (t Type) Size() int {
	switch t.Tag {
	case TypeScalar:
		if t.Indirection > 0 {
			return SizeofPtr
		}
		return t.Spec.size()
	case TypeArray:
		return int(t.Length) * t.elementType().Size()
	default:
		panic("size of non-object type")
	}
}

// Promote applies the two standing implicit conversions: array decays to
// a pointer to its element type, and char widens to int. Every other
// type is returned unchanged.
func (t Type) Promote() Type {
	switch {
	case t.Tag == TypeArray:
		return scalarType(t.Spec, t.Indirection+1)
	case t.Tag == TypeScalar && t.Spec == SpecChar && t.Indirection == 0:
		return scalarType(SpecInt, 0)
	default:
		return t
	}
}

// Deref returns the pointee type of a scalar pointer. The caller must
// have already checked t.IsPointer().
func (t Type) Deref() Type {
	return scalarType(t.Spec, t.Indirection-1)
}

// AddressOf returns the type of &e when e has type t.
func (t Type) AddressOf() Type {
	return scalarType(t.Spec, t.Indirection+1)
}

// ReturnType extracts the scalar return type encoded in a Function type.
func (t Type) ReturnType() Type {
	return scalarType(t.Spec, t.Indirection)
}

// IsCompatibleWith implements the compatibility rule used by equality
// comparisons, assignment and argument passing: any two numeric types are
// compatible; any two pointers to the same pointee are compatible, and
// void* is compatible with any pointer.
func (t Type) IsCompatibleWith(o Type) bool {
	if t.IsNumeric() && o.IsNumeric() {
		return true
	}
	if t.IsPointer() && o.IsPointer() {
		if t.IsVoidPointer() || o.IsVoidPointer() {
			return true
		}
		pt, po := t.Promote(), o.Promote()
		return pt.Spec == po.Spec && pt.Indirection == po.Indirection
	}
	return false
}

// Equals is structural, value-based type equality, used for symbol
// redeclaration checks. A Function type with an absent parameter list
// (HasParams == false, i.e. a bare "f()" declaration) is considered equal
// to any Function type with the same return shape.
func (t Type) Equals(o Type) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TypeError:
		return true
	case TypeScalar:
		return t.Spec == o.Spec && t.Indirection == o.Indirection
	case TypeArray:
		return t.Spec == o.Spec && t.Indirection == o.Indirection && t.Length == o.Length
	case TypeFunction:
		if t.Spec != o.Spec || t.Indirection != o.Indirection {
			return false
		}
		if !t.HasParams || !o.HasParams {
			return true
		}
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equals(o.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (t Type) String() string {
	switch t.Tag {
	case TypeError:
		return "<error>"
	case TypeScalar:
		s := t.Spec.String()
		for i := 0; i < t.Indirection; i++ {
			s += "*"
		}
		return s
	case TypeArray:
		return t.elementType().String() + "[]"
	case TypeFunction:
		return t.ReturnType().String() + "()"
	default:
		return "?"
	}
}

func numericCrossTarget(a, b Type) Type {
	if a.Spec == SpecLong || b.Spec == SpecLong {
		return scalarType(SpecLong, 0)
	}
	return scalarType(SpecInt, 0)
}

func truncate(value int64, size int) int64 {
	switch size {
	case SizeofChar:
		return int64(int8(value))
	case SizeofInt:
		return int64(int32(value))
	default:
		return value
	}
}
