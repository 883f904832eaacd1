package scc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeSize(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Type     Type
		Expected int
	}{
		{"Char", scalarType(SpecChar, 0), 1},
		{"Int", scalarType(SpecInt, 0), 4},
		{"Long", scalarType(SpecLong, 0), 8},
		{"IntPointer", scalarType(SpecInt, 1), 8},
		{"VoidPointer", scalarType(SpecVoid, 1), 8},
		{"IntArray", Type{Tag: TypeArray, Spec: SpecInt, Length: 10}, 40},
		{"CharArray", Type{Tag: TypeArray, Spec: SpecChar, Length: 7}, 7},
		{"PointerArray", Type{Tag: TypeArray, Spec: SpecInt, Indirection: 1, Length: 3}, 24},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, test.Type.Size())
		})
	}
}

func TestTypePromote(t *testing.T) {
	charType := scalarType(SpecChar, 0)
	intType := scalarType(SpecInt, 0)
	longType := scalarType(SpecLong, 0)
	charArray := Type{Tag: TypeArray, Spec: SpecChar, Length: 5}

	assert.Equal(t, intType, charType.Promote())
	assert.Equal(t, scalarType(SpecChar, 1), charArray.Promote())
	assert.Equal(t, longType, longType.Promote())
	assert.Equal(t, scalarType(SpecInt, 2), scalarType(SpecInt, 2).Promote())

	// Promotion is idempotent.
	for _, typ := range []Type{charType, intType, longType, charArray, scalarType(SpecInt, 1)} {
		assert.Equal(t, typ.Promote(), typ.Promote().Promote())
	}
}

func TestTypeDeref(t *testing.T) {
	intType := scalarType(SpecInt, 0)
	assert.Equal(t, intType, intType.AddressOf().Deref())
	assert.Equal(t, scalarType(SpecChar, 1), scalarType(SpecChar, 2).Deref())
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, scalarType(SpecInt, 0).IsNumeric())
	assert.False(t, scalarType(SpecVoid, 0).IsNumeric())
	assert.False(t, scalarType(SpecInt, 1).IsNumeric())

	assert.True(t, scalarType(SpecInt, 1).IsPointer())
	assert.True(t, Type{Tag: TypeArray, Spec: SpecChar, Length: 3}.IsPointer())
	assert.False(t, scalarType(SpecInt, 0).IsPointer())

	assert.True(t, scalarType(SpecChar, 0).IsPredicate())
	assert.True(t, scalarType(SpecVoid, 1).IsPredicate())
	assert.False(t, scalarType(SpecVoid, 0).IsPredicate())
	assert.False(t, Type{Tag: TypeFunction, Spec: SpecInt}.IsPredicate())
}

func TestTypeCompatibility(t *testing.T) {
	intType := scalarType(SpecInt, 0)
	longType := scalarType(SpecLong, 0)
	intPtr := scalarType(SpecInt, 1)
	longPtr := scalarType(SpecLong, 1)
	voidPtr := scalarType(SpecVoid, 1)
	charArray := Type{Tag: TypeArray, Spec: SpecChar, Length: 4}

	assert.True(t, intType.IsCompatibleWith(longType))
	assert.True(t, intPtr.IsCompatibleWith(intPtr))
	assert.False(t, intPtr.IsCompatibleWith(longPtr))
	assert.True(t, voidPtr.IsCompatibleWith(intPtr))
	assert.True(t, longPtr.IsCompatibleWith(voidPtr))
	assert.False(t, intPtr.IsCompatibleWith(longType))
	assert.True(t, charArray.IsCompatibleWith(scalarType(SpecChar, 1)))
}

func TestTypeEquality(t *testing.T) {
	intFn := Type{Tag: TypeFunction, Spec: SpecInt, HasParams: true, Params: []Type{scalarType(SpecInt, 0)}}
	otherFn := Type{Tag: TypeFunction, Spec: SpecInt, HasParams: true, Params: []Type{scalarType(SpecLong, 0)}}
	bareFn := Type{Tag: TypeFunction, Spec: SpecInt}

	assert.True(t, intFn.Equals(intFn))
	assert.False(t, intFn.Equals(otherFn))

	// An absent parameter list matches any list with the same return shape.
	assert.True(t, bareFn.Equals(intFn))
	assert.True(t, intFn.Equals(bareFn))
	assert.False(t, bareFn.Equals(Type{Tag: TypeFunction, Spec: SpecChar}))

	assert.True(t, ErrorType.Equals(ErrorType))
	assert.False(t, ErrorType.Equals(scalarType(SpecInt, 0)))
}
