// Package uniform implements the typed values bound to shader uniforms and
// the arithmetic defined between them.
//
// A [Value] is an immutable tagged union. Every operation that would modify a
// value returns a new one, slices are copied on the way in and on the way out
// so that no two values alias the same memory.
package uniform

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Kind enumerates the variants a [Value] may hold.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat
	KindFloat2
	KindFloat3
	KindFloat4
	KindFloatArray
	KindInt
	KindInt2
	KindInt3
	KindInt4
	KindIntArray
	KindMat2
	KindMat3
	KindMat4
	KindBool
	KindBoolArray
	KindByteArray
	KindString
	KindTexture
	KindSrgbTexture
	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:     "invalid",
	KindFloat:       "float",
	KindFloat2:      "float2",
	KindFloat3:      "float3",
	KindFloat4:      "float4",
	KindFloatArray:  "float_array",
	KindInt:         "int",
	KindInt2:        "int2",
	KindInt3:        "int3",
	KindInt4:        "int4",
	KindIntArray:    "int_array",
	KindMat2:        "mat2",
	KindMat3:        "mat3",
	KindMat4:        "mat4",
	KindBool:        "bool",
	KindBoolArray:   "bool_array",
	KindByteArray:   "byte_array",
	KindString:      "string",
	KindTexture:     "texture",
	KindSrgbTexture: "srgb_texture",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind whose String method returns s. Matching is case insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := KindFloat; k < numKinds; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown uniform kind %q", s)
}

// Components returns the number of scalar components of scalar and vector kinds,
// the number of elements of a square matrix kind and 0 for every other kind.
func (k Kind) Components() int {
	switch k {
	case KindFloat, KindInt, KindBool:
		return 1
	case KindFloat2, KindInt2:
		return 2
	case KindFloat3, KindInt3:
		return 3
	case KindFloat4, KindInt4, KindMat2:
		return 4
	case KindMat3:
		return 9
	case KindMat4:
		return 16
	}
	return 0
}

// IsFloat reports whether k is a float scalar or vector kind.
func (k Kind) IsFloat() bool { return k >= KindFloat && k <= KindFloat4 }

// IsInt reports whether k is an int scalar or vector kind.
func (k Kind) IsInt() bool { return k >= KindInt && k <= KindInt4 }

// IsMatrix reports whether k is a square matrix kind.
func (k Kind) IsMatrix() bool { return k >= KindMat2 && k <= KindMat4 }

// IsTexture reports whether k holds an opaque image payload.
func (k Kind) IsTexture() bool { return k == KindTexture || k == KindSrgbTexture }

// Arithmetic reports whether Add, Sub, Mul and Div are defined for two values of kind k.
func (k Kind) Arithmetic() bool { return k.IsFloat() || k.IsInt() || k == KindBool }

func (k Kind) matrixDim() int {
	switch k {
	case KindMat2:
		return 2
	case KindMat3:
		return 3
	case KindMat4:
		return 4
	}
	return 0
}

// Value is a uniform value. The zero Value has KindInvalid.
type Value struct {
	kind Kind
	b    bool
	// f stores float scalars, vectors and row-major matrices.
	f [16]float32
	i [4]int32
	w uint32
	h uint32
	s string
	// Variable length payloads. Owned by the Value, never exposed directly.
	fs  []float32
	is  []int32
	bs  []bool
	raw []byte
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func Float(x float32) Value { return Value{kind: KindFloat, f: [16]float32{x}} }

func Float2(x, y float32) Value { return Value{kind: KindFloat2, f: [16]float32{x, y}} }

func Float3(x, y, z float32) Value { return Value{kind: KindFloat3, f: [16]float32{x, y, z}} }

func Float4(x, y, z, w float32) Value { return Value{kind: KindFloat4, f: [16]float32{x, y, z, w}} }

// Vec2 returns a Float2 value with v's components.
func Vec2(v ms2.Vec) Value { return Float2(v.X, v.Y) }

// Vec3 returns a Float3 value with v's components.
func Vec3(v ms3.Vec) Value { return Float3(v.X, v.Y, v.Z) }

func Int(x int32) Value { return Value{kind: KindInt, i: [4]int32{x}} }

func Int2(x, y int32) Value { return Value{kind: KindInt2, i: [4]int32{x, y}} }

func Int3(x, y, z int32) Value { return Value{kind: KindInt3, i: [4]int32{x, y, z}} }

func Int4(x, y, z, w int32) Value { return Value{kind: KindInt4, i: [4]int32{x, y, z, w}} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func FloatArray(a []float32) Value { return Value{kind: KindFloatArray, fs: slices.Clone(a)} }

func IntArray(a []int32) Value { return Value{kind: KindIntArray, is: slices.Clone(a)} }

func BoolArray(a []bool) Value { return Value{kind: KindBoolArray, bs: slices.Clone(a)} }

func ByteArray(a []byte) Value { return Value{kind: KindByteArray, raw: slices.Clone(a)} }

// Mat2 returns a 2x2 matrix value. m is indexed m[row][col].
func Mat2(m [2][2]float32) Value {
	v := Value{kind: KindMat2}
	for r := range m {
		copy(v.f[r*2:], m[r][:])
	}
	return v
}

// Mat3 returns a 3x3 matrix value. m is indexed m[row][col].
func Mat3(m [3][3]float32) Value {
	v := Value{kind: KindMat3}
	for r := range m {
		copy(v.f[r*3:], m[r][:])
	}
	return v
}

// Mat4 returns a 4x4 matrix value. m is indexed m[row][col].
func Mat4(m [4][4]float32) Value {
	v := Value{kind: KindMat4}
	for r := range m {
		copy(v.f[r*4:], m[r][:])
	}
	return v
}

// Texture returns a texture value of the given dimensions. data is copied and not validated against the dimensions.
func Texture(width, height uint32, data []byte) Value {
	return Value{kind: KindTexture, w: width, h: height, raw: slices.Clone(data)}
}

// SrgbTexture is like [Texture] but marks data as sRGB encoded.
func SrgbTexture(width, height uint32, data []byte) Value {
	return Value{kind: KindSrgbTexture, w: width, h: height, raw: slices.Clone(data)}
}

// FromFloat32s builds a float scalar, vector or matrix value of kind k from its components.
// Matrix components are expected in row-major order.
func FromFloat32s(k Kind, comps []float32) (Value, error) {
	if !k.IsFloat() && !k.IsMatrix() {
		return Value{}, fmt.Errorf("FromFloat32s: %s is not a float kind", k)
	} else if len(comps) != k.Components() {
		return Value{}, fmt.Errorf("FromFloat32s: %s requires %d components, got %d", k, k.Components(), len(comps))
	}
	v := Value{kind: k}
	copy(v.f[:], comps)
	return v, nil
}

// FromInt32s builds an int scalar or vector value of kind k from its components.
func FromInt32s(k Kind, comps []int32) (Value, error) {
	if !k.IsInt() {
		return Value{}, fmt.Errorf("FromInt32s: %s is not an int kind", k)
	} else if len(comps) != k.Components() {
		return Value{}, fmt.Errorf("FromInt32s: %s requires %d components, got %d", k, k.Components(), len(comps))
	}
	v := Value{kind: k}
	copy(v.i[:], comps)
	return v, nil
}

// Float32s returns a copy of the float components of v: scalar and vector
// components, matrix elements in row-major order or the float array contents.
// It returns nil for non-float kinds.
func (v Value) Float32s() []float32 {
	switch {
	case v.kind.IsFloat(), v.kind.IsMatrix():
		return slices.Clone(v.f[:v.kind.Components()])
	case v.kind == KindFloatArray:
		return slices.Clone(v.fs)
	}
	return nil
}

// Int32s returns a copy of the int components of v or the int array contents.
// It returns nil for non-int kinds.
func (v Value) Int32s() []int32 {
	switch {
	case v.kind.IsInt():
		return slices.Clone(v.i[:v.kind.Components()])
	case v.kind == KindIntArray:
		return slices.Clone(v.is)
	}
	return nil
}

// Bools returns the bool array contents of v, or a single element slice for a Bool value.
func (v Value) Bools() []bool {
	switch v.kind {
	case KindBool:
		return []bool{v.b}
	case KindBoolArray:
		return slices.Clone(v.bs)
	}
	return nil
}

// Bool returns the value of a Bool kind. It returns false for every other kind.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Text returns the contents of a String kind.
func (v Value) Text() string { return v.s }

// Bytes returns a copy of the byte payload of a ByteArray or texture kind.
func (v Value) Bytes() []byte { return slices.Clone(v.raw) }

// Dims returns the dimensions of a texture kind.
func (v Value) Dims() (width, height uint32) { return v.w, v.h }

// Len returns the number of elements of an array kind, the number of bytes of
// a texture kind or the number of components otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindFloatArray:
		return len(v.fs)
	case KindIntArray:
		return len(v.is)
	case KindBoolArray:
		return len(v.bs)
	case KindByteArray, KindTexture, KindSrgbTexture:
		return len(v.raw)
	case KindString:
		return len(v.s)
	}
	return v.kind.Components()
}

// Vec2 returns the components of a Float2 value.
func (v Value) Vec2() ms2.Vec { return ms2.Vec{X: v.f[0], Y: v.f[1]} }

// Vec3 returns the components of a Float3 value.
func (v Value) Vec3() ms3.Vec { return ms3.Vec{X: v.f[0], Y: v.f[1], Z: v.f[2]} }

// Equal reports whether a and b hold the same variant and payload. Float
// components are compared exactly, use [ApproxEqual] for tolerance checks.
func Equal(a, b Value) bool {
	if a.kind != b.kind || a.b != b.b || a.f != b.f || a.i != b.i || a.w != b.w || a.h != b.h || a.s != b.s {
		return false
	}
	return slices.Equal(a.fs, b.fs) && slices.Equal(a.is, b.is) && slices.Equal(a.bs, b.bs) && slices.Equal(a.raw, b.raw)
}

func (v Value) String() string {
	switch {
	case v.kind == KindInvalid:
		return "invalid"
	case v.kind == KindBool:
		return fmt.Sprintf("bool(%t)", v.b)
	case v.kind == KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case v.kind.IsTexture():
		return fmt.Sprintf("%s(%dx%d, %d bytes)", v.kind, v.w, v.h, len(v.raw))
	case v.kind == KindByteArray:
		return fmt.Sprintf("byte_array(%d bytes)", len(v.raw))
	case v.kind == KindBoolArray:
		return fmt.Sprintf("bool_array%v", v.bs)
	case v.kind.IsInt(), v.kind == KindIntArray:
		return fmt.Sprintf("%s%v", v.kind, v.Int32s())
	}
	return fmt.Sprintf("%s%v", v.kind, v.Float32s())
}
