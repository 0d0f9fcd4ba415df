package uniform

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

type op uint8

const (
	opAdd op = iota
	opSub
	opMul
	opDiv
)

func (o op) String() string {
	return [...]string{"Add", "Sub", "Mul", "Div"}[o]
}

// CheckArith returns a non-nil error if arithmetic between a and b is not
// defined, that is, if they do not hold the same arithmetic kind. Configuration
// validation should use it so [Add], [Sub], [Mul] and [Div] never panic while rendering.
func CheckArith(a, b Value) error {
	if a.kind != b.kind {
		return fmt.Errorf("mismatched uniform kinds %s and %s", a.kind, b.kind)
	} else if !a.kind.Arithmetic() {
		return fmt.Errorf("arithmetic undefined for uniform kind %s", a.kind)
	}
	return nil
}

// Add returns a+b component-wise. For Bool values it returns a||b.
// Add panics if a and b are not of the same arithmetic kind, see [CheckArith].
func Add(a, b Value) Value { return arith(opAdd, a, b) }

// Sub returns a-b component-wise. For Bool values it returns a && !b.
// Sub panics if a and b are not of the same arithmetic kind, see [CheckArith].
func Sub(a, b Value) Value { return arith(opSub, a, b) }

// Mul returns a*b component-wise. For Bool values it returns a&&b.
// Mul panics if a and b are not of the same arithmetic kind, see [CheckArith].
func Mul(a, b Value) Value { return arith(opMul, a, b) }

// Div returns a/b component-wise. Integer division by zero panics. For Bool values it returns a.
// Div panics if a and b are not of the same arithmetic kind, see [CheckArith].
func Div(a, b Value) Value { return arith(opDiv, a, b) }

func arith(o op, a, b Value) Value {
	if err := CheckArith(a, b); err != nil {
		panic("uniform." + o.String() + ": " + err.Error())
	}
	switch {
	case a.kind == KindBool:
		return Bool(boolOp(o, a.b, b.b))
	case a.kind == KindFloat2:
		return Vec2(vec2Op(o, a.Vec2(), b.Vec2()))
	case a.kind == KindFloat3:
		return Vec3(vec3Op(o, a.Vec3(), b.Vec3()))
	case a.kind.IsFloat():
		result := Value{kind: a.kind}
		for i := 0; i < a.kind.Components(); i++ {
			result.f[i] = floatOp(o, a.f[i], b.f[i])
		}
		return result
	}
	result := Value{kind: a.kind}
	for i := 0; i < a.kind.Components(); i++ {
		result.i[i] = intOp(o, a.i[i], b.i[i])
	}
	return result
}

func boolOp(o op, a, b bool) bool {
	switch o {
	case opAdd:
		return a || b
	case opSub:
		return a && !b
	case opMul:
		return a && b
	}
	return a // Division is meaningless for booleans.
}

func vec2Op(o op, a, b ms2.Vec) ms2.Vec {
	switch o {
	case opAdd:
		return ms2.Add(a, b)
	case opSub:
		return ms2.Sub(a, b)
	case opMul:
		return ms2.MulElem(a, b)
	}
	return ms2.DivElem(a, b)
}

func vec3Op(o op, a, b ms3.Vec) ms3.Vec {
	switch o {
	case opAdd:
		return ms3.Add(a, b)
	case opSub:
		return ms3.Sub(a, b)
	case opMul:
		return ms3.MulElem(a, b)
	}
	return ms3.DivElem(a, b)
}

func floatOp(o op, a, b float32) float32 {
	switch o {
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	}
	return a / b
}

func intOp(o op, a, b int32) int32 {
	switch o {
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	}
	return a / b
}
