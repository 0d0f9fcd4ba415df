// Package glbuild generates GLSL source text for uniform values: type names,
// uniform and constant declarations and the header placed before the user
// code of every stage shader. All functions append to a byte slice and return
// the extended slice.
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/soypat/glvj/uniform"
)

const VersionStr = "#version 430\n"

// FragmentPrelude declares the interface between [DefaultVertexShader] and the
// fragment shader of every stage.
const FragmentPrelude = "in vec2 vTexCoord;\nout vec4 fragColor;\n"

// DefaultVertexShader draws the full screen quad every stage renders into.
const DefaultVertexShader = VersionStr + `in vec2 aPos;
out vec2 vTexCoord;
void main() {
	vTexCoord = aPos * 0.5 + 0.5;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`

var errNoGLSLType = errors.New("kind has no GLSL uniform type")

// Typename returns the GLSL type name for values of kind k. Array kinds return
// the element type, the length is given by the value. Texture kinds map to sampler2D.
func Typename(k uniform.Kind) (string, error) {
	switch k {
	case uniform.KindFloat, uniform.KindFloatArray:
		return "float", nil
	case uniform.KindFloat2:
		return "vec2", nil
	case uniform.KindFloat3:
		return "vec3", nil
	case uniform.KindFloat4:
		return "vec4", nil
	case uniform.KindInt, uniform.KindIntArray:
		return "int", nil
	case uniform.KindInt2:
		return "ivec2", nil
	case uniform.KindInt3:
		return "ivec3", nil
	case uniform.KindInt4:
		return "ivec4", nil
	case uniform.KindBool, uniform.KindBoolArray:
		return "bool", nil
	case uniform.KindMat2:
		return "mat2", nil
	case uniform.KindMat3:
		return "mat3", nil
	case uniform.KindMat4:
		return "mat4", nil
	case uniform.KindTexture, uniform.KindSrgbTexture:
		return "sampler2D", nil
	}
	return "", fmt.Errorf("%s: %w", k, errNoGLSLType)
}

func isArray(k uniform.Kind) bool {
	return k == uniform.KindFloatArray || k == uniform.KindIntArray || k == uniform.KindBoolArray
}

// AppendUniformDecl appends a uniform declaration for v:
//
//	uniform vec3 name;
//	uniform float name[8];
func AppendUniformDecl(dst []byte, name string, v uniform.Value) ([]byte, error) {
	typename, err := Typename(v.Kind())
	if err != nil {
		return dst, fmt.Errorf("uniform %q: %w", name, err)
	} else if name == "" {
		return dst, errors.New("empty uniform name")
	}
	if isArray(v.Kind()) && v.Len() == 0 {
		return dst, fmt.Errorf("uniform %q: GLSL arrays can not be empty", name)
	}
	dst = append(dst, "uniform "...)
	dst = append(dst, typename...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	if isArray(v.Kind()) {
		dst = append(dst, '[')
		dst = strconv.AppendInt(dst, int64(v.Len()), 10)
		dst = append(dst, ']')
	}
	dst = append(dst, ";\n"...)
	return dst, nil
}

// AppendConstDecl appends a constant declaration holding v. Changing the
// value of a constant requires recompiling the shader.
//
//	const vec3 name=vec3(1.,0.5,0.);
func AppendConstDecl(dst []byte, name string, v uniform.Value) ([]byte, error) {
	k := v.Kind()
	if k.IsTexture() {
		return dst, fmt.Errorf("constant %q: textures can not be constants", name)
	} else if name == "" {
		return dst, errors.New("empty constant name")
	}
	typename, err := Typename(k)
	if err != nil {
		return dst, fmt.Errorf("constant %q: %w", name, err)
	}
	dst = append(dst, "const "...)
	switch {
	case isArray(k):
		if v.Len() == 0 {
			return dst, fmt.Errorf("constant %q: GLSL arrays can not be empty", name)
		}
		e := elementsOf(v)
		return AppendGenericSliceDecl(dst, typename, name, v.Len(), e.append), nil
	case k.IsMatrix():
		n := matrixDim(k)
		return appendMatDecl(dst, typename, name, n, n, v.Float32s()), nil
	}
	dst = append(dst, typename...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, '=')
	dst = AppendValue(dst, v)
	dst = append(dst, ";\n"...)
	return dst, nil
}

// AppendValue appends the GLSL literal of a scalar or vector value, i.e:
// "1.5", "ivec2(1,2)" or "true". It appends nothing for other kinds.
func AppendValue(b []byte, v uniform.Value) []byte {
	k := v.Kind()
	n := k.Components()
	typename, err := Typename(k)
	if err != nil || isArray(k) || k.IsMatrix() || k.IsTexture() {
		return b
	}
	if n > 1 {
		b = append(b, typename...)
		b = append(b, '(')
	}
	e := elementsOf(v)
	for i := 0; i < n; i++ {
		b = e.append(b, i)
		if i != n-1 {
			b = append(b, ',')
		}
	}
	if n > 1 {
		b = append(b, ')')
	}
	return b
}

type elements struct {
	fs []float32
	is []int32
	bs []bool
}

func elementsOf(v uniform.Value) elements {
	return elements{fs: v.Float32s(), is: v.Int32s(), bs: v.Bools()}
}

func (e elements) append(b []byte, i int) []byte {
	switch {
	case e.fs != nil:
		return AppendFloat(b, '-', '.', e.fs[i])
	case e.is != nil:
		return strconv.AppendInt(b, int64(e.is[i]), 10)
	case e.bs != nil:
		return strconv.AppendBool(b, e.bs[i])
	}
	return b
}

func matrixDim(k uniform.Kind) int {
	switch k {
	case uniform.KindMat2:
		return 2
	case uniform.KindMat3:
		return 3
	case uniform.KindMat4:
		return 4
	}
	return 0
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

// appendMatDecl appends a matrix declaration. arr is stored row major, GLSL
// matrix constructors take their arguments column major.
func appendMatDecl(b []byte, typename, name string, row, col int, arr []float32) []byte {
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, '=')
	b = append(b, typename...)
	b = append(b, '(')
	for i := 0; i < col; i++ {
		for j := 0; j < row; j++ {
			v := arr[j*col+i] // Column major access, as per OpenGL standard.
			b = AppendFloat(b, '-', '.', v)
			last := i == col-1 && j == row-1
			if !last {
				b = append(b, ',')
			}
		}
	}
	b = append(b, ");\n"...)
	return b
}

const decimalDigits = 9

func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

const maxLineLim = 500

func AppendGenericSliceDecl(b []byte, typename, varname string, nelem int, appendElement func(b []byte, i int) []byte) []byte {
	lineStart := len(b)
	b = appendStartSliceDecl(b, typename, varname, nelem)
	for i := 0; i < nelem; i++ {
		last := i == nelem-1
		b = appendElement(b, i)
		if !last {
			b = append(b, ',')
			lineLen := len(b) - lineStart
			if lineLen > maxLineLim {
				b = append(b, '\n') // Break up line for long arrays.
				lineStart = len(b)
			}
		}
	}
	b = append(b, ");\n"...)
	return b
}

func appendStartSliceDecl(b []byte, typeName, varName string, length int) []byte {
	l := int64(length)
	typeStart := len(b)
	b = append(b, typeName...)
	b = append(b, "["...)
	b = strconv.AppendInt(b, l, 10)
	b = append(b, ']')
	typeEnd := len(b)
	b = append(b, ' ')
	b = append(b, varName...)
	b = append(b, '=')
	b = append(b, b[typeStart:typeEnd]...) // Reuse typename appended earlier.
	b = append(b, '(')
	return b
}
