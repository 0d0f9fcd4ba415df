package uniform

import (
	"errors"
	"fmt"
	"math"
)

// Parse converts a decoded configuration value into a Value of kind k. raw is
// expected to be what generic TOML, YAML or JSON decoders produce: numbers
// (any Go integer or float type), bools, strings and []any lists. Vector kinds
// take a list of components, matrix kinds a list of rows and array kinds a list
// of elements. A single number is accepted for vector kinds and broadcast to
// every component. Texture kinds cannot be parsed, they are produced by inputs.
func Parse(k Kind, raw any) (Value, error) {
	if raw == nil {
		return Value{}, fmt.Errorf("missing %s value", k)
	}
	switch {
	case k == KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("bool value must be true or false, got %T", raw)
		}
		return Bool(b), nil

	case k == KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("string value must be a string, got %T", raw)
		}
		return String(s), nil

	case k.IsFloat():
		comps, err := parseFloats(raw, k.Components())
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k, err)
		}
		return FromFloat32s(k, comps)

	case k.IsInt():
		comps, err := parseInts(raw, k.Components())
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k, err)
		}
		return FromInt32s(k, comps)

	case k.IsMatrix():
		rows, ok := raw.([]any)
		dim := k.matrixDim()
		if !ok || len(rows) != dim {
			return Value{}, fmt.Errorf("%s: want list of %d rows", k, dim)
		}
		comps := make([]float32, 0, dim*dim)
		for r, row := range rows {
			rowComps, err := parseFloats(row, dim)
			if err != nil {
				return Value{}, fmt.Errorf("%s row %d: %w", k, r, err)
			}
			comps = append(comps, rowComps...)
		}
		return FromFloat32s(k, comps)

	case k == KindFloatArray:
		comps, err := parseFloats(raw, -1)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k, err)
		}
		return FloatArray(comps), nil

	case k == KindIntArray:
		comps, err := parseInts(raw, -1)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k, err)
		}
		return IntArray(comps), nil

	case k == KindBoolArray:
		list, ok := raw.([]any)
		if !ok {
			return Value{}, fmt.Errorf("%s: want list, got %T", k, raw)
		}
		bs := make([]bool, len(list))
		for i, elem := range list {
			b, ok := elem.(bool)
			if !ok {
				return Value{}, fmt.Errorf("%s element %d: want bool, got %T", k, i, elem)
			}
			bs[i] = b
		}
		return BoolArray(bs), nil

	case k == KindByteArray:
		if s, ok := raw.(string); ok {
			return ByteArray([]byte(s)), nil
		}
		ints, err := parseInts(raw, -1)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", k, err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > math.MaxUint8 {
				return Value{}, fmt.Errorf("%s element %d: %d out of byte range", k, i, v)
			}
			b[i] = byte(v)
		}
		return ByteArray(b), nil

	case k.IsTexture():
		return Value{}, fmt.Errorf("%s values are provided by inputs and can not be configured", k)
	}
	return Value{}, fmt.Errorf("can not parse uniform kind %s", k)
}

// parseFloats parses raw into n floats. n<0 accepts a list of any length.
func parseFloats(raw any, n int) ([]float32, error) {
	if f, err := toFloat(raw); err == nil && n > 0 {
		comps := make([]float32, n)
		for i := range comps {
			comps[i] = float32(f)
		}
		return comps, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want number or list, got %T", raw)
	} else if n >= 0 && len(list) != n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(list))
	}
	comps := make([]float32, len(list))
	for i, elem := range list {
		f, err := toFloat(elem)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		comps[i] = float32(f)
	}
	return comps, nil
}

func parseInts(raw any, n int) ([]int32, error) {
	if v, err := toInt(raw); err == nil && n > 0 {
		comps := make([]int32, n)
		for i := range comps {
			comps[i] = v
		}
		return comps, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want integer or list, got %T", raw)
	} else if n >= 0 && len(list) != n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(list))
	}
	comps := make([]int32, len(list))
	for i, elem := range list {
		v, err := toInt(elem)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		comps[i] = v
	}
	return comps, nil
}

var errNotNumber = errors.New("not a number")

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, errNotNumber
}

func toInt(raw any) (int32, error) {
	switch v := raw.(type) {
	case int:
		return checkInt32(int64(v))
	case int64:
		return checkInt32(v)
	case int32:
		return v, nil
	case uint64:
		if v > math.MaxInt32 {
			return 0, fmt.Errorf("%d overflows int32", v)
		}
		return int32(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%g is not an integer", v)
		}
		return checkInt32(int64(v))
	}
	return 0, errNotNumber
}

func checkInt32(v int64) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%d overflows int32", v)
	}
	return int32(v), nil
}
