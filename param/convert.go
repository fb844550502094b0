package param

import (
	"fmt"
	"math"
	"strconv"
)

// Value lists the Go types that map onto a parameter kind.
type Value interface {
	bool | int | int32 | int64 | float32 | float64 | string |
		[]byte | []bool | []int | []int64 | []float32 | []float64 | []string
}

// TypeOf returns the parameter kind T maps onto.
func TypeOf[T Value]() Type {
	var zero T
	switch any(zero).(type) {
	case bool:
		return TypeBool
	case int, int32, int64:
		return TypeInteger
	case float32, float64:
		return TypeDouble
	case string:
		return TypeString
	case []byte:
		return TypeByteArray
	case []bool:
		return TypeBoolArray
	case []int, []int64:
		return TypeIntegerArray
	case []float32, []float64:
		return TypeDoubleArray
	case []string:
		return TypeStringArray
	}
	return TypeNotSet
}

// ValueOf wraps a Go value in a ParameterValue.
func ValueOf[T Value](v T) ParameterValue {
	switch x := any(v).(type) {
	case bool:
		return BoolValue(x)
	case int:
		return IntegerValue(int64(x))
	case int32:
		return IntegerValue(int64(x))
	case int64:
		return IntegerValue(x)
	case float32:
		return DoubleValue(float64(x))
	case float64:
		return DoubleValue(x)
	case string:
		return StringValue(x)
	case []byte:
		return ByteArrayValue(x)
	case []bool:
		return BoolArrayValue(x)
	case []int:
		out := make([]int64, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return ParameterValue{typ: TypeIntegerArray, ints: out}
	case []int64:
		return IntegerArrayValue(x)
	case []float32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return ParameterValue{typ: TypeDoubleArray, doubles: out}
	case []float64:
		return DoubleArrayValue(x)
	case []string:
		return StringArrayValue(x)
	}
	return NotSet()
}

// As converts v to T. It fails with *TypeMismatchError when the tag of v
// does not map onto T, or when the value does not fit T; the latter wraps a
// *RangeError.
func As[T Value](v ParameterValue) (T, error) {
	var out T
	want := TypeOf[T]()
	if v.typ != want {
		return out, &TypeMismatchError{Expected: want, Actual: v.typ}
	}
	if err := checkNarrowing[T](v); err != nil {
		return out, &TypeMismatchError{Expected: want, Actual: v.typ, Err: err}
	}
	switch p := any(&out).(type) {
	case *bool:
		*p = v.b
	case *int:
		*p = int(v.i)
	case *int32:
		*p = int32(v.i)
	case *int64:
		*p = v.i
	case *float32:
		*p = float32(v.d)
	case *float64:
		*p = v.d
	case *string:
		*p = v.s
	case *[]byte:
		*p = append([]byte(nil), v.bytes...)
	case *[]bool:
		*p = append([]bool(nil), v.bools...)
	case *[]int:
		*p = make([]int, len(v.ints))
		for i, e := range v.ints {
			(*p)[i] = int(e)
		}
	case *[]int64:
		*p = append([]int64(nil), v.ints...)
	case *[]float32:
		*p = make([]float32, len(v.doubles))
		for i, e := range v.doubles {
			(*p)[i] = float32(e)
		}
	case *[]float64:
		*p = append([]float64(nil), v.doubles...)
	case *[]string:
		*p = append([]string(nil), v.strs...)
	}
	return out, nil
}

// checkNarrowing rejects values that the Go type T cannot represent.
func checkNarrowing[T Value](v ParameterValue) error {
	var zero T
	switch any(zero).(type) {
	case int:
		return intsFit(v.i, math.MinInt, math.MaxInt, "int")
	case int32:
		return intsFit(v.i, math.MinInt32, math.MaxInt32, "int32")
	case float32:
		return float32Fits(v.d)
	case []int:
		for _, e := range v.ints {
			if err := intsFit(e, math.MinInt, math.MaxInt, "int"); err != nil {
				return err
			}
		}
	case []float32:
		for _, e := range v.doubles {
			if err := float32Fits(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func intsFit(i, lower, upper int64, goType string) error {
	if i < lower || i > upper {
		return &RangeError{Value: strconv.FormatInt(i, 10), Reason: "out of range for " + goType}
	}
	return nil
}

// float32Fits accepts NaN and infinities, which float32 represents, and
// rejects finite values beyond float32's range.
func float32Fits(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || math.Abs(d) <= math.MaxFloat32 {
		return nil
	}
	return &RangeError{Value: strconv.FormatFloat(d, 'g', -1, 64), Reason: "out of range for float32"}
}

// FromAny converts a decoded document value (YAML, JSON) into a
// ParameterValue. Arrays must be homogeneous; integers inside a float array
// are widened.
func FromAny(v any) (ParameterValue, error) {
	switch x := v.(type) {
	case nil:
		return NotSet(), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntegerValue(int64(x)), nil
	case int64:
		return IntegerValue(x), nil
	case uint64:
		i, err := toInt64(x)
		if err != nil {
			return NotSet(), err
		}
		return IntegerValue(i), nil
	case float64:
		return DoubleValue(x), nil
	case string:
		return StringValue(x), nil
	case []byte:
		return ByteArrayValue(x), nil
	case []any:
		return arrayFromAny(x)
	}
	return NotSet(), fmt.Errorf("unsupported parameter value %T", v)
}

func arrayFromAny(items []any) (ParameterValue, error) {
	if len(items) == 0 {
		return StringArrayValue(nil), nil
	}
	kind := TypeNotSet
	for _, it := range items {
		var k Type
		switch it.(type) {
		case bool:
			k = TypeBoolArray
		case int, int64, uint64:
			k = TypeIntegerArray
		case float64:
			k = TypeDoubleArray
		case string:
			k = TypeStringArray
		default:
			return NotSet(), fmt.Errorf("unsupported array element %T", it)
		}
		switch {
		case kind == TypeNotSet:
			kind = k
		case kind == k:
		case (kind == TypeIntegerArray && k == TypeDoubleArray) || (kind == TypeDoubleArray && k == TypeIntegerArray):
			kind = TypeDoubleArray
		default:
			return NotSet(), fmt.Errorf("mixed array element types %s and %s", kind, k)
		}
	}
	switch kind {
	case TypeBoolArray:
		out := make([]bool, len(items))
		for i, it := range items {
			out[i] = it.(bool)
		}
		return ParameterValue{typ: kind, bools: out}, nil
	case TypeIntegerArray:
		out := make([]int64, len(items))
		for i, it := range items {
			n, err := toInt64(it)
			if err != nil {
				return NotSet(), err
			}
			out[i] = n
		}
		return ParameterValue{typ: kind, ints: out}, nil
	case TypeDoubleArray:
		out := make([]float64, len(items))
		for i, it := range items {
			if f, ok := it.(float64); ok {
				out[i] = f
				continue
			}
			n, err := toInt64(it)
			if err != nil {
				return NotSet(), err
			}
			out[i] = float64(n)
		}
		return ParameterValue{typ: kind, doubles: out}, nil
	default:
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.(string)
		}
		return ParameterValue{typ: TypeStringArray, strs: out}, nil
	}
}

// toInt64 fails for unsigned values a parameter integer cannot hold.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows a 64-bit signed parameter", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("unsupported integer %T", v)
}
