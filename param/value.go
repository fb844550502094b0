package param

import (
	"fmt"
	"slices"
	"strings"
)

// ParameterValue is a tagged union over the supported parameter kinds. The
// zero value is not set. Slices are copied in and out, so a ParameterValue
// is immutable once built.
type ParameterValue struct {
	typ     Type
	b       bool
	i       int64
	d       float64
	s       string
	bytes   []byte
	bools   []bool
	ints    []int64
	doubles []float64
	strs    []string
}

func NotSet() ParameterValue                 { return ParameterValue{} }
func BoolValue(v bool) ParameterValue        { return ParameterValue{typ: TypeBool, b: v} }
func IntegerValue(v int64) ParameterValue    { return ParameterValue{typ: TypeInteger, i: v} }
func DoubleValue(v float64) ParameterValue   { return ParameterValue{typ: TypeDouble, d: v} }
func StringValue(v string) ParameterValue    { return ParameterValue{typ: TypeString, s: v} }
func ByteArrayValue(v []byte) ParameterValue { return ParameterValue{typ: TypeByteArray, bytes: slices.Clone(v)} }
func BoolArrayValue(v []bool) ParameterValue { return ParameterValue{typ: TypeBoolArray, bools: slices.Clone(v)} }
func IntegerArrayValue(v []int64) ParameterValue {
	return ParameterValue{typ: TypeIntegerArray, ints: slices.Clone(v)}
}
func DoubleArrayValue(v []float64) ParameterValue {
	return ParameterValue{typ: TypeDoubleArray, doubles: slices.Clone(v)}
}
func StringArrayValue(v []string) ParameterValue {
	return ParameterValue{typ: TypeStringArray, strs: slices.Clone(v)}
}

// Type returns the tag.
func (v ParameterValue) Type() Type { return v.typ }

// IsSet reports whether the value holds anything.
func (v ParameterValue) IsSet() bool { return v.typ != TypeNotSet }

// Any returns the held value as a plain Go value (nil when not set).
func (v ParameterValue) Any() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInteger:
		return v.i
	case TypeDouble:
		return v.d
	case TypeString:
		return v.s
	case TypeByteArray:
		return slices.Clone(v.bytes)
	case TypeBoolArray:
		return slices.Clone(v.bools)
	case TypeIntegerArray:
		return slices.Clone(v.ints)
	case TypeDoubleArray:
		return slices.Clone(v.doubles)
	case TypeStringArray:
		return slices.Clone(v.strs)
	default:
		return nil
	}
}

// Equal reports whether both values have the same tag and content.
func (v ParameterValue) Equal(o ParameterValue) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNotSet:
		return true
	case TypeBool:
		return v.b == o.b
	case TypeInteger:
		return v.i == o.i
	case TypeDouble:
		return v.d == o.d
	case TypeString:
		return v.s == o.s
	case TypeByteArray:
		return slices.Equal(v.bytes, o.bytes)
	case TypeBoolArray:
		return slices.Equal(v.bools, o.bools)
	case TypeIntegerArray:
		return slices.Equal(v.ints, o.ints)
	case TypeDoubleArray:
		return slices.Equal(v.doubles, o.doubles)
	case TypeStringArray:
		return slices.Equal(v.strs, o.strs)
	}
	return false
}

func (v ParameterValue) String() string {
	switch v.typ {
	case TypeNotSet:
		return "<not set>"
	case TypeString:
		return v.s
	case TypeStringArray:
		return "[" + strings.Join(v.strs, ", ") + "]"
	default:
		return fmt.Sprint(v.Any())
	}
}

// Parameter is a named value.
type Parameter struct {
	Name  string
	Value ParameterValue
}

// NewParameter builds a Parameter from a Go value.
func NewParameter[T Value](name string, v T) Parameter {
	return Parameter{Name: name, Value: ValueOf(v)}
}

// Get converts the parameter's value to T.
func Get[T Value](p Parameter) (T, error) {
	out, err := As[T](p.Value)
	if err != nil {
		var tm *TypeMismatchError
		if asTypeMismatch(err, &tm) {
			tm.Name = p.Name
		}
		return out, err
	}
	return out, nil
}
