package param

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeBool, TypeOf[bool]())
	assert.Equal(t, TypeInteger, TypeOf[int]())
	assert.Equal(t, TypeInteger, TypeOf[int32]())
	assert.Equal(t, TypeDouble, TypeOf[float32]())
	assert.Equal(t, TypeString, TypeOf[string]())
	assert.Equal(t, TypeByteArray, TypeOf[[]byte]())
	assert.Equal(t, TypeIntegerArray, TypeOf[[]int]())
	assert.Equal(t, TypeDoubleArray, TypeOf[[]float64]())
	assert.Equal(t, TypeStringArray, TypeOf[[]string]())
}

func TestAs_ConvertsWithinKind(t *testing.T) {
	v := IntegerValue(42)

	i, err := As[int](v)
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	i32, err := As[int32](v)
	require.NoError(t, err)
	assert.Equal(t, int32(42), i32)

	arr, err := As[[]int](ValueOf([]int64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, arr)

	f, err := As[[]float32](ValueOf([]float64{0.5}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, f)
}

func TestAs_NeverCoerces(t *testing.T) {
	tests := []struct {
		name string
		v    ParameterValue
		call func(ParameterValue) error
	}{
		{"integer to double", IntegerValue(1), func(v ParameterValue) error { _, err := As[float64](v); return err }},
		{"double to integer", DoubleValue(1), func(v ParameterValue) error { _, err := As[int64](v); return err }},
		{"string to bool", StringValue("true"), func(v ParameterValue) error { _, err := As[bool](v); return err }},
		{"not set to string", NotSet(), func(v ParameterValue) error { _, err := As[string](v); return err }},
		{"bytes to string array", ByteArrayValue([]byte{1}), func(v ParameterValue) error { _, err := As[[]string](v); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(tt.v)
			var tm *TypeMismatchError
			require.True(t, errors.As(err, &tm))
			assert.Equal(t, tt.v.Type(), tm.Actual)
		})
	}
}

func TestAs_RejectsNarrowingOverflow(t *testing.T) {
	tests := []struct {
		name string
		v    ParameterValue
		call func(ParameterValue) error
	}{
		{"int32 above max", IntegerValue(1 << 40), func(v ParameterValue) error { _, err := As[int32](v); return err }},
		{"int32 below min", IntegerValue(math.MinInt32 - 1), func(v ParameterValue) error { _, err := As[int32](v); return err }},
		{"float32 above max", DoubleValue(math.MaxFloat64), func(v ParameterValue) error { _, err := As[float32](v); return err }},
		{"float32 array element", DoubleArrayValue([]float64{1, -math.MaxFloat64}), func(v ParameterValue) error { _, err := As[[]float32](v); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(tt.v)
			var tm *TypeMismatchError
			require.True(t, errors.As(err, &tm))
			assert.Equal(t, tt.v.Type(), tm.Expected)
			var re *RangeError
			assert.True(t, errors.As(err, &re))
		})
	}

	t.Run("limits convert", func(t *testing.T) {
		i, err := As[int32](IntegerValue(math.MaxInt32))
		require.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), i)

		f, err := As[float32](DoubleValue(math.Inf(1)))
		require.NoError(t, err)
		assert.True(t, math.IsInf(float64(f), 1))
	})
}

func TestValueOf_CopiesSlices(t *testing.T) {
	in := []string{"a", "b"}
	v := ValueOf(in)
	in[0] = "mutated"

	out, err := As[[]string](v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)

	out[1] = "mutated"
	again, _ := As[[]string](v)
	assert.Equal(t, []string{"a", "b"}, again)
}

func TestGet_NamesMismatch(t *testing.T) {
	_, err := Get[string](NewParameter("rate", 10))
	var tm *TypeMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "rate", tm.Name)
	assert.Equal(t, TypeString, tm.Expected)
	assert.Equal(t, TypeInteger, tm.Actual)
}

func TestFromAny(t *testing.T) {
	v, err := FromAny([]any{1, 2.5})
	require.NoError(t, err)
	assert.True(t, v.Equal(DoubleArrayValue([]float64{1, 2.5})))

	v, err = FromAny([]any{true, false})
	require.NoError(t, err)
	assert.Equal(t, TypeBoolArray, v.Type())

	_, err = FromAny([]any{"a", 1})
	assert.Error(t, err)

	_, err = FromAny(map[string]any{})
	assert.Error(t, err)

	v, err = FromAny(uint64(math.MaxInt64))
	require.NoError(t, err)
	assert.True(t, v.Equal(IntegerValue(math.MaxInt64)))

	_, err = FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)

	_, err = FromAny([]any{1, uint64(math.MaxUint64)})
	assert.Error(t, err)
}
