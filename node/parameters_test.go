package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodemesh/internal/testutil"
	"github.com/hupe1980/nodemesh/param"
)

func TestDeclareParameter(t *testing.T) {
	t.Run("default without override", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		v, err := DeclareParameter(n, "rate", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, v)
		assert.True(t, HasParameter(n, "rate"))

		d, err := DescribeParameter(n, "rate")
		require.NoError(t, err)
		assert.Equal(t, param.TypeInteger, d.Type)
	})

	t.Run("override of the same type wins", func(t *testing.T) {
		n, _ := newTestNode(t, testutil.NewOverridesBuilder().Set("rate", param.IntegerValue(25)).Build())
		v, err := DeclareParameter(n, "rate", 10)
		require.NoError(t, err)
		assert.Equal(t, 25, v)
	})

	t.Run("declaring twice fails", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		_, err := DeclareParameter(n, "rate", 10)
		require.NoError(t, err)

		_, err = DeclareParameter(n, "rate", 20, WithIgnoreOverride())
		var dup *param.DuplicateDeclarationError
		assert.True(t, errors.As(err, &dup))
	})

	t.Run("mismatched override then retry", func(t *testing.T) {
		overrides := testutil.NewOverridesBuilder().Set("frame", param.IntegerValue(3)).Build()
		n, _ := newTestNode(t, overrides)

		_, err := DeclareParameter(n, "frame", "base_link")
		var mismatch *param.TypeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, param.TypeString, mismatch.Expected)
		assert.Equal(t, param.TypeInteger, mismatch.Actual)
		assert.False(t, HasParameter(n, "frame"))

		v, err := DeclareParameter(n, "frame", "base_link", WithIgnoreOverride())
		require.NoError(t, err)
		assert.Equal(t, "base_link", v)
	})

	t.Run("retry with the override type", func(t *testing.T) {
		overrides := testutil.NewOverridesBuilder().Set("frame", param.IntegerValue(3)).Build()
		n, _ := newTestNode(t, overrides)

		_, err := DeclareParameter(n, "frame", "base_link")
		require.Error(t, err)
		v, err := DeclareParameter(n, "frame", int64(0))
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)
	})

	t.Run("descriptor range applies to the default", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		_, err := DeclareParameter(n, "ratio", 2.0, WithDescriptor(param.Descriptor{
			FloatingPointRange: &param.FloatingPointRange{From: 0, To: 1},
		}))
		var rangeErr *param.RangeError
		assert.True(t, errors.As(err, &rangeErr))
	})
}

func TestDeclareTypedParameter(t *testing.T) {
	n, _ := newTestNode(t, testutil.NewOverridesBuilder().
		Set("topics", param.StringArrayValue([]string{"a", "b"})).
		Build())

	v, err := DeclareTypedParameter[[]string](n, "topics")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	_, err = DeclareTypedParameter[float64](n, "gain")
	var noOverride *param.NoOverrideError
	require.True(t, errors.As(err, &noOverride))
	assert.Equal(t, param.TypeDouble, noOverride.Type)
	assert.False(t, HasParameter(n, "gain"))
}

func TestDeclareParameters(t *testing.T) {
	t.Run("namespaced", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		values, err := DeclareParameters(n, "ns", map[string]int{"b": 2, "a": 1})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, values)
		assert.True(t, HasParameter(n, "ns.a"))
		assert.True(t, HasParameter(n, "ns.b"))

		d, err := DescribeParameter(n, "ns.a")
		require.NoError(t, err)
		assert.Equal(t, param.TypeInteger, d.Type)
	})

	t.Run("empty namespace adds no separator", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		_, err := DeclareParameters(n, "", map[string]int{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ListParameters(n, nil, 0).Names)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		_, err := DeclareParameter(n, "ns.b", 0)
		require.NoError(t, err)

		values, err := DeclareParameters(n, "ns", map[string]int{"a": 1, "b": 2, "c": 3})
		var dup *param.DuplicateDeclarationError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, []int{1}, values)
		assert.False(t, HasParameter(n, "ns.c"))
	})

	t.Run("with descriptors", func(t *testing.T) {
		n, _ := newTestNode(t, nil)
		_, err := DeclareParametersWithDescriptors(n, "limits", map[string]param.Declared[float64]{
			"max": {Value: 1.5, Descriptor: param.Descriptor{ReadOnly: true}},
			"min": {Value: 0.5},
		})
		require.NoError(t, err)

		assert.ErrorIs(t, SetParameter(n, "limits.max", 2.0), param.ErrReadOnly)
		require.NoError(t, SetParameter(n, "limits.min", 0.1))

		var lower float64
		found, err := GetParameter(n, "limits.min", &lower)
		require.NoError(t, err)
		assert.True(t, found)
		assert.InDelta(t, 0.1, lower, 1e-12)
	})
}

func TestGetParameter(t *testing.T) {
	n, _ := newTestNode(t, nil)
	_, err := DeclareParameter(n, "name", "talker")
	require.NoError(t, err)

	t.Run("undeclared leaves out untouched", func(t *testing.T) {
		out := "unchanged"
		found, err := GetParameter(n, "missing", &out)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "unchanged", out)
	})

	t.Run("declared", func(t *testing.T) {
		var out string
		found, err := GetParameter(n, "name", &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "talker", out)
	})

	t.Run("wrong type", func(t *testing.T) {
		out := 7
		found, err := GetParameter(n, "name", &out)
		assert.True(t, found)
		var mismatch *param.TypeMismatchError
		assert.True(t, errors.As(err, &mismatch))
		assert.Equal(t, 7, out)
	})

	t.Run("narrowing overflow leaves out untouched", func(t *testing.T) {
		_, err := DeclareParameter(n, "big", int64(1)<<40)
		require.NoError(t, err)

		out := int32(3)
		found, err := GetParameter(n, "big", &out)
		assert.True(t, found)
		var mismatch *param.TypeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "big", mismatch.Name)
		var rangeErr *param.RangeError
		assert.True(t, errors.As(err, &rangeErr))
		assert.Equal(t, int32(3), out)
	})

	t.Run("fallback", func(t *testing.T) {
		var out int
		found, err := GetParameterOr(n, "missing", &out, 42)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, 42, out)

		var name string
		found, err = GetParameterOr(n, "name", &name, "other")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "talker", name)
	})
}

func TestGetParameters(t *testing.T) {
	n, _ := newTestNode(t, nil)
	_, err := DeclareParameters(n, "ns", map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	_, err = DeclareParameter(n, "label", "x")
	require.NoError(t, err)

	values := map[string]int{}
	found, err := GetParameters(n, "ns", values)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, values)

	found, err = GetParameters(n, "other", values)
	require.NoError(t, err)
	assert.False(t, found)

	all := map[string]int{"keep": 9}
	found, err = GetParameters(n, "", all)
	assert.True(t, found)
	var mismatch *param.TypeMismatchError
	assert.True(t, errors.As(err, &mismatch))
	assert.Equal(t, map[string]int{"keep": 9}, all, "a failed conversion merges nothing")
}

func TestSetAndUndeclareParameters(t *testing.T) {
	n, _ := newTestNode(t, nil)
	_, err := DeclareParameters(n, "", map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)

	err = SetParameters(n, param.NewParameter("a", 10), param.NewParameter("b", "wrong"))
	var mismatch *param.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))

	var a int
	_, err = GetParameter(n, "a", &a)
	require.NoError(t, err)
	assert.Equal(t, 1, a, "batch is atomic")

	require.NoError(t, SetParameters(n, param.NewParameter("a", 10), param.NewParameter("b", 20)))
	_, err = GetParameter(n, "a", &a)
	require.NoError(t, err)
	assert.Equal(t, 10, a)

	require.NoError(t, UndeclareParameter(n, "a"))
	assert.False(t, HasParameter(n, "a"))
	assert.ErrorIs(t, UndeclareParameter(n, "a"), param.ErrNotDeclared)
}

func TestPrefixedName(t *testing.T) {
	assert.Equal(t, "key", prefixedName("", "key"))
	assert.Equal(t, "ns.key", prefixedName("ns", "key"))
	assert.Equal(t, "a.b.key", prefixedName("a.b", "key"))
}
