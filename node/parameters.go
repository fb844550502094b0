package node

import (
	"maps"
	"slices"

	"github.com/hupe1980/nodemesh/logging"
	"github.com/hupe1980/nodemesh/param"
)

type declareOptions struct {
	descriptor     param.Descriptor
	ignoreOverride bool
}

// DeclareOption configures a parameter declaration.
type DeclareOption func(o *declareOptions)

// WithDescriptor attaches descriptor metadata to the declaration.
func WithDescriptor(d param.Descriptor) DeclareOption {
	return func(o *declareOptions) { o.descriptor = d }
}

// WithIgnoreOverride bypasses any override supplied for the parameter.
func WithIgnoreOverride() DeclareOption {
	return func(o *declareOptions) { o.ignoreOverride = true }
}

func applyDeclareOptions(optFns []DeclareOption) declareOptions {
	var o declareOptions
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// prefixedName joins a namespace and a key; an empty namespace adds no
// separator.
func prefixedName(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + "." + key
}

// DeclareParameter declares name with the type of defaultValue and returns
// the effective value: the override when one of the same type exists, the
// default otherwise. An override of another type fails with
// *param.TypeMismatchError unless WithIgnoreOverride is given; declaring a
// name twice fails with *param.DuplicateDeclarationError.
func DeclareParameter[T param.Value](n *LifecycleNode, name string, defaultValue T, optFns ...DeclareOption) (T, error) {
	o := applyDeclareOptions(optFns)
	def := param.ValueOf(defaultValue)
	v, err := n.params.Declare(name, def, o.descriptor, o.ignoreOverride)
	logging.ParameterDeclared(n.logger, name, def.Type().String(), err == nil && !v.Equal(def), err)
	if err != nil {
		var zero T
		return zero, err
	}
	return param.Get[T](param.Parameter{Name: name, Value: v})
}

// DeclareTypedParameter declares name with the type of T and no default. The
// value must come from an override of that type; without one it fails with
// *param.NoOverrideError.
func DeclareTypedParameter[T param.Value](n *LifecycleNode, name string, optFns ...DeclareOption) (T, error) {
	o := applyDeclareOptions(optFns)
	t := param.TypeOf[T]()
	v, err := n.params.DeclareType(name, t, o.descriptor, o.ignoreOverride)
	logging.ParameterDeclared(n.logger, name, t.String(), err == nil, err)
	if err != nil {
		var zero T
		return zero, err
	}
	return param.Get[T](param.Parameter{Name: name, Value: v})
}

// DeclareParameters declares every entry of values under namespace in sorted
// key order and returns the effective values in that order. It stops at the
// first failure, returning the values declared so far.
func DeclareParameters[T param.Value](n *LifecycleNode, namespace string, values map[string]T) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, key := range slices.Sorted(maps.Keys(values)) {
		v, err := DeclareParameter(n, prefixedName(namespace, key), values[key])
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DeclareParametersWithDescriptors is DeclareParameters applying each
// entry's descriptor.
func DeclareParametersWithDescriptors[T param.Value](n *LifecycleNode, namespace string, values map[string]param.Declared[T]) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, key := range slices.Sorted(maps.Keys(values)) {
		d := values[key]
		v, err := DeclareParameter(n, prefixedName(namespace, key), d.Value, WithDescriptor(d.Descriptor))
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetParameter stores the value of name in out and reports whether name is
// declared. out is left untouched when name is unknown or its value does not
// convert to T, in which case *param.TypeMismatchError is returned.
func GetParameter[T param.Value](n *LifecycleNode, name string, out *T) (bool, error) {
	p, ok := n.params.Get(name)
	if !ok {
		return false, nil
	}
	v, err := param.Get[T](p)
	if err != nil {
		return true, err
	}
	*out = v
	return true, nil
}

// GetParameterOr is GetParameter storing fallback in out when name is not
// declared.
func GetParameterOr[T param.Value](n *LifecycleNode, name string, out *T, fallback T) (bool, error) {
	found, err := GetParameter(n, name, out)
	if !found {
		*out = fallback
	}
	return found, err
}

// GetParameters merges every parameter under prefix into values, keyed by
// name with the prefix stripped (all parameters when prefix is empty). It
// reports false when nothing matched. Either every match converts to T and
// is merged, or values is left untouched.
func GetParameters[T param.Value](n *LifecycleNode, prefix string, values map[string]T) (bool, error) {
	params, ok := n.params.GetByPrefix(prefix)
	if !ok {
		return false, nil
	}
	converted := make(map[string]T, len(params))
	for key, p := range params {
		v, err := param.Get[T](p)
		if err != nil {
			return true, err
		}
		converted[key] = v
	}
	maps.Copy(values, converted)
	return true, nil
}

// SetParameter assigns a new value to a declared parameter.
func SetParameter[T param.Value](n *LifecycleNode, name string, value T) error {
	return n.params.Set(param.NewParameter(name, value))
}

// SetParameters assigns several values atomically.
func SetParameters(n *LifecycleNode, params ...param.Parameter) error {
	return n.params.Set(params...)
}

// UndeclareParameter removes a declared parameter.
func UndeclareParameter(n *LifecycleNode, name string) error {
	return n.params.Undeclare(name)
}

// HasParameter reports whether name is declared.
func HasParameter(n *LifecycleNode, name string) bool {
	return n.params.Has(name)
}

// ListParameters lists declared names below prefixes, up to depth levels.
func ListParameters(n *LifecycleNode, prefixes []string, depth int) param.ListResult {
	return n.params.List(prefixes, depth)
}

// DescribeParameter returns the descriptor of a declared parameter.
func DescribeParameter(n *LifecycleNode, name string) (param.Descriptor, error) {
	return n.params.Describe(name)
}
