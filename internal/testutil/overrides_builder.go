package testutil

import "github.com/hupe1980/nodemesh/param"

// OverridesBuilder helps construct parameter override maps with fluent
// chaining for tests.
// Example:
//
//	ov := NewOverridesBuilder().Set("rate", param.IntegerValue(10)).Build()
type OverridesBuilder struct {
	values map[string]param.ParameterValue
}

// NewOverridesBuilder creates an empty builder.
func NewOverridesBuilder() *OverridesBuilder {
	return &OverridesBuilder{values: map[string]param.ParameterValue{}}
}

// Set sets or overwrites one override (chainable).
func (b *OverridesBuilder) Set(name string, v param.ParameterValue) *OverridesBuilder {
	b.values[name] = v
	return b
}

// Build returns a copy of the collected overrides.
func (b *OverridesBuilder) Build() map[string]param.ParameterValue {
	out := make(map[string]param.ParameterValue, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}
