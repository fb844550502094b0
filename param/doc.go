// Package param implements the dynamically typed side of node parameters:
// a tagged ParameterValue (sum type over the supported value kinds), explicit
// fallible conversions to and from Go types, parameter descriptors, an
// in-memory parameter store with override support, and a loader for YAML
// override files.
//
// Conversions never coerce between kinds: an integer parameter converts to
// any Go integer type, but never to float64 or string.
package param
