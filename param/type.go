package param

// Type tags the kind of value a ParameterValue holds.
type Type int

const (
	TypeNotSet Type = iota
	TypeBool
	TypeInteger
	TypeDouble
	TypeString
	TypeByteArray
	TypeBoolArray
	TypeIntegerArray
	TypeDoubleArray
	TypeStringArray
)

func (t Type) String() string {
	switch t {
	case TypeNotSet:
		return "not set"
	case TypeBool:
		return "bool"
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeByteArray:
		return "byte_array"
	case TypeBoolArray:
		return "bool_array"
	case TypeIntegerArray:
		return "integer_array"
	case TypeDoubleArray:
		return "double_array"
	case TypeStringArray:
		return "string_array"
	default:
		return "unknown"
	}
}
