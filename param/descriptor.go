package param

import (
	"fmt"
	"math"
)

// IntegerRange constrains integer parameters to [From, To] in Step increments
// (Step 0 means any value in range).
type IntegerRange struct {
	From int64
	To   int64
	Step uint64
}

// FloatingPointRange constrains double parameters to [From, To] in Step
// increments (Step 0 means any value in range).
type FloatingPointRange struct {
	From float64
	To   float64
	Step float64
}

// Descriptor is metadata attached to a parameter at declaration.
type Descriptor struct {
	Name                  string
	Type                  Type
	Description           string
	AdditionalConstraints string
	ReadOnly              bool
	// DynamicTyping allows the value type to change after declaration.
	DynamicTyping      bool
	IntegerRange       *IntegerRange
	FloatingPointRange *FloatingPointRange
}

const rangeTolerance = 1e-9

// validate checks v against the descriptor's ranges.
func (d Descriptor) validate(name string, v ParameterValue) error {
	switch v.typ {
	case TypeInteger:
		if r := d.IntegerRange; r != nil {
			return checkIntegerRange(name, v.i, r)
		}
	case TypeDouble:
		if r := d.FloatingPointRange; r != nil {
			return checkFloatRange(name, v.d, r)
		}
	case TypeIntegerArray:
		if r := d.IntegerRange; r != nil {
			for _, e := range v.ints {
				if err := checkIntegerRange(name, e, r); err != nil {
					return err
				}
			}
		}
	case TypeDoubleArray:
		if r := d.FloatingPointRange; r != nil {
			for _, e := range v.doubles {
				if err := checkFloatRange(name, e, r); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkIntegerRange(name string, v int64, r *IntegerRange) error {
	if v == r.From || v == r.To {
		return nil
	}
	if v < r.From || v > r.To {
		return &RangeError{Name: name, Value: fmt.Sprint(v), Reason: fmt.Sprintf("not in range [%d, %d]", r.From, r.To)}
	}
	if r.Step != 0 && uint64(v-r.From)%r.Step != 0 {
		return &RangeError{Name: name, Value: fmt.Sprint(v), Reason: fmt.Sprintf("not a multiple of step %d from %d", r.Step, r.From)}
	}
	return nil
}

func checkFloatRange(name string, v float64, r *FloatingPointRange) error {
	if math.Abs(v-r.From) < rangeTolerance || math.Abs(v-r.To) < rangeTolerance {
		return nil
	}
	if v < r.From || v > r.To {
		return &RangeError{Name: name, Value: fmt.Sprint(v), Reason: fmt.Sprintf("not in range [%g, %g]", r.From, r.To)}
	}
	if r.Step != 0 {
		steps := (v - r.From) / r.Step
		if math.Abs(steps-math.Round(steps)) > rangeTolerance {
			return &RangeError{Name: name, Value: fmt.Sprint(v), Reason: fmt.Sprintf("not a multiple of step %g from %g", r.Step, r.From)}
		}
	}
	return nil
}

// Declared pairs a default value with its descriptor for batch declaration.
type Declared[T Value] struct {
	Value      T
	Descriptor Descriptor
}
