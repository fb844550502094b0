package core

import "fmt"

var (
	// ErrInvalidName is returned when a topic, service or node name is malformed.
	ErrInvalidName = fmt.Errorf("invalid name")
	// ErrNameConflict is returned when a name is already taken by an
	// incompatible entity (for example a second server for one service).
	ErrNameConflict = fmt.Errorf("name conflict")
	// ErrTypeConflict is returned when a topic or service is already bound to
	// a different payload type.
	ErrTypeConflict = fmt.Errorf("type conflict")
	// ErrUnsupportedType is returned when a runtime type name has no registered
	// type support.
	ErrUnsupportedType = fmt.Errorf("unsupported type")
	// ErrInvalidArgument is returned for option values that cannot be honored.
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	// ErrClosed is returned by operations on closed handles or transports.
	ErrClosed = fmt.Errorf("closed")
)

// TransportConstructionError reports that the transport collaborator refused
// to build an endpoint. Factories return it unchanged.
type TransportConstructionError struct {
	Kind     EntityKind
	Name     string
	TypeName string
	Err      error
}

func (e *TransportConstructionError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("cannot create %s %q [%s]: %v", e.Kind, e.Name, e.TypeName, e.Err)
	}
	return fmt.Sprintf("cannot create %s %q: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportConstructionError) Unwrap() error { return e.Err }

// NewTransportConstructionError builds a TransportConstructionError.
func NewTransportConstructionError(kind EntityKind, name, typeName string, err error) *TransportConstructionError {
	return &TransportConstructionError{Kind: kind, Name: name, TypeName: typeName, Err: err}
}
