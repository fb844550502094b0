package core

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Named lets a message type choose its runtime type identifier.
type Named interface {
	MessageTypeName() string
}

// NamedService lets a request type choose its service type identifier.
type NamedService interface {
	ServiceTypeName() string
}

// TypeSupport bridges a Go payload type and its runtime type identifier.
// Typed factories obtain it from the Go type; generic factories look it up by
// name. Payloads are encoded with msgpack.
type TypeSupport struct {
	Name   string
	GoType reflect.Type
	// New returns a pointer to a zero value of GoType.
	New       func() any
	Marshal   func(v any) ([]byte, error)
	Unmarshal func(data []byte, v any) error
}

// Serialize encodes v into a SerializedMessage.
func (ts *TypeSupport) Serialize(v any) (*SerializedMessage, error) {
	data, err := ts.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", ts.Name, err)
	}
	return &SerializedMessage{TypeName: ts.Name, Data: data}, nil
}

// ServiceTypeSupport pairs request and response type support.
type ServiceTypeSupport struct {
	Name     string
	Request  *TypeSupport
	Response *TypeSupport
}

// TypeRegistry maps runtime type identifiers to type support. It is safe for
// concurrent use.
type TypeRegistry struct {
	mu       sync.RWMutex
	byName   map[string]*TypeSupport
	byType   map[reflect.Type]*TypeSupport
	services map[string]*ServiceTypeSupport
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byName:   make(map[string]*TypeSupport),
		byType:   make(map[reflect.Type]*TypeSupport),
		services: make(map[string]*ServiceTypeSupport),
	}
}

// DefaultTypeRegistry is used by the typed factories and the default transport.
var DefaultTypeRegistry = NewTypeRegistry()

// Lookup returns the type support registered under name.
func (r *TypeRegistry) Lookup(name string) (*TypeSupport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.byName[name]
	return ts, ok
}

// LookupService returns the service type support registered under name.
func (r *TypeRegistry) LookupService(name string) (*ServiceTypeSupport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sts, ok := r.services[name]
	return sts, ok
}

// Names returns every registered message type name.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}

func (r *TypeRegistry) register(name string, t reflect.Type) (*TypeSupport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.byName[name]; ok {
		if ts.GoType != t {
			return nil, fmt.Errorf("%w: %s already bound to %s", ErrTypeConflict, name, ts.GoType)
		}
		return ts, nil
	}
	if ts, ok := r.byType[t]; ok {
		return ts, nil
	}
	ts := newTypeSupport(name, t)
	r.byName[name] = ts
	r.byType[t] = ts
	return ts, nil
}

func (r *TypeRegistry) byGoType(t reflect.Type) (*TypeSupport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.byType[t]
	return ts, ok
}

func newTypeSupport(name string, t reflect.Type) *TypeSupport {
	return &TypeSupport{
		Name:   name,
		GoType: t,
		New:    func() any { return reflect.New(t).Interface() },
		Marshal: func(v any) ([]byte, error) {
			return msgpack.Marshal(v)
		},
		Unmarshal: func(data []byte, v any) error {
			return msgpack.Unmarshal(data, v)
		},
	}
}

// RegisterType binds M to name in r. Registering the same pair twice is a
// no-op; binding a name to a second Go type fails with ErrTypeConflict.
func RegisterType[M any](r *TypeRegistry, name string) (*TypeSupport, error) {
	return r.register(name, reflect.TypeFor[M]())
}

// TypeSupportFor returns the type support of M from the default registry,
// registering it under its derived name on first use.
func TypeSupportFor[M any]() (*TypeSupport, error) {
	t := reflect.TypeFor[M]()
	if ts, ok := DefaultTypeRegistry.byGoType(t); ok {
		return ts, nil
	}
	return DefaultTypeRegistry.register(TypeNameOf[M](), t)
}

// ServiceTypeSupportFor returns the service type support for the Req/Resp
// pair, registering it on first use.
func ServiceTypeSupportFor[Req, Resp any]() (*ServiceTypeSupport, error) {
	req, err := TypeSupportFor[Req]()
	if err != nil {
		return nil, err
	}
	resp, err := TypeSupportFor[Resp]()
	if err != nil {
		return nil, err
	}
	name := serviceTypeNameOf[Req]()

	r := DefaultTypeRegistry
	r.mu.Lock()
	defer r.mu.Unlock()
	if sts, ok := r.services[name]; ok {
		if sts.Request != req || sts.Response != resp {
			return nil, fmt.Errorf("%w: service %s already bound to %s/%s", ErrTypeConflict, name, sts.Request.GoType, sts.Response.GoType)
		}
		return sts, nil
	}
	sts := &ServiceTypeSupport{Name: name, Request: req, Response: resp}
	r.services[name] = sts
	return sts, nil
}

// TypeNameOf derives the runtime type identifier of M. Types implementing
// Named choose their own; otherwise the name is "<package>/msg/<Type>".
// Pointer types are named after their element type.
func TypeNameOf[M any]() string {
	t := elemType(reflect.TypeFor[M]())
	if n, ok := reflect.New(t).Interface().(Named); ok {
		return n.MessageTypeName()
	}
	return derivedName(t, "msg")
}

func serviceTypeNameOf[Req any]() string {
	t := elemType(reflect.TypeFor[Req]())
	if n, ok := reflect.New(t).Interface().(NamedService); ok {
		return n.ServiceTypeName()
	}
	name := derivedName(t, "srv")
	name = strings.TrimSuffix(name, "_Request")
	return strings.TrimSuffix(name, "Request")
}

// elemType strips pointer indirections so naming methods are called on a
// non-nil receiver.
func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func derivedName(t reflect.Type, kind string) string {
	pkg := t.PkgPath()
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	if pkg == "" {
		pkg = "builtin"
	}
	name := t.Name()
	if name == "" {
		name = strings.NewReplacer("[", "_", "]", "_", " ", "", "*", "").Replace(t.String())
	}
	return pkg + "/" + kind + "/" + name
}
