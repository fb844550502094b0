package param

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/nodemesh/logging"
)

// OnSetCallback validates a batch of parameter changes before they are
// applied. Returning an error rejects the whole batch.
type OnSetCallback func(params []Parameter) error

// StoreOptions configures a Store.
type StoreOptions struct {
	// Overrides replace defaults at declaration time, keyed by parameter name.
	Overrides map[string]ParameterValue
	// AllowUndeclared lets Set create dynamically typed parameters implicitly.
	AllowUndeclared bool
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

type entry struct {
	value      ParameterValue
	descriptor Descriptor
}

// Store is a process local, dynamically typed parameter store. It is safe
// for concurrent access. Values handed out are immutable ParameterValues, so
// callers never share mutable state with the store.
type Store struct {
	mu              sync.RWMutex
	params          map[string]*entry
	overrides       map[string]ParameterValue
	allowUndeclared bool
	callbacks       map[int]OnSetCallback
	nextCallback    int
	logger          logging.Logger
}

// NewStore constructs an empty store.
func NewStore(optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	overrides := make(map[string]ParameterValue, len(opts.Overrides))
	maps.Copy(overrides, opts.Overrides)
	return &Store{
		params:          make(map[string]*entry),
		overrides:       overrides,
		allowUndeclared: opts.AllowUndeclared,
		callbacks:       make(map[int]OnSetCallback),
		logger:          logging.OrNoOp(opts.Logger),
	}
}

// Overrides returns a copy of the configured overrides.
func (s *Store) Overrides() map[string]ParameterValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.overrides)
}

// Declare declares name with a default value whose tag fixes the parameter
// type. An override for name replaces the default unless ignoreOverride is
// set; an override of a different type fails with *TypeMismatchError unless
// the descriptor enables dynamic typing.
func (s *Store) Declare(name string, defaultValue ParameterValue, d Descriptor, ignoreOverride bool) (ParameterValue, error) {
	return s.declare(name, defaultValue.typ, defaultValue, d, ignoreOverride)
}

// DeclareType declares name with a fixed type and no default. The value must
// come from an override; otherwise *NoOverrideError is returned.
func (s *Store) DeclareType(name string, t Type, d Descriptor, ignoreOverride bool) (ParameterValue, error) {
	if t == TypeNotSet {
		return NotSet(), fmt.Errorf("declare %q: %w", name, &TypeMismatchError{Name: name, Expected: TypeNotSet, Actual: TypeNotSet})
	}
	return s.declare(name, t, NotSet(), d, ignoreOverride)
}

func (s *Store) declare(name string, t Type, defaultValue ParameterValue, d Descriptor, ignoreOverride bool) (ParameterValue, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return NotSet(), fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.params[name]; exists {
		return NotSet(), &DuplicateDeclarationError{Name: name}
	}

	d.Name = name
	if !d.DynamicTyping {
		d.Type = t
	}

	value := defaultValue
	if !ignoreOverride {
		if ov, ok := s.overrides[name]; ok {
			value = ov
		}
	}

	if !d.DynamicTyping {
		if !value.IsSet() {
			return NotSet(), &NoOverrideError{Name: name, Type: t}
		}
		if value.typ != t {
			return NotSet(), &TypeMismatchError{Name: name, Expected: t, Actual: value.typ}
		}
	}
	if err := d.validate(name, value); err != nil {
		return NotSet(), err
	}
	if err := s.runCallbacksLocked([]Parameter{{Name: name, Value: value}}); err != nil {
		return NotSet(), err
	}

	s.params[name] = &entry{value: value, descriptor: d}
	return value, nil
}

// Undeclare removes a declared, writable parameter.
func (s *Store) Undeclare(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.params[name]
	if !ok {
		return fmt.Errorf("undeclare %q: %w", name, ErrNotDeclared)
	}
	if e.descriptor.ReadOnly {
		return fmt.Errorf("undeclare %q: %w", name, ErrReadOnly)
	}
	delete(s.params, name)
	return nil
}

// Has reports whether name is declared.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.params[name]
	return ok
}

// Get returns the declared parameter named name.
func (s *Store) Get(name string) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.params[name]
	if !ok {
		return Parameter{}, false
	}
	return Parameter{Name: name, Value: e.value}, true
}

// GetByPrefix returns every parameter under prefix + "." keyed by the name
// with that prefix stripped; an empty prefix returns all parameters. The
// result is false when nothing matched.
func (s *Store) GetByPrefix(prefix string) (map[string]Parameter, bool) {
	withDot := prefix
	if prefix != "" {
		withDot = prefix + "."
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Parameter)
	for name, e := range s.params {
		if !strings.HasPrefix(name, withDot) {
			continue
		}
		out[name[len(withDot):]] = Parameter{Name: name, Value: e.value}
	}
	return out, len(out) > 0
}

// Describe returns the descriptor of a declared parameter.
func (s *Store) Describe(name string) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.params[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("describe %q: %w", name, ErrNotDeclared)
	}
	return e.descriptor, nil
}

// Set assigns new values atomically: either every parameter is updated or
// none is.
func (s *Store) Set(params ...Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]*entry, len(params))
	for _, p := range params {
		e, ok := s.params[p.Name]
		if !ok {
			if !s.allowUndeclared {
				return fmt.Errorf("set %q: %w", p.Name, ErrNotDeclared)
			}
			staged[p.Name] = &entry{value: p.Value, descriptor: Descriptor{Name: p.Name, Type: p.Value.typ, DynamicTyping: true}}
			continue
		}
		d := e.descriptor
		if d.ReadOnly {
			return fmt.Errorf("set %q: %w", p.Name, ErrReadOnly)
		}
		if !d.DynamicTyping && p.Value.typ != d.Type {
			return &TypeMismatchError{Name: p.Name, Expected: d.Type, Actual: p.Value.typ}
		}
		if err := d.validate(p.Name, p.Value); err != nil {
			return err
		}
		if d.DynamicTyping {
			d.Type = p.Value.typ
		}
		staged[p.Name] = &entry{value: p.Value, descriptor: d}
	}
	if err := s.runCallbacksLocked(params); err != nil {
		return err
	}
	maps.Copy(s.params, staged)
	return nil
}

// AddOnSetCallback registers a validation callback and returns a function
// removing it.
func (s *Store) AddOnSetCallback(cb OnSetCallback) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextCallback
	s.nextCallback++
	s.callbacks[id] = cb
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.callbacks, id)
	}
}

// runCallbacksLocked runs every on-set callback; caller must hold the write
// lock. Callbacks must not call back into the store.
func (s *Store) runCallbacksLocked(params []Parameter) error {
	ids := slices.Sorted(maps.Keys(s.callbacks))
	for _, id := range ids {
		if err := s.callbacks[id](params); err != nil {
			s.logger.Debug("parameter change rejected", "error", err.Error())
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}
	return nil
}

// ListResult holds the outcome of List.
type ListResult struct {
	Names    []string
	Prefixes []string
}

// List returns parameter names below the given prefixes (all when empty),
// up to depth dot-separated levels below the prefix (0 means unlimited).
func (s *Store) List(prefixes []string, depth int) ListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res ListResult
	seenPrefix := map[string]bool{}
	for _, name := range slices.Sorted(maps.Keys(s.params)) {
		rel, ok := relativeTo(name, prefixes)
		if !ok {
			continue
		}
		if depth > 0 && strings.Count(rel, ".") >= depth {
			continue
		}
		res.Names = append(res.Names, name)
		if i := strings.LastIndex(name, "."); i > 0 {
			p := name[:i]
			if !seenPrefix[p] {
				seenPrefix[p] = true
				res.Prefixes = append(res.Prefixes, p)
			}
		}
	}
	return res
}

func relativeTo(name string, prefixes []string) (string, bool) {
	if len(prefixes) == 0 {
		return name, true
	}
	for _, p := range prefixes {
		if name == p {
			return "", true
		}
		if strings.HasPrefix(name, p+".") {
			return name[len(p)+1:], true
		}
	}
	return "", false
}
