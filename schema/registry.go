package schema

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/syssam/sqldao/dialect"
)

// Registry builds and caches Entity metadata per entity type. Reads are
// lock-free; construction of a missing entry is serialized so concurrent
// first accesses observe the same instance. A Registry is safe for
// concurrent use.
type Registry struct {
	caps   dialect.Capabilities
	naming Naming
	log    *slog.Logger

	mu       sync.Mutex
	entities sync.Map // reflect.Type => *Entity
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNaming sets the naming strategy for undeclared table and column names.
func WithNaming(n Naming) RegistryOption {
	return func(r *Registry) {
		r.naming = n
	}
}

// WithPluralTables pluralizes derived table names, e.g. Account to ACCOUNTS.
func WithPluralTables() RegistryOption {
	return WithNaming(DefaultNaming{Plural: true})
}

// WithLogger sets the logger used to report metadata construction.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// NewRegistry returns a Registry resolving generation strategies against caps.
func NewRegistry(caps dialect.Capabilities, opts ...RegistryOption) *Registry {
	r := &Registry{
		caps:   caps,
		naming: DefaultNaming{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capabilities returns the dialect capabilities of the registry.
func (r *Registry) Capabilities() dialect.Capabilities {
	return r.caps
}

// Entity returns the metadata of the given struct type (or pointer to
// struct type), building it on first access. Configuration errors are
// not cached and are returned on every call.
func (r *Registry) Entity(t reflect.Type) (*Entity, error) {
	if t == nil {
		return nil, NewConfigError("", "", "nil entity type", nil)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := r.entities.Load(t); ok {
		return e.(*Entity), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entities.Load(t); ok {
		return e.(*Entity), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, NewConfigError(t.String(), "", "entity type is not a struct", nil)
	}
	def, static := describe(t)
	if !static {
		var err error
		if def, err = DefinitionOf(t); err != nil {
			return nil, NewConfigError(t.Name(), "", "", err)
		}
	}
	e, err := r.build(t, def)
	if err != nil {
		return nil, err
	}
	r.entities.Store(t, e)
	r.log.Debug("entity metadata built",
		"entity", t.Name(), "table", e.QualifiedTable(), "columns", len(e.columns), "static", static)
	return e, nil
}

// Of returns the metadata of T.
func Of[T any](r *Registry) (*Entity, error) {
	return r.Entity(reflect.TypeFor[T]())
}

// MustOf is like Of but panics on error.
func MustOf[T any](r *Registry) *Entity {
	e, err := Of[T](r)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return e
}

// Len returns the number of cached entities.
func (r *Registry) Len() int {
	n := 0
	r.entities.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear evicts all cached metadata. Subsequent accesses build new
// instances.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities.Clear()
	r.log.Debug("entity metadata cache cleared")
}
