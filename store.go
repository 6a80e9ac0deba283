package persist

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"

	modellib "github.com/ygrebnov/model"

	"github.com/ygrebnov/persist/streams"
)

// Registry error categories.
//   - ErrNotRegistered: Save/Load called for a type that was never registered.
//   - ErrRegistrationConflict: Register called again for a type without WithOverwrite.
var (
	ErrNotRegistered        = errors.New("type not registered")
	ErrRegistrationConflict = errors.New("registration conflict")
)

// Registration is the persistence metadata stored for a configuration type:
// where its file lives and in which format it is written.
type Registration struct {
	Dir      string
	FileName string
	Format   Format
}

// Path returns the file the registration points at, joining the directory,
// file name and the format's extension.
func (r Registration) Path() string {
	return filepath.Join(r.Dir, r.FileName+"."+r.Format.Ext())
}

// modelHooks is the subset of model.Model used around a Load.
type modelHooks interface {
	SetDefaults() error
	Validate() error
}

// registration is the internal record; the public Registration plus per-type
// behavior configured at Register time.
type registration struct {
	Registration
	overwrite bool
	envPrefix string
	bindModel func(any) (modelHooks, error)
}

// Store maps configuration types to their registrations and performs the
// save/load round trips. A single Store typically lives for the process
// lifetime and holds one registration per configuration type.
//
// Store is safe for concurrent use; Save and Load against the same path from
// multiple goroutines or processes are not coordinated beyond the atomic
// rename performed on write.
type Store struct {
	mu      sync.RWMutex
	regs    map[reflect.Type]*registration
	streams streams.IOStreams
}

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithStreams wires user-facing message streams for "saved to"/"loaded from"
// notifications. Pass adapters from the companion streams package to route
// output to buffers, logs, or io.Discard. The Store itself only writes to
// Out(); failures are returned as errors, never printed, so ErrOut() is left
// to applications wrapping the Store.
func WithStreams(s streams.IOStreams) StoreOption {
	return func(st *Store) {
		st.streams = s
	}
}

// New constructs an empty Store and applies all given options.
func New(opts ...StoreOption) *Store {
	s := &Store{regs: make(map[reflect.Type]*registration)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures the registration of a single configuration type. Options
// are composable and can be passed to Register in any order.
type Option[T any] func(*registration)

// WithDir sets the directory the configuration file is stored in. Defaults to
// the current working directory. Panics if dir is empty.
func WithDir[T any](dir string) Option[T] {
	return func(r *registration) {
		if dir == "" {
			panic("persist: WithDir: dir cannot be empty")
		}
		r.Dir = dir
	}
}

// WithFileName sets the configuration file name, without extension. Defaults
// to the type's name. Panics if name is empty.
func WithFileName[T any](name string) Option[T] {
	return func(r *registration) {
		if name == "" {
			panic("persist: WithFileName: name cannot be empty")
		}
		r.FileName = name
	}
}

// WithFormat sets the serialization format. Defaults to TOML.
func WithFormat[T any](f Format) Option[T] {
	return func(r *registration) {
		r.Format = f
	}
}

// WithOverwrite allows Register to replace an existing registration for the
// same type. Without it, registering a type twice fails with
// ErrRegistrationConflict.
func WithOverwrite[T any]() Option[T] {
	return func(r *registration) {
		r.overwrite = true
	}
}

// WithEnvPrefix enables environment overrides after a successful Load, e.g.
// "MYAPP" makes a field tagged `env:"PORT"` overridable via MYAPP_PORT.
// Untagged fields use their name in SCREAMING_SNAKE_CASE. Panics if prefix
// is empty.
func WithEnvPrefix[T any](prefix string) Option[T] {
	return func(r *registration) {
		if prefix == "" {
			panic("persist: WithEnvPrefix: prefix cannot be empty")
		}
		r.envPrefix = prefix
	}
}

// ModelInit is a constructor hook that binds a model.Model[T] to the value
// being loaded. Return the constructed model.Model[T] or an error.
type ModelInit[T any] func(*T) (*modellib.Model[T], error)

// WithModel enables integration with github.com/ygrebnov/model. The provided
// init function is called during Load to build a model.Model[T] bound to the
// destination value. Load will then:
//   - call SetDefaults() before reading the file, so file contents only
//     override populated defaults, and
//   - call Validate() after the file and environment overrides are applied.
//
// Panics if init is nil.
func WithModel[T any](init ModelInit[T]) Option[T] {
	return func(r *registration) {
		if init == nil {
			panic("persist: WithModel: init cannot be nil")
		}
		r.bindModel = func(value any) (modelHooks, error) {
			mdl, err := init(value.(*T))
			if err != nil {
				return nil, err
			}
			return mdl, nil
		}
	}
}

// Register stores persistence metadata for type T in s. With no options the
// registration uses the current working directory, the type's name as the
// file name, and TOML. A second Register for the same type fails with
// ErrRegistrationConflict unless WithOverwrite is given.
func Register[T any](s *Store, opts ...Option[T]) error {
	r := &registration{Registration: Registration{Dir: "."}}
	for _, opt := range opts {
		opt(r)
	}

	t := reflect.TypeFor[T]()
	if r.FileName == "" {
		if t.Name() == "" {
			return fmt.Errorf("persist: cannot derive a file name for unnamed type %s; use WithFileName", t)
		}
		r.FileName = t.Name()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.regs[t]; exists && !r.overwrite {
		return fmt.Errorf("%w: %s", ErrRegistrationConflict, t)
	}
	s.regs[t] = r
	return nil
}

// Lookup returns the public registration metadata for value's type, if any.
// Pointer types resolve to their element type, so Lookup(cfg) and
// Lookup(&cfg) are equivalent.
func (s *Store) Lookup(value any) (Registration, bool) {
	t := indirectType(reflect.TypeOf(value))
	if t == nil {
		return Registration{}, false
	}
	if r, ok := s.lookup(t); ok {
		return r.Registration, true
	}
	return Registration{}, false
}

// Save serializes value per its registered format and replaces the registered
// file's contents. Parent directories are created when missing. value may be
// the configuration struct or a pointer to it.
func (s *Store) Save(value any) error {
	t := indirectType(reflect.TypeOf(value))
	if t == nil {
		return fmt.Errorf("%w: nil value", ErrNotRegistered)
	}
	reg, ok := s.lookup(t)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, t)
	}

	data, err := reg.Format.marshal(value)
	if err != nil {
		return err
	}
	path := reg.Path()
	if err := EnsurePath(path); err != nil {
		return errors.Join(ErrEnsureDir, err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	s.note("persist: saved %s to %s", t.Name(), path)
	return nil
}

// Load reads the registered file and deserializes it into value, overwriting
// its fields in place. value must be a non-nil pointer to the registered
// type. A missing file surfaces as an ErrRead wrapping os.ErrNotExist.
func (s *Store) Load(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("persist: Load: destination must be a non-nil pointer, got %T", value)
	}
	// Exactly one indirection: the destination must be *T for a registered T,
	// so the model hook's *T assertion below cannot be reached with anything else.
	t := rv.Type().Elem()
	reg, ok := s.lookup(t)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, t)
	}

	var hooks modelHooks
	if reg.bindModel != nil {
		h, err := reg.bindModel(value)
		if err != nil {
			return err
		}
		hooks = h
		// Apply defaults before the file, so file contents win over them.
		if err := hooks.SetDefaults(); err != nil {
			return err
		}
	}

	path := reg.Path()
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := reg.Format.unmarshal(data, value); err != nil {
		return err
	}
	if reg.envPrefix != "" {
		applyEnv(rv.Elem(), reg.envPrefix, nil)
	}
	if hooks != nil {
		if err := hooks.Validate(); err != nil {
			return err
		}
	}
	s.note("persist: loaded %s from %s", t.Name(), path)
	return nil
}

func (s *Store) lookup(t reflect.Type) (*registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regs[t]
	return r, ok
}

func (s *Store) note(format string, args ...any) {
	if s.streams != nil && s.streams.Out() != nil {
		fmt.Fprintf(s.streams.Out(), format+"\n", args...)
	}
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
