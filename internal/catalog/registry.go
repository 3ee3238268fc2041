// Package catalog maps stable component identifiers to constructors and
// assembles timing models from par files.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/san-kum/pulsetiming/internal/components"
	"github.com/san-kum/pulsetiming/internal/timing"
)

var (
	ErrUnknownComponent   = errors.New("catalog: unknown component")
	ErrDuplicateComponent = errors.New("catalog: component already registered")
)

type Constructor func() timing.Component

type Registry struct {
	ctors map[string]Constructor
	order []string
}

// NewRegistry returns a registry holding the reference components, in the
// order model assembly adds them.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}

	r.mustRegister("SolarShapiro", func() timing.Component { return components.NewSolarShapiro() })
	r.mustRegister("Dispersion", func() timing.Component { return components.NewDispersion() })
	r.mustRegister("ConstantDelay", func() timing.Component { return components.NewConstantDelay("DELAY") })
	r.mustRegister("BinaryCircular", func() timing.Component { return components.NewBinaryCircular() })
	r.mustRegister("Spindown", func() timing.Component { return components.NewSpindown() })
	r.mustRegister("PhaseOffset", func() timing.Component { return components.NewPhaseOffset() })

	return r
}

// Register adds a constructor under name.
func (r *Registry) Register(name string, fn Constructor) error {
	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, name)
	}
	r.ctors[name] = fn
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) mustRegister(name string, fn Constructor) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) New(name string) (timing.Component, error) {
	fn, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	return fn(), nil
}

// Names lists identifiers in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Select constructs every component whose AppliesTo accepts records.
func (r *Registry) Select(records timing.Records) []timing.Component {
	var out []timing.Component
	for _, name := range r.order {
		c := r.ctors[name]()
		if c.AppliesTo(records) {
			out = append(out, c)
		}
	}
	return out
}

// BuildModel reads a par document, adds the components it calls for, and
// loads its values.
func (r *Registry) BuildModel(src io.Reader, opts ...timing.Option) (*timing.Model, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read par file: %w", err)
	}
	records, err := timing.ParseRecords(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	name := records.Value("PSR")
	for _, alias := range []string{"PSRJ", "PSRB"} {
		if name == "" {
			name = records.Value(alias)
		}
	}

	m := timing.NewModel(name, opts...)
	for _, c := range r.Select(records) {
		if err := m.AddComponent(c); err != nil {
			return nil, fmt.Errorf("add %s: %w", c.Name(), err)
		}
	}
	if err := m.ReadParfile(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return m, nil
}
