package timing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/phase"
)

// Kind is the registry bucket a component lives in.
type Kind string

const (
	DelayKind Kind = "DelayComponent"
	PhaseKind Kind = "PhaseComponent"
)

// DelayFunc returns a per-observation delay in seconds. acc is the delay
// accumulated by the components ordered before this one and must not be
// modified.
type DelayFunc func(ev *Eval, acc []float64) ([]float64, error)

// PhaseFunc returns a phase contribution given the total delay.
type PhaseFunc func(ev *Eval, delay []float64) (phase.Phase, error)

// DerivFunc returns the derivative of a delay (s per parameter unit) or
// phase (cycles per parameter unit) contribution with respect to the named
// parameter. delay is the total delay when the caller has it, else nil.
type DerivFunc func(ev *Eval, name string, delay []float64) ([]float64, error)

// PhaseDelayDerivFunc returns the derivative of a phase contribution with
// respect to delay, in cycles per second.
type PhaseDelayDerivFunc func(ev *Eval, delay []float64) ([]float64, error)

// Component is a pluggable physics module. Implementations embed *Base,
// which also seals the interface, and override Setup and AppliesTo as
// needed.
type Component interface {
	Name() string
	Category() string
	Kind() Kind
	Params() []*param.Param
	// Setup validates parameters once a par file has been read.
	Setup() error
	// AppliesTo reports whether a par file's records call for this
	// component.
	AppliesTo(records Records) bool

	base() *Base
}

// PrefixFactory creates the members of a prefix family for one index.
type PrefixFactory func(index int) []*param.Param

type prefixFamily struct {
	prefixes []string
	factory  PrefixFactory
}

// Base holds the parameters and registered functions of one component.
type Base struct {
	name     string
	category string
	kind     Kind

	params           []*param.Param
	derivs           map[string][]DerivFunc
	delayFuncs       []DelayFunc
	phaseFuncs       []PhaseFunc
	phaseDelayDerivs []PhaseDelayDerivFunc
	special          []string
	families         []prefixFamily

	parent *Model
}

func NewBase(name, category string, kind Kind) *Base {
	return &Base{
		name:     name,
		category: category,
		kind:     kind,
		derivs:   make(map[string][]DerivFunc),
	}
}

func (b *Base) Name() string     { return b.name }
func (b *Base) Category() string { return b.category }
func (b *Base) Kind() Kind       { return b.kind }
func (b *Base) Setup() error     { return nil }
func (b *Base) base() *Base      { return b }

// Model returns the owning model, or nil when detached.
func (b *Base) Model() *Model { return b.parent }

func (b *Base) Params() []*param.Param {
	return append([]*param.Param(nil), b.params...)
}

func (b *Base) ParamNames() []string {
	names := make([]string, len(b.params))
	for i, p := range b.params {
		names[i] = p.Name
	}
	return names
}

// Param resolves a name or alias among this component's own parameters.
func (b *Base) Param(name string) (*param.Param, bool) {
	for _, p := range b.params {
		if p.Matches(name) {
			return p, true
		}
	}
	return nil, false
}

// AddParam attaches p. Its name and aliases must be unused across the
// owning model, or across this component when detached.
func (b *Base) AddParam(p *param.Param) error {
	for _, n := range p.Names() {
		if b.parent != nil {
			if e, ok := b.parent.lookup(n); ok {
				return &DuplicateParameterError{Name: n, Owner: e.owner}
			}
		} else if _, ok := b.Param(n); ok {
			return &DuplicateParameterError{Name: n, Owner: b.name}
		}
	}
	b.params = append(b.params, p)
	b.invalidate()
	return nil
}

// RemoveParam detaches a parameter by name or alias and forgets its
// derivatives and special marking.
func (b *Base) RemoveParam(name string) error {
	p, ok := b.Param(name)
	if !ok {
		return &UnknownParameterError{Name: name}
	}
	for i, q := range b.params {
		if q == p {
			b.params = append(b.params[:i], b.params[i+1:]...)
			break
		}
	}

	drop := make(map[string]bool)
	for _, n := range p.Names() {
		drop[strings.ToUpper(n)] = true
	}
	kept := b.special[:0]
	for _, s := range b.special {
		if !drop[strings.ToUpper(s)] {
			kept = append(kept, s)
		}
	}
	b.special = kept
	delete(b.derivs, p.Name)
	b.invalidate()
	return nil
}

// RegisterDerivative appends fn to the derivative functions of the named
// parameter. Several functions for one parameter are summed.
func (b *Base) RegisterDerivative(name string, fn DerivFunc) error {
	p, ok := b.Param(name)
	if !ok {
		return &UnknownParameterError{Name: name}
	}
	b.derivs[p.Name] = append(b.derivs[p.Name], fn)
	return nil
}

func (b *Base) AddDelayFunc(fn DelayFunc) { b.delayFuncs = append(b.delayFuncs, fn) }
func (b *Base) AddPhaseFunc(fn PhaseFunc) { b.phaseFuncs = append(b.phaseFuncs, fn) }

func (b *Base) RegisterPhaseDelayDerivative(fn PhaseDelayDerivFunc) {
	b.phaseDelayDerivs = append(b.phaseDelayDerivs, fn)
}

// HasDerivative reports whether a derivative is registered for name.
func (b *Base) HasDerivative(name string) bool {
	p, ok := b.Param(name)
	return ok && len(b.derivs[p.Name]) > 0
}

// SetSpecialParams marks parameters, and all their aliases, as special.
func (b *Base) SetSpecialParams(names ...string) error {
	for _, n := range names {
		p, ok := b.Param(n)
		if !ok {
			return &UnknownParameterError{Name: n}
		}
		for _, alias := range p.Names() {
			if !containsFold(b.special, alias) {
				b.special = append(b.special, alias)
			}
		}
	}
	return nil
}

func (b *Base) SpecialParams() []string {
	return append([]string(nil), b.special...)
}

// DeclarePrefixFamily registers a factory for parameters created the first
// time a par file names a new index of any of the prefixes.
func (b *Base) DeclarePrefixFamily(prefixes []string, factory PrefixFactory) {
	b.families = append(b.families, prefixFamily{prefixes: prefixes, factory: factory})
}

func (b *Base) family(prefix string) (PrefixFactory, bool) {
	for _, f := range b.families {
		if containsFold(f.prefixes, prefix) {
			return f.factory, true
		}
	}
	return nil, false
}

// PrefixMapping maps index to parameter name for one prefix family.
func (b *Base) PrefixMapping(prefix string) map[int]string {
	mapping := make(map[int]string)
	for _, p := range b.params {
		if p.IsPrefix && p.Prefix == prefix {
			mapping[p.Index] = p.Name
		}
	}
	return mapping
}

// PrefixIndices returns the sorted indices present for a prefix.
func (b *Base) PrefixIndices(prefix string) []int {
	mapping := b.PrefixMapping(prefix)
	indices := make([]int, 0, len(mapping))
	for i := range mapping {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

func (b *Base) ParamsOfKind(kind param.Kind) []string {
	var names []string
	for _, p := range b.params {
		if p.Kind() == kind {
			names = append(names, p.Name)
		}
	}
	return names
}

// AppliesTo is true when any owned name, alias, or family prefix appears
// among the records.
func (b *Base) AppliesTo(records Records) bool {
	for _, p := range b.params {
		for _, n := range p.Names() {
			if records.Has(n) {
				return true
			}
		}
	}
	for key := range records {
		prefix, _, err := param.SplitPrefixedName(key)
		if err != nil {
			continue
		}
		if _, ok := b.family(prefix); ok {
			return true
		}
	}
	return false
}

// Require returns a MissingParameterError for the first unset name.
func (b *Base) Require(names ...string) error {
	for _, n := range names {
		p, ok := b.Param(n)
		if !ok || !p.IsSet() {
			return &MissingParameterError{Component: b.name, Param: n}
		}
	}
	return nil
}

func (b *Base) ParamHelp() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Available parameters for %s\n", b.name)
	for _, p := range b.params {
		sb.WriteString(p.HelpLine())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintPar renders every set parameter as par-file records.
func (b *Base) PrintPar() string {
	var sb strings.Builder
	for _, p := range b.params {
		sb.WriteString(p.ToText())
	}
	return sb.String()
}

func (b *Base) invalidate() {
	if b.parent != nil {
		b.parent.invalidate()
	}
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
