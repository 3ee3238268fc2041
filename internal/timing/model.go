package timing

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/san-kum/pulsetiming/internal/param"
)

// ModelOwner is the owner name reported for top-level parameters.
const ModelOwner = "TimingModel"

const DefaultSpinParam = "F0"

// Model composes ordered components into total delay and phase.
type Model struct {
	Name string

	kinds     []Kind
	buckets   map[Kind]*registry
	topLevel  []*param.Param
	cache     *Cache
	logger    *slog.Logger
	spinParam string

	index    map[string]indexEntry
	warnings []UnparsedRecordWarning
}

type indexEntry struct {
	p     *param.Param
	owner string
	comp  Component
}

type Option func(*Model)

func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithCache enables the scoped computation cache.
func WithCache() Option {
	return func(m *Model) { m.cache = NewCache() }
}

// WithSpinParam names the spin frequency parameter used to scale the
// design matrix.
func WithSpinParam(name string) Option {
	return func(m *Model) { m.spinParam = name }
}

// NewModel creates an empty model holding only the top-level PSR parameter.
func NewModel(name string, opts ...Option) *Model {
	m := &Model{
		Name:      name,
		kinds:     []Kind{DelayKind, PhaseKind},
		buckets:   map[Kind]*registry{DelayKind: {}, PhaseKind: {}},
		logger:    slog.Default(),
		spinParam: DefaultSpinParam,
	}
	for _, opt := range opts {
		opt(m)
	}
	psr := param.NewString("PSR", "Source name", param.WithAliases("PSRJ", "PSRB"))
	if name != "" {
		_ = psr.SetString(name)
	}
	m.topLevel = append(m.topLevel, psr)
	return m
}

func (m *Model) Logger() *slog.Logger { return m.logger }
func (m *Model) Cache() *Cache        { return m.cache }
func (m *Model) SetCache(c *Cache)    { m.cache = c }
func (m *Model) SpinParam() string    { return m.spinParam }

type addOptions struct {
	order    int
	explicit bool
	force    bool
}

type AddOption func(*addOptions)

// AtOrder inserts at an explicit order key. Keys below 1 append.
func AtOrder(order int) AddOption {
	return func(o *addOptions) { o.order, o.explicit = order, order > 0 }
}

// Force adds a component even when its type is already registered.
func Force() AddOption {
	return func(o *addOptions) { o.force = true }
}

// AddComponent registers c in the bucket of its kind, creating the bucket
// for a kind not yet known. Adding a type already present is a logged
// no-op unless Force is given.
func (m *Model) AddComponent(c Component, opts ...AddOption) error {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := c.base()
	if b.parent != nil && b.parent != m {
		return fmt.Errorf("timing: component %s already belongs to model %q", c.Name(), b.parent.Name)
	}

	reg := m.bucket(c.Kind())
	for _, existing := range reg.components() {
		if existing.Name() != c.Name() {
			continue
		}
		m.logger.Warn("component already added", "component", c.Name())
		if !o.force {
			m.logger.Warn("component not added, use force to add a duplicate", "component", c.Name())
			return nil
		}
		break
	}

	for _, p := range b.params {
		for _, n := range p.Names() {
			if e, ok := m.lookup(n); ok {
				return &DuplicateParameterError{Name: n, Owner: e.owner}
			}
		}
	}

	b.parent = m
	reg.add(c, o.order, o.explicit)
	m.invalidate()
	return nil
}

func (m *Model) RemoveComponent(c Component) error {
	for _, k := range m.kinds {
		if m.buckets[k].remove(c) {
			c.base().parent = nil
			m.invalidate()
			return nil
		}
	}
	return &ComponentNotFoundError{Name: c.Name()}
}

func (m *Model) RemoveComponentByName(name string) error {
	c, err := m.Component(name)
	if err != nil {
		return err
	}
	return m.RemoveComponent(c)
}

// ReorderComponent moves c to newOrder within its kind. See registry
// reorder for the swap and shift rules.
func (m *Model) ReorderComponent(c Component, newOrder int, swap bool) error {
	if !m.bucket(c.Kind()).reorder(c, newOrder, swap) {
		return &ComponentNotFoundError{Name: c.Name()}
	}
	m.invalidate()
	return nil
}

// Component returns the first registered component with the given name.
func (m *Model) Component(name string) (Component, error) {
	for _, c := range m.Components() {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, &ComponentNotFoundError{Name: name}
}

// ComponentOrder returns the kind and order key of c.
func (m *Model) ComponentOrder(c Component) (Kind, int, error) {
	for _, k := range m.kinds {
		if o, ok := m.buckets[k].orderOf(c); ok {
			return k, o, nil
		}
	}
	return "", 0, &ComponentNotFoundError{Name: c.Name()}
}

// Components lists every component, kind by kind, each kind in order.
func (m *Model) Components() []Component {
	var out []Component
	for _, k := range m.kinds {
		out = append(out, m.buckets[k].components()...)
	}
	return out
}

func (m *Model) ComponentsOf(kind Kind) []Component {
	if r, ok := m.buckets[kind]; ok {
		return r.components()
	}
	return nil
}

func (m *Model) Orders(kind Kind) []int {
	if r, ok := m.buckets[kind]; ok {
		return r.orders()
	}
	return nil
}

func (m *Model) Kinds() []Kind {
	return append([]Kind(nil), m.kinds...)
}

// ComponentsByCategory groups components by category. The returned slice
// lists categories in first-seen order.
func (m *Model) ComponentsByCategory() (map[string][]Component, []string) {
	groups := make(map[string][]Component)
	var order []string
	for _, c := range m.Components() {
		cat := c.Category()
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], c)
	}
	return groups, order
}

func (m *Model) bucket(kind Kind) *registry {
	r, ok := m.buckets[kind]
	if !ok {
		r = &registry{}
		m.buckets[kind] = r
		m.kinds = append(m.kinds, kind)
	}
	return r
}

// Setup runs every component's post-load validation and joins the errors.
func (m *Model) Setup() error {
	var errs []error
	for _, c := range m.Components() {
		if err := c.Setup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Param resolves a name or alias, case-insensitively, across the model.
func (m *Model) Param(name string) (*param.Param, error) {
	e, ok := m.lookup(name)
	if !ok {
		return nil, &UnknownParameterError{Name: name}
	}
	return e.p, nil
}

// Params lists top-level parameters, then each component's in order.
func (m *Model) Params() []*param.Param {
	out := append([]*param.Param(nil), m.topLevel...)
	for _, c := range m.Components() {
		out = append(out, c.base().params...)
	}
	return out
}

func (m *Model) ParamNames() []string {
	params := m.Params()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// FreeParams lists set, numeric, unfrozen parameter names.
func (m *Model) FreeParams() []string {
	var names []string
	for _, p := range m.Params() {
		if p.Kind().Numeric() && p.IsSet() && !p.Frozen {
			names = append(names, p.Name)
		}
	}
	return names
}

// ParamOwnerMap maps each parameter name to its owning component name,
// or ModelOwner for top-level parameters.
func (m *Model) ParamOwnerMap() map[string]string {
	owners := make(map[string]string)
	for _, p := range m.topLevel {
		owners[p.Name] = ModelOwner
	}
	for _, c := range m.Components() {
		for _, p := range c.base().params {
			owners[p.Name] = c.Name()
		}
	}
	return owners
}

func (m *Model) AddTopLevelParam(p *param.Param) error {
	for _, n := range p.Names() {
		if e, ok := m.lookup(n); ok {
			return &DuplicateParameterError{Name: n, Owner: e.owner}
		}
	}
	m.topLevel = append(m.topLevel, p)
	m.invalidate()
	return nil
}

// AddParamTo attaches p to the named component.
func (m *Model) AddParamTo(component string, p *param.Param) error {
	c, err := m.Component(component)
	if err != nil {
		return err
	}
	return c.base().AddParam(p)
}

// RemoveParam removes a parameter by name or alias from its owner.
func (m *Model) RemoveParam(name string) error {
	e, ok := m.lookup(name)
	if !ok {
		return &UnknownParameterError{Name: name}
	}
	if e.comp != nil {
		return e.comp.base().RemoveParam(e.p.Name)
	}
	for i, p := range m.topLevel {
		if p == e.p {
			m.topLevel = append(m.topLevel[:i], m.topLevel[i+1:]...)
			break
		}
	}
	m.invalidate()
	return nil
}

// PrefixMapping maps index to name for a prefix family across the model.
func (m *Model) PrefixMapping(prefix string) map[int]string {
	mapping := make(map[int]string)
	for _, p := range m.Params() {
		if p.IsPrefix && p.Prefix == prefix {
			mapping[p.Index] = p.Name
		}
	}
	return mapping
}

func (m *Model) ParamsOfKind(kind param.Kind) []string {
	var names []string
	for _, p := range m.Params() {
		if p.Kind() == kind {
			names = append(names, p.Name)
		}
	}
	return names
}

func (m *Model) ParamHelp() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Available parameters for %s\n", m.Name)
	owners := m.ParamOwnerMap()
	for _, p := range m.Params() {
		fmt.Fprintf(&sb, "%s\nLocated in component '%s'\n", p.HelpLine(), owners[p.Name])
	}
	return sb.String()
}

func (m *Model) String() string {
	var sb strings.Builder
	for _, c := range m.Components() {
		fmt.Fprintf(&sb, "In component '%s'\n\n", c.Name())
		for _, p := range c.base().params {
			sb.WriteString(p.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Warnings returns the unparsed records of the last ReadParfile.
func (m *Model) Warnings() []UnparsedRecordWarning {
	return append([]UnparsedRecordWarning(nil), m.warnings...)
}

// lookup resolves through the name index, rebuilt after any mutation.
func (m *Model) lookup(name string) (indexEntry, bool) {
	if m.index == nil {
		m.rebuildIndex()
	}
	e, ok := m.index[strings.ToUpper(name)]
	return e, ok
}

func (m *Model) rebuildIndex() {
	m.index = make(map[string]indexEntry)
	put := func(p *param.Param, owner string, c Component) {
		for _, n := range p.Names() {
			key := strings.ToUpper(n)
			if _, taken := m.index[key]; !taken {
				m.index[key] = indexEntry{p: p, owner: owner, comp: c}
			}
		}
	}
	for _, p := range m.topLevel {
		put(p, ModelOwner, nil)
	}
	for _, c := range m.Components() {
		for _, p := range c.base().params {
			put(p, c.Name(), c)
		}
	}
}

func (m *Model) invalidate() { m.index = nil }
