package param

import (
	"fmt"
	"strings"
)

// Kind is the value type a parameter is fixed to at construction.
type Kind int

const (
	Float Kind = iota
	MJD
	Angle
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case MJD:
		return "mjd"
	case Angle:
		return "angle"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Numeric reports whether values of this kind can be differentiated.
func (k Kind) Numeric() bool {
	return k == Float || k == MJD || k == Angle
}

// Param is a named, unit-tagged timing model value. Angles are held in
// degrees, epochs in MJD days.
type Param struct {
	Name        string
	Aliases     []string
	Units       string
	Description string
	Frozen      bool
	Uncertainty float64

	IsPrefix bool
	Prefix   string
	Index    int

	kind Kind
	set  bool
	num  float64
	str  string
	flag bool
}

type Option func(*Param)

func WithAliases(aliases ...string) Option {
	return func(p *Param) { p.Aliases = append(p.Aliases, aliases...) }
}

// WithValue sets the initial value. A value that does not fit the kind is
// a programming error and panics.
func WithValue(v any) Option {
	return func(p *Param) {
		if err := p.SetValue(v); err != nil {
			panic(err)
		}
	}
}

// Free marks the parameter as fit by default.
func Free() Option {
	return func(p *Param) { p.Frozen = false }
}

// New creates an unset, frozen parameter of the given kind.
func New(kind Kind, name, units, description string, opts ...Option) *Param {
	p := &Param{
		Name:        name,
		Units:       units,
		Description: description,
		Frozen:      true,
		kind:        kind,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewFloat(name, units, description string, opts ...Option) *Param {
	return New(Float, name, units, description, opts...)
}

func NewMJD(name, description string, opts ...Option) *Param {
	return New(MJD, name, "d", description, opts...)
}

func NewAngle(name, description string, opts ...Option) *Param {
	return New(Angle, name, "deg", description, opts...)
}

func NewString(name, description string, opts ...Option) *Param {
	return New(String, name, "", description, opts...)
}

func NewBool(name, description string, opts ...Option) *Param {
	return New(Bool, name, "", description, opts...)
}

func (p *Param) Kind() Kind  { return p.kind }
func (p *Param) IsSet() bool { return p.set }
func (p *Param) Unset()      { p.set = false }
func (p *Param) Str() string { return p.str }
func (p *Param) Flag() bool  { return p.flag }

func (p *Param) Names() []string {
	return append([]string{p.Name}, p.Aliases...)
}

// Float returns the numeric value, or 0 when unset or non-numeric.
func (p *Param) Float() float64 {
	if !p.set || !p.kind.Numeric() {
		return 0
	}
	return p.num
}

// Value returns the typed value, or nil when unset.
func (p *Param) Value() any {
	if !p.set {
		return nil
	}
	switch p.kind {
	case String:
		return p.str
	case Bool:
		return p.flag
	default:
		return p.num
	}
}

func (p *Param) SetFloat(v float64) error {
	if !p.kind.Numeric() {
		return p.invalid(fmt.Sprint(v), nil)
	}
	p.num = v
	p.set = true
	return nil
}

func (p *Param) SetString(s string) error {
	if p.kind != String {
		return p.invalid(s, nil)
	}
	p.str = s
	p.set = true
	return nil
}

func (p *Param) SetBool(b bool) error {
	if p.kind != Bool {
		return p.invalid(fmt.Sprint(b), nil)
	}
	p.flag = b
	p.set = true
	return nil
}

// SetValue assigns v after checking it against the parameter kind.
func (p *Param) SetValue(v any) error {
	switch x := v.(type) {
	case float64:
		return p.SetFloat(x)
	case float32:
		return p.SetFloat(float64(x))
	case int:
		return p.SetFloat(float64(x))
	case int64:
		return p.SetFloat(float64(x))
	case string:
		return p.SetString(x)
	case bool:
		return p.SetBool(x)
	case nil:
		p.Unset()
		return nil
	default:
		return p.invalid(fmt.Sprint(v), nil)
	}
}

// Matches reports whether key names this parameter or one of its aliases.
func (p *Param) Matches(key string) bool {
	if strings.EqualFold(key, p.Name) {
		return true
	}
	for _, a := range p.Aliases {
		if strings.EqualFold(key, a) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (p *Param) Clone() *Param {
	c := *p
	c.Aliases = append([]string(nil), p.Aliases...)
	return &c
}

func (p *Param) String() string {
	return strings.TrimRight(p.ToText(), "\n")
}

func (p *Param) invalid(value string, err error) error {
	return &InvalidValueError{Param: p.Name, Kind: p.kind, Value: value, Err: err}
}
