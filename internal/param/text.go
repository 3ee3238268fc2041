package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SetFromText consumes one par-file record of the form
// NAME VALUE [FIT] [UNCERTAINTY] when NAME matches this parameter.
func (p *Param) SetFromText(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !p.Matches(fields[0]) {
		return false, nil
	}

	if len(fields) == 1 {
		if p.kind == Bool {
			p.flag, p.set = true, true
			return true, nil
		}
		return true, p.invalid("", fmt.Errorf("record %q has no value", line))
	}

	if err := p.parseValue(fields[1]); err != nil {
		return true, err
	}
	if !p.kind.Numeric() {
		return true, nil
	}

	rest := fields[2:]
	if len(rest) > 0 {
		switch rest[0] {
		case "1":
			p.Frozen = false
			rest = rest[1:]
		case "0":
			p.Frozen = true
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		unc, err := parseFloat(rest[0])
		if err != nil {
			return true, p.invalid(rest[0], err)
		}
		p.Uncertainty = unc
	}
	return true, nil
}

// ToText renders a record SetFromText reads back to the same value. Unset
// parameters render as the empty string.
func (p *Param) ToText() string {
	if !p.set {
		return ""
	}
	line := fmt.Sprintf("%-15s %25s", p.Name, p.formatValue())
	if p.kind.Numeric() && (!p.Frozen || p.Uncertainty != 0) {
		fit := "0"
		if !p.Frozen {
			fit = "1"
		}
		line += " " + fit
		if p.Uncertainty != 0 {
			line += " " + strconv.FormatFloat(p.Uncertainty, 'g', -1, 64)
		}
	}
	return line + "\n"
}

func (p *Param) HelpLine() string {
	s := fmt.Sprintf("%-15s %s", p.Name, p.Description)
	if p.Units != "" {
		s += fmt.Sprintf(" (%s)", p.Units)
	}
	if len(p.Aliases) > 0 {
		s += fmt.Sprintf(" [aliases: %s]", strings.Join(p.Aliases, ", "))
	}
	return s
}

func (p *Param) formatValue() string {
	switch p.kind {
	case String:
		return p.str
	case Bool:
		if p.flag {
			return "Y"
		}
		return "N"
	case MJD:
		return strconv.FormatFloat(p.num, 'f', -1, 64)
	default:
		return strconv.FormatFloat(p.num, 'g', -1, 64)
	}
}

func (p *Param) parseValue(s string) error {
	switch p.kind {
	case String:
		p.str = s
	case Bool:
		b, err := parseBool(s)
		if err != nil {
			return p.invalid(s, err)
		}
		p.flag = b
	case Angle:
		v, err := parseAngle(s)
		if err != nil {
			return p.invalid(s, err)
		}
		p.num = v
	default:
		v, err := parseFloat(s)
		if err != nil {
			return p.invalid(s, err)
		}
		p.num = v
	}
	p.set = true
	return nil
}

// parseFloat accepts Fortran style D exponents.
func parseFloat(s string) (float64, error) {
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, 64)
}

func parseBool(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "Y", "T", "1", "TRUE", "YES":
		return true, nil
	case "N", "F", "0", "FALSE", "NO":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// parseAngle reads decimal degrees or dd:mm:ss.s.
func parseAngle(s string) (float64, error) {
	if !strings.Contains(s, ":") {
		return parseFloat(s)
	}
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many sexagesimal fields in %q", s)
	}
	total := 0.0
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("negative sexagesimal field in %q", s)
		}
		total += v / math.Pow(60, float64(i))
	}
	return sign * total, nil
}
