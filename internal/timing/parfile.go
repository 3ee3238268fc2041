package timing

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/pulsetiming/internal/param"
)

// IgnoredKeys are legacy or no-op par-file keys dropped without a warning.
var IgnoredKeys = []string{
	"START", "FINISH", "SOLARN0", "EPHEM", "CLK", "UNITS", "TIMEEPH",
	"T2CMETHOD", "CORRECT_TROPOSPHERE", "DILATEFREQ", "NTOA", "CLOCK",
	"TRES", "TZRMJD", "TZRFRQ", "TZRSITE", "NITS", "IBOOT", "BINARY",
	"NO_SS_SHAPIRO",
}

// IgnoredPrefixes are prefix families dropped without a warning.
var IgnoredPrefixes = []string{"DMXF1_", "DMXF2_", "DMXEP_"}

// Records maps upper-cased par-file keys to their value fields.
type Records map[string][]string

func (r Records) Has(key string) bool {
	_, ok := r[strings.ToUpper(key)]
	return ok
}

// Value returns the first value field of key, or "".
func (r Records) Value(key string) string {
	if f := r[strings.ToUpper(key)]; len(f) > 0 {
		return f[0]
	}
	return ""
}

type record struct {
	line int
	text string
	key  string
}

// scanRecords yields non-comment records with repeated keys numbered 2, 3
// and so on, so that the second JUMP reads as JUMP2.
func scanRecords(r io.Reader) ([]record, error) {
	var out []record
	seen := make(map[string]int)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "C ") {
			continue
		}
		fields := strings.Fields(line)
		name := strings.ToUpper(fields[0])
		seen[name]++
		if c := seen[name]; c > 1 {
			fields[0] += strconv.Itoa(c)
			line = strings.Join(fields, " ")
		}
		out = append(out, record{line: n, text: line, key: strings.ToUpper(fields[0])})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read par file: %w", err)
	}
	return out, nil
}

// ParseRecords reads the record set used to decide which components apply.
func ParseRecords(r io.Reader) (Records, error) {
	recs, err := scanRecords(r)
	if err != nil {
		return nil, err
	}
	out := make(Records, len(recs))
	for _, rec := range recs {
		out[rec.key] = strings.Fields(rec.text)[1:]
	}
	return out, nil
}

// ReadParfile dispatches every record to every parameter, creating prefix
// family members on first reference, then runs Setup. Records no parameter
// consumes are logged and kept in Warnings unless ignored.
func (m *Model) ReadParfile(r io.Reader) error {
	recs, err := scanRecords(r)
	if err != nil {
		return err
	}
	m.warnings = nil

	for _, rec := range recs {
		parsed, err := m.dispatch(rec.text)
		if err != nil {
			return fmt.Errorf("par file line %d: %w", rec.line, err)
		}
		if !parsed {
			if parsed, err = m.instantiatePrefix(rec); err != nil {
				return fmt.Errorf("par file line %d: %w", rec.line, err)
			}
		}
		if parsed || ignored(rec.key) {
			continue
		}
		w := UnparsedRecordWarning{Line: rec.line, Record: rec.text}
		m.warnings = append(m.warnings, w)
		m.logger.Warn("unrecognized par file record", "line", w.Line, "record", w.Record)
	}
	return m.Setup()
}

func (m *Model) dispatch(line string) (bool, error) {
	parsed := false
	for _, p := range m.Params() {
		ok, err := p.SetFromText(line)
		if err != nil {
			return true, err
		}
		parsed = parsed || ok
	}
	return parsed, nil
}

func (m *Model) instantiatePrefix(rec record) (bool, error) {
	prefix, index, err := param.SplitPrefixedName(rec.key)
	if err != nil {
		return false, nil
	}
	for _, c := range m.Components() {
		factory, ok := c.base().family(prefix)
		if !ok {
			continue
		}
		for _, p := range factory(index) {
			if _, taken := m.lookup(p.Name); taken {
				continue
			}
			if err := c.base().AddParam(p); err != nil {
				return false, err
			}
		}
		m.logger.Debug("created prefix parameters", "component", c.Name(), "prefix", prefix, "index", index)
		// DMX_1 and DMX_0001 name the same member
		fields := strings.Fields(rec.text)
		fields[0] = param.PrefixedName(prefix, index)
		return m.dispatch(strings.Join(fields, " "))
	}
	return false, nil
}

func ignored(key string) bool {
	for _, k := range IgnoredKeys {
		if key == k {
			return true
		}
	}
	for _, p := range IgnoredPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// WriteOrder places component categories at the start or end of a par
// document; the rest follow registry order in between.
type WriteOrder struct {
	Start []string
	Last  []string
}

func DefaultWriteOrder() WriteOrder {
	return WriteOrder{
		Start: []string{"astrometry", "spindown", "dispersion"},
		Last:  []string{BinaryCategory, "jump_delay"},
	}
}

// AsParfile renders the model as one par document.
func (m *Model) AsParfile(order WriteOrder) string {
	var sb strings.Builder
	for _, p := range m.topLevel {
		sb.WriteString(p.ToText())
	}

	groups, cats := m.ComponentsByCategory()
	write := func(cat string) {
		for _, c := range groups[cat] {
			sb.WriteString(c.base().PrintPar())
		}
	}
	for _, cat := range order.Start {
		write(cat)
	}
	for _, cat := range cats {
		if !containsFold(order.Start, cat) && !containsFold(order.Last, cat) {
			write(cat)
		}
	}
	for _, cat := range order.Last {
		write(cat)
	}
	return sb.String()
}

func (m *Model) WriteParfile(w io.Writer, order WriteOrder) error {
	_, err := io.WriteString(w, m.AsParfile(order))
	return err
}
