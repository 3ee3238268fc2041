package param

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitPrefixedName splits DMX12 into ("DMX", 12) and DMXR1_3 into
// ("DMXR1_", 3). An underscore, when present, ends the prefix.
func SplitPrefixedName(name string) (string, int, error) {
	var prefix, digits string
	if i := strings.LastIndex(name, "_"); i >= 0 {
		prefix, digits = name[:i+1], name[i+1:]
	} else {
		j := len(name)
		for j > 0 && name[j-1] >= '0' && name[j-1] <= '9' {
			j--
		}
		prefix, digits = name[:j], name[j:]
	}
	if prefix == "" || prefix == "_" || digits == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrNotPrefixed, name)
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrNotPrefixed, name)
	}
	return prefix, index, nil
}

// PrefixedName joins prefix and index. Underscore prefixes take a four
// digit index, as in DMXR1_0003.
func PrefixedName(prefix string, index int) string {
	if strings.HasSuffix(prefix, "_") {
		return fmt.Sprintf("%s%04d", prefix, index)
	}
	return prefix + strconv.Itoa(index)
}

// NewPrefixed creates member index of a prefix family.
func NewPrefixed(kind Kind, prefix string, index int, units, description string, opts ...Option) *Param {
	p := New(kind, PrefixedName(prefix, index), units, description, opts...)
	p.IsPrefix = true
	p.Prefix = prefix
	p.Index = index
	return p
}
