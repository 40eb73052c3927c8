// Package compdata pkg/compdata/oidmap.go
package compdata

import (
	"regexp"
	"strings"

	"github.com/mfreeman451/compdata/pkg/cache"
)

// varToken matches the identifier grammar for variable positions in an
// OID pattern.
var varToken = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// TransformMode selects what a folded tree carries at its leaves.
type TransformMode int

const (
	// ModeBlank drops the sample entirely; leaves are bare.
	ModeBlank TransformMode = iota
	// ModeScan keeps the value but drops the time, so later stages
	// stamp a single time per row.
	ModeScan
	// ModeDefault keeps value and time as returned.
	ModeDefault
)

// OIDMap is the parsed form of a dotted OID pattern with named
// variable positions.
type OIDMap struct {
	Split []string
	Vars  map[string]int
	Order []string
	Trunk int
}

// MapOID parses a dotted pattern. Tokens matching the identifier
// grammar become variables recorded by position; Trunk is the index of
// the last numeric token before the first variable, len-1 when the
// pattern has no variables, and 0 when it begins with one.
func MapOID(pattern string) *OIDMap {
	m := &OIDMap{
		Split: strings.Split(pattern, "."),
		Vars:  make(map[string]int),
	}

	firstVar := -1

	for i, tok := range m.Split {
		if varToken.MatchString(tok) {
			if firstVar < 0 {
				firstVar = i
			}

			if _, ok := m.Vars[tok]; !ok {
				m.Vars[tok] = i
				m.Order = append(m.Order, tok)
			}
		}
	}

	if firstVar < 0 {
		m.Trunk = len(m.Split) - 1
		return m
	}

	for i := 0; i < firstVar; i++ {
		if isNumeric(m.Split[i]) {
			m.Trunk = i
		}
	}

	return m
}

// OIDBase returns the fixed dotted prefix of the pattern: the first
// trunk+1 tokens.
func (m *OIDMap) OIDBase() string {
	return strings.Join(m.Split[:m.Trunk+1], ".")
}

// TransformOIDs folds fully-qualified OID strings and their samples
// into a nested tree keyed by the values taken at each variable
// position, in pattern order. The tree's legend is the ordered list of
// variable names. OIDs too short to reach every variable position are
// skipped; the final pattern token captures the remainder of longer
// OIDs so compound indexes fold into one key.
func TransformOIDs(data cache.HostData, m *OIDMap, mode TransformMode) *Tree {
	tree := &Tree{
		Legend: append([]string(nil), m.Order...),
		Root:   newNode(),
	}

	if len(m.Order) == 0 {
		// Scalar pattern: the whole result is one leaf at the root.
		for _, sample := range data {
			tree.Root.Sample = leafSample(sample, mode)
		}

		return tree
	}

	for oid, sample := range data {
		parts := strings.Split(oid, ".")
		keys := make([]string, 0, len(m.Order))
		ok := true

		for _, name := range m.Order {
			idx := m.Vars[name]
			if idx >= len(parts) {
				ok = false
				break
			}

			key := parts[idx]
			if idx == len(m.Split)-1 && len(parts) > len(m.Split) {
				key = strings.Join(parts[idx:], ".")
			}

			keys = append(keys, key)
		}

		if !ok {
			continue
		}

		node := tree.Root
		for _, key := range keys {
			node = node.child(key)
		}

		node.Sample = leafSample(sample, mode)
	}

	return tree
}

func leafSample(s *cache.Sample, mode TransformMode) *cache.Sample {
	switch mode {
	case ModeBlank:
		return nil
	case ModeScan:
		return &cache.Sample{Value: s.Value}
	default:
		return &cache.Sample{Value: s.Value, Time: s.Time}
	}
}

func isNumeric(tok string) bool {
	if tok == "" {
		return false
	}

	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
