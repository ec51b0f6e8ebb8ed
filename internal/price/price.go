// Package price provides per-day display annotations (e.g. nightly rates).
package price

import (
	"fmt"
	"os"

	"github.com/cpuguy83/calpick/internal/date"

	"gopkg.in/yaml.v3"
)

// Table maps a date to an opaque display value. It is sparse: dates with no
// entry render nothing. The nil Table is valid and empty.
type Table map[date.Date]string

// Lookup returns the value for d, if any.
func (t Table) Lookup(d date.Date) (string, bool) {
	v, ok := t[d]
	return v, ok
}

// Set stores v for d. t must be non-nil.
func (t Table) Set(d date.Date, v string) {
	t[d] = v
}

// Len returns the number of annotated dates.
func (t Table) Len() int {
	return len(t)
}

// FromStrings builds a Table from ISO date keys.
func FromStrings(values map[string]string) (Table, error) {
	t := make(Table, len(values))
	for k, v := range values {
		d, err := date.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("price key: %w", err)
		}
		t[d] = v
	}
	return t, nil
}

// LoadFile reads a YAML mapping of YYYY-MM-DD to value. Scalar values are kept
// as written, so 100 and "$100" both render as they appear in the file.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML price data; see LoadFile.
func Parse(data []byte) (Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse price file: %w", err)
	}
	if len(doc.Content) == 0 {
		return Table{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse price file: line %d: expected a mapping of dates to values", root.Line)
	}

	t := make(Table, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse price file: line %d: value for %q must be a scalar", val.Line, key.Value)
		}
		d, err := date.Parse(key.Value)
		if err != nil {
			return nil, fmt.Errorf("parse price file: line %d: %w", key.Line, err)
		}
		t[d] = val.Value
	}
	return t, nil
}
