// Package freq provides the observation-count table the collapse engines
// consume: barcode -> count with a total, deterministic ordering by count.
package freq

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/armon/go-radix"
)

// Table maps barcodes to non-negative observation counts. Keys are held in a
// patricia tree so every walk yields the same lexicographic base order; the
// count ordering below is a stable sort on top of that walk, which makes the
// tie-break rule "equal counts order lexicographically ascending".
type Table struct {
	tree *radix.Tree
}

// New returns an empty table.
func New() *Table {
	return &Table{tree: radix.New()}
}

// FromCounts builds a table from an existing barcode -> count mapping.
func FromCounts(counts map[string]int) *Table {
	t := New()
	for bc, n := range counts {
		t.Increment(bc, n)
	}
	return t
}

// FromKeys builds a table assigning every barcode a count of one.
func FromKeys(keys []string) *Table {
	t := New()
	for _, bc := range keys {
		t.Increment(bc, 1)
	}
	return t
}

// Increment adds n observations of bc.
func (t *Table) Increment(bc string, n int) {
	if prev, ok := t.tree.Get(bc); ok {
		n += prev.(int)
	}
	t.tree.Insert(bc, n)
}

// CountOf returns the observation count for bc, or 0 when bc is unknown.
func (t *Table) CountOf(bc string) int {
	v, ok := t.tree.Get(bc)
	if !ok {
		return 0
	}
	return v.(int)
}

// Size returns the number of distinct barcodes.
func (t *Table) Size() int {
	return t.tree.Len()
}

// Keys returns all barcodes in lexicographic order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.tree.Len())
	t.tree.Walk(func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

// KeysOrderedByCount returns all barcodes ordered by count, descending when
// decreasing is true. Equal counts preserve the lexicographic walk order.
func (t *Table) KeysOrderedByCount(decreasing bool) []string {
	keys := t.Keys()
	if decreasing {
		sort.SliceStable(keys, func(i, j int) bool {
			return t.CountOf(keys[i]) > t.CountOf(keys[j])
		})
	} else {
		sort.SliceStable(keys, func(i, j int) bool {
			return t.CountOf(keys[i]) < t.CountOf(keys[j])
		})
	}
	return keys
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := New()
	t.tree.Walk(func(k string, v interface{}) bool {
		c.tree.Insert(k, v.(int))
		return false
	})
	return c
}

// ReadCounts parses a barcode count listing: one barcode per line, optionally
// followed by a tab- or space-separated count (defaulting to 1). Blank lines
// and lines starting with '#' are skipped.
func ReadCounts(r io.Reader) (*Table, error) {
	t := New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			t.Increment(fields[0], 1)
		case 2:
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad count %q: %w", lineNo, fields[1], err)
			}
			if n < 0 {
				return nil, fmt.Errorf("line %d: negative count %d for %q", lineNo, n, fields[0])
			}
			t.Increment(fields[0], n)
		default:
			return nil, fmt.Errorf("line %d: expected 'barcode[<tab>count]', got %d fields", lineNo, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading counts: %w", err)
	}
	return t, nil
}
