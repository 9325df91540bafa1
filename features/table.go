package features

import (
	"math"
	"time"

	"github.com/rustyeddy/quantlab/quanterr"
)

// Table is a timestamp-indexed set of named real-valued feature columns,
// aligned one-to-one with its source bar series. Column order is fixed at
// construction so iteration is deterministic.
type Table struct {
	times   []time.Time
	columns []string
	data    map[string][]float64
}

func newTable(times []time.Time) *Table {
	return &Table{
		times: times,
		data:  make(map[string][]float64),
	}
}

func (t *Table) add(name string, values []float64) {
	t.columns = append(t.columns, name)
	t.data[name] = values
}

func (t *Table) Len() int           { return len(t.times) }
func (t *Table) Columns() []string  { return append([]string(nil), t.columns...) }
func (t *Table) Times() []time.Time { return append([]time.Time(nil), t.times...) }

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, error) {
	v, ok := t.data[name]
	if !ok {
		return nil, quanterr.Contractf("features", name, "unknown column")
	}
	return v, nil
}

// Row returns the feature vector at position i, in column order.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.columns))
	for j, c := range t.columns {
		row[j] = t.data[c][i]
	}
	return row
}

// RowHasNaN reports whether any feature at position i is missing.
func (t *Table) RowHasNaN(i int) bool {
	for _, c := range t.columns {
		if math.IsNaN(t.data[c][i]) {
			return true
		}
	}
	return false
}

// Matrix returns all rows as a dense matrix in column order.
func (t *Table) Matrix() [][]float64 {
	m := make([][]float64, len(t.times))
	for i := range t.times {
		m[i] = t.Row(i)
	}
	return m
}

// lag shifts every column down by one position: the value at t becomes the
// value computed at t-1, and position 0 becomes NaN. This is the final (and
// only) anti-lookahead shift applied to the table.
func (t *Table) lag() {
	for _, c := range t.columns {
		col := t.data[c]
		for i := len(col) - 1; i >= 1; i-- {
			col[i] = col[i-1]
		}
		if len(col) > 0 {
			col[0] = math.NaN()
		}
	}
}

// sanitize replaces infinities with NaN so downstream consumers only deal
// with one missing-value sentinel.
func (t *Table) sanitize() {
	for _, c := range t.columns {
		col := t.data[c]
		for i, v := range col {
			if math.IsInf(v, 0) {
				col[i] = math.NaN()
			}
		}
	}
}

// filter returns a new table containing only the rows where keep is true.
func (t *Table) filter(keep []bool) *Table {
	out := &Table{data: make(map[string][]float64)}
	for i, k := range keep {
		if k {
			out.times = append(out.times, t.times[i])
		}
	}
	out.columns = append([]string(nil), t.columns...)
	for _, c := range t.columns {
		col := t.data[c]
		kept := make([]float64, 0, len(out.times))
		for i, k := range keep {
			if k {
				kept = append(kept, col[i])
			}
		}
		out.data[c] = kept
	}
	return out
}
