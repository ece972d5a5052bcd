// Package dataset holds tabular data as named, typed columns and reads it
// from (optionally compressed) CSV files.
package dataset

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// Column is a named column that is either numeric or categorical.
// Exactly one of Numbers and Strings is non-nil.
type Column struct {
	Name    string
	Numbers []float64
	Strings []string
}

// IsNumeric reports whether the column holds float values.
func (c *Column) IsNumeric() bool {
	return c.Numbers != nil
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.IsNumeric() {
		return len(c.Numbers)
	}
	return len(c.Strings)
}

// Value returns cell i as a string. Numbers use the shortest representation
// that round-trips, so "1" and "1.0" in a numeric column both read back as "1".
func (c *Column) Value(i int) string {
	if c.IsNumeric() {
		return strconv.FormatFloat(c.Numbers[i], 'f', -1, 64)
	}
	return c.Strings[i]
}

// Values returns every cell as a string.
func (c *Column) Values() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

// NUnique returns the number of distinct values in the column. NaN cells
// are missing values and are not counted.
func (c *Column) NUnique() int {
	if c.IsNumeric() {
		seen := make(map[float64]struct{}, 16)
		for _, v := range c.Numbers {
			if math.IsNaN(v) {
				continue
			}
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[string]struct{}, 16)
	for _, v := range c.Strings {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name}
	if c.IsNumeric() {
		out.Numbers = make([]float64, len(rows))
		for i, r := range rows {
			out.Numbers[i] = c.Numbers[r]
		}
		return out
	}
	out.Strings = make([]string, len(rows))
	for i, r := range rows {
		out.Strings[i] = c.Strings[r]
	}
	return out
}

// Frame is an ordered set of equally long columns with unique names.
type Frame struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	return f.nRows
}

// NCols returns the number of columns.
func (f *Frame) NCols() int {
	return len(f.columns)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Has reports whether every named column exists.
func (f *Frame) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := f.index[n]; !ok {
			return false
		}
	}
	return true
}

// AddNumeric appends a numeric column.
func (f *Frame) AddNumeric(name string, values []float64) error {
	if values == nil {
		values = []float64{}
	}
	return f.add(&Column{Name: name, Numbers: values})
}

// AddCategorical appends a categorical column.
func (f *Frame) AddCategorical(name string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return f.add(&Column{Name: name, Strings: values})
}

func (f *Frame) add(c *Column) error {
	if _, dup := f.index[c.Name]; dup {
		return errors.NewValidationError("column", "duplicate column name", c.Name)
	}
	if len(f.columns) > 0 && c.Len() != f.nRows {
		return errors.NewDimensionError("Frame.Add", f.nRows, c.Len(), 0)
	}
	f.nRows = c.Len()
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Drop removes the named columns that exist and returns the names actually
// removed. Unknown names are ignored.
func (f *Frame) Drop(names ...string) []string {
	remove := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := f.index[n]; ok {
			remove[n] = true
		}
	}
	if len(remove) == 0 {
		return nil
	}

	var dropped []string
	kept := f.columns[:0]
	for _, c := range f.columns {
		if remove[c.Name] {
			dropped = append(dropped, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	f.columns = kept
	f.reindex()
	if len(f.columns) == 0 {
		f.nRows = 0
	}
	return dropped
}

// Take returns a new frame with the given rows, in the given order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{
		columns: make([]*Column, len(f.columns)),
		index:   make(map[string]int, len(f.columns)),
		nRows:   len(rows),
	}
	for i, c := range f.columns {
		out.columns[i] = c.take(rows)
		out.index[c.Name] = i
	}
	return out
}

// Filter returns a new frame holding the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	rows := make([]int, 0, f.nRows)
	for i := 0; i < f.nRows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return f.Take(rows)
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.columns))
	for i, c := range f.columns {
		f.index[c.Name] = i
	}
}

// Clone returns a frame sharing the column data but with its own column
// list, so adding or dropping columns does not affect f.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		columns: append([]*Column(nil), f.columns...),
		nRows:   f.nRows,
	}
	out.reindex()
	return out
}
