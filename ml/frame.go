package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

type CellKind int

const (
	KindMissing CellKind = iota
	KindString
	KindNumber
)

// Cell is a single table value: a string, a number, or missing.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

func StringCell(s string) Cell  { return Cell{Kind: KindString, Str: s} }
func NumberCell(v float64) Cell { return Cell{Kind: KindNumber, Num: v} }
func MissingCell() Cell         { return Cell{Kind: KindMissing} }

func (c Cell) IsMissing() bool { return c.Kind == KindMissing }

// Float returns the numeric value of the cell. Missing cells are NaN.
func (c Cell) Float() (float64, error) {
	switch c.Kind {
	case KindNumber:
		return c.Num, nil
	case KindMissing:
		return math.NaN(), nil
	default:
		return 0, fmt.Errorf("non-numeric value %q", c.Str)
	}
}

func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case KindString:
		return c.Str
	default:
		return "NaN"
	}
}

var ErrLengthMismatch = errors.New("column length does not match table length")

// Frame is a small column-oriented table with ordered column names.
type Frame struct {
	names   []string
	columns map[string][]Cell
	rows    int
}

func NewFrame() *Frame {
	return &Frame{columns: make(map[string][]Cell)}
}

// SetColumn adds a column, or replaces it in place keeping its position.
func (f *Frame) SetColumn(name string, cells []Cell) error {
	_, exists := f.columns[name]
	sole := exists && len(f.names) == 1
	if len(f.names) > 0 && !sole && len(cells) != f.rows {
		return fmt.Errorf("column %q: %w", name, ErrLengthMismatch)
	}
	if !exists {
		f.names = append(f.names, name)
	}
	f.columns[name] = cells
	f.rows = len(cells)
	return nil
}

func (f *Frame) Column(name string) ([]Cell, bool) {
	cells, ok := f.columns[name]
	return cells, ok
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Columns returns the column names in table order.
func (f *Frame) Columns() []string { return cloneNames(f.names) }

func (f *Frame) Len() int { return f.rows }

func (f *Frame) At(row int, name string) Cell {
	return f.columns[name][row]
}

// Row returns row i as a name -> cell map.
func (f *Frame) Row(i int) map[string]Cell {
	row := make(map[string]Cell, len(f.names))
	for _, name := range f.names {
		row[name] = f.columns[name][i]
	}
	return row
}

// Select returns a new frame with exactly the given columns in the given
// order. Names not present in f become all-missing columns.
func (f *Frame) Select(names []string) *Frame {
	out := NewFrame()
	out.rows = f.rows
	for _, name := range names {
		cells, ok := f.columns[name]
		if !ok {
			cells = make([]Cell, f.rows)
		} else {
			cells = append([]Cell(nil), cells...)
		}
		if _, dup := out.columns[name]; !dup {
			out.names = append(out.names, name)
		}
		out.columns[name] = cells
	}
	return out
}

// Drop returns a copy of f without the given columns.
func (f *Frame) Drop(names ...string) *Frame {
	keep := make([]string, 0, len(f.names))
	for _, name := range f.names {
		if !contains(names, name) {
			keep = append(keep, name)
		}
	}
	return f.Select(keep)
}

// Take returns a copy of f holding only the given rows, in that order.
func (f *Frame) Take(rows []int) *Frame {
	out := NewFrame()
	out.rows = len(rows)
	for _, name := range f.names {
		src := f.columns[name]
		cells := make([]Cell, len(rows))
		for i, r := range rows {
			cells[i] = src[r]
		}
		out.names = append(out.names, name)
		out.columns[name] = cells
	}
	return out
}

func (f *Frame) Clone() *Frame { return f.Select(f.names) }

// Equal reports whether both frames have the same columns, order and cells.
// Missing cells compare equal to each other.
func (f *Frame) Equal(other *Frame) bool {
	if f.rows != other.rows || len(f.names) != len(other.names) {
		return false
	}
	for i, name := range f.names {
		if other.names[i] != name {
			return false
		}
		a, b := f.columns[name], other.columns[name]
		for r := range a {
			if a[r] != b[r] {
				return false
			}
		}
	}
	return true
}

// FrameFromRecord builds a single-row frame from a field map, with columns in
// the given order. Fields missing from the record become missing cells.
func FrameFromRecord(record map[string]Cell, order []string) *Frame {
	out := NewFrame()
	out.rows = 1
	for _, name := range order {
		cell, ok := record[name]
		if !ok {
			cell = MissingCell()
		}
		if _, dup := out.columns[name]; !dup {
			out.names = append(out.names, name)
		}
		out.columns[name] = []Cell{cell}
	}
	return out
}

// Labels returns a numeric column as 0/1 ints.
func (f *Frame) Labels(name string) ([]int, error) {
	cells, ok := f.columns[name]
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	labels := make([]int, len(cells))
	for i, c := range cells {
		if c.Kind != KindNumber || (c.Num != 0 && c.Num != 1) {
			return nil, fmt.Errorf("label %q row %d: expected 0 or 1, got %s", name, i, c)
		}
		labels[i] = int(c.Num)
	}
	return labels, nil
}
