package ml

import "fmt"

// MissingColumnError is returned when an operation names a column the table
// does not have.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// EncodeBinaryFeatures rewrites each named column in place, mapping "yes" to
// 1 and "no" to 0. Any other value becomes missing. Columns are processed in
// order; on the first absent column it returns a *MissingColumnError and the
// columns before it stay encoded.
func EncodeBinaryFeatures(f *Frame, names []string) error {
	for _, name := range names {
		cells, ok := f.columns[name]
		if !ok {
			return &MissingColumnError{Column: name}
		}
		for i, c := range cells {
			cells[i] = encodeYesNo(c)
		}
	}
	return nil
}

func encodeYesNo(c Cell) Cell {
	if c.Kind != KindString {
		return MissingCell()
	}
	switch c.Str {
	case "yes":
		return NumberCell(1)
	case "no":
		return NumberCell(0)
	default:
		return MissingCell()
	}
}
