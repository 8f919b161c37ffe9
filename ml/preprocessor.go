package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNotFitted = errors.New("not fitted")

// ColumnTransformer standardizes numerical columns, one-hot encodes
// categorical columns and passes every other column through unchanged.
// Output layout: numerical, then one-hot blocks, then the remainder in table
// order at fit time.
type ColumnTransformer struct {
	Numerical   []string   `json:"numerical"`
	Categorical []string   `json:"categorical"`
	Remainder   []string   `json:"remainder"`
	Means       []float64  `json:"means"`
	Scales      []float64  `json:"scales"`
	Categories  [][]string `json:"categories"`
}

func NewColumnTransformer(numerical, categorical []string) *ColumnTransformer {
	return &ColumnTransformer{
		Numerical:   cloneNames(numerical),
		Categorical: cloneNames(categorical),
	}
}

func (p *ColumnTransformer) Fit(f *Frame) error {
	if f.Len() == 0 {
		return ErrEmptyDataset
	}

	means := make([]float64, len(p.Numerical))
	scales := make([]float64, len(p.Numerical))
	for i, name := range p.Numerical {
		cells, ok := f.Column(name)
		if !ok {
			return &MissingColumnError{Column: name}
		}
		values := make([]float64, 0, len(cells))
		for row, c := range cells {
			v, err := c.Float()
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", name, row, err)
			}
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		means[i], scales[i] = 0, 1
		if len(values) > 0 {
			mean, std := stat.PopMeanStdDev(values, nil)
			means[i] = mean
			if std > 0 && !math.IsNaN(std) {
				scales[i] = std
			}
		}
	}

	categories := make([][]string, len(p.Categorical))
	for i, name := range p.Categorical {
		cells, ok := f.Column(name)
		if !ok {
			return &MissingColumnError{Column: name}
		}
		seen := make(map[string]struct{})
		for _, c := range cells {
			if c.IsMissing() {
				continue
			}
			seen[c.String()] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		categories[i] = values
	}

	remainder := make([]string, 0)
	for _, name := range f.Columns() {
		if contains(p.Numerical, name) || contains(p.Categorical, name) {
			continue
		}
		remainder = append(remainder, name)
	}

	p.Means = means
	p.Scales = scales
	p.Categories = categories
	p.Remainder = remainder
	return nil
}

func (p *ColumnTransformer) fitted() bool {
	return p.Means != nil && p.Categories != nil
}

// NumOutputs is the width of the transformed matrix.
func (p *ColumnTransformer) NumOutputs() int {
	width := len(p.Numerical) + len(p.Remainder)
	for _, values := range p.Categories {
		width += len(values)
	}
	return width
}

// FeatureNames names the transformed columns, e.g. "num__age",
// "cat__job_admin.", "remainder__loan".
func (p *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, p.NumOutputs())
	for _, name := range p.Numerical {
		names = append(names, "num__"+name)
	}
	for i, name := range p.Categorical {
		for _, value := range p.Categories[i] {
			names = append(names, "cat__"+name+"_"+value)
		}
	}
	for _, name := range p.Remainder {
		names = append(names, "remainder__"+name)
	}
	return names
}

// Transform maps a table to the model's numeric input. Missing numerical and
// passthrough values become NaN; unseen or missing categories encode as all
// zeros.
func (p *ColumnTransformer) Transform(f *Frame) (*mat.Dense, error) {
	if !p.fitted() {
		return nil, fmt.Errorf("column transformer: %w", ErrNotFitted)
	}
	rows, width := f.Len(), p.NumOutputs()
	if rows == 0 {
		return nil, ErrEmptyDataset
	}
	out := mat.NewDense(rows, width, nil)

	col := 0
	for i, name := range p.Numerical {
		cells, ok := f.Column(name)
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		for r, c := range cells {
			v, err := c.Float()
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, r, err)
			}
			out.Set(r, col, (v-p.Means[i])/p.Scales[i])
		}
		col++
	}

	for i, name := range p.Categorical {
		cells, ok := f.Column(name)
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		index := make(map[string]int, len(p.Categories[i]))
		for j, value := range p.Categories[i] {
			index[value] = j
		}
		for r, c := range cells {
			if c.IsMissing() {
				continue
			}
			if j, ok := index[c.String()]; ok {
				out.Set(r, col+j, 1)
			}
		}
		col += len(p.Categories[i])
	}

	for _, name := range p.Remainder {
		cells, ok := f.Column(name)
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		for r, c := range cells {
			v, err := c.Float()
			if err != nil {
				return nil, fmt.Errorf("passthrough column %q row %d: %w", name, r, err)
			}
			out.Set(r, col, v)
		}
		col++
	}
	return out, nil
}

func (p *ColumnTransformer) FitTransform(f *Frame) (*mat.Dense, error) {
	if err := p.Fit(f); err != nil {
		return nil, err
	}
	return p.Transform(f)
}
