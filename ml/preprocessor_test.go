package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preprocessFrame(t *testing.T) *Frame {
	t.Helper()
	f := NewFrame()
	require.NoError(t, f.SetColumn("age", []Cell{NumberCell(20), NumberCell(40), MissingCell()}))
	require.NoError(t, f.SetColumn("flat", []Cell{NumberCell(5), NumberCell(5), NumberCell(5)}))
	require.NoError(t, f.SetColumn("job", []Cell{StringCell("b"), StringCell("a"), MissingCell()}))
	require.NoError(t, f.SetColumn("loan", []Cell{NumberCell(1), NumberCell(0), MissingCell()}))
	return f
}

func TestColumnTransformerFit(t *testing.T) {
	p := NewColumnTransformer([]string{"age", "flat"}, []string{"job"})
	require.NoError(t, p.Fit(preprocessFrame(t)))

	assert.Equal(t, []float64{30, 5}, p.Means)
	assert.Equal(t, []float64{10, 1}, p.Scales, "population std, constant column scales by 1")
	assert.Equal(t, [][]string{{"a", "b"}}, p.Categories)
	assert.Equal(t, []string{"loan"}, p.Remainder)
	assert.Equal(t, 5, p.NumOutputs())
	assert.Equal(t,
		[]string{"num__age", "num__flat", "cat__job_a", "cat__job_b", "remainder__loan"},
		p.FeatureNames())
}

func TestColumnTransformerTransform(t *testing.T) {
	p := NewColumnTransformer([]string{"age", "flat"}, []string{"job"})
	m, err := p.FitTransform(preprocessFrame(t))
	require.NoError(t, err)

	rows, cols := m.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 5, cols)

	assert.Equal(t, []float64{-1, 0, 0, 1, 1}, m.RawRowView(0))
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, m.RawRowView(1))

	last := m.RawRowView(2)
	assert.True(t, math.IsNaN(last[0]), "missing numerical propagates")
	assert.Equal(t, []float64{0, 0}, last[2:4], "missing category encodes as zeros")
	assert.True(t, math.IsNaN(last[4]))
}

func TestColumnTransformerUnknownCategory(t *testing.T) {
	p := NewColumnTransformer([]string{"age", "flat"}, []string{"job"})
	require.NoError(t, p.Fit(preprocessFrame(t)))

	row := FrameFromRecord(map[string]Cell{
		"age":  NumberCell(30),
		"flat": NumberCell(5),
		"job":  StringCell("zzz"),
		"loan": NumberCell(1),
	}, []string{"age", "flat", "job", "loan"})
	m, err := p.Transform(row)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, m.RawRowView(0))
}

func TestColumnTransformerErrors(t *testing.T) {
	p := NewColumnTransformer([]string{"age"}, nil)
	_, err := p.Transform(preprocessFrame(t))
	assert.ErrorIs(t, err, ErrNotFitted)

	p = NewColumnTransformer([]string{"income"}, nil)
	err = p.Fit(preprocessFrame(t))
	var missing *MissingColumnError
	assert.ErrorAs(t, err, &missing)

	p = NewColumnTransformer([]string{"job"}, nil)
	assert.Error(t, p.Fit(preprocessFrame(t)), "strings in a numerical column")

	assert.ErrorIs(t, NewColumnTransformer(nil, nil).Fit(NewFrame()), ErrEmptyDataset)
}
