package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func separableMatrix() (*mat.Dense, []int) {
	data := make([]float64, 0, 80)
	y := make([]int, 0, 40)
	for i := 0; i < 40; i++ {
		v := float64(i)
		data = append(data, v, float64(i%3))
		if i >= 20 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return mat.NewDense(40, 2, data), y
}

func TestGradientBoostedTreesFit(t *testing.T) {
	x, y := separableMatrix()
	m := NewGradientBoostedTrees(smallParams())
	require.NoError(t, m.Fit(x, y))
	assert.Len(t, m.Trees, 20)
	assert.Equal(t, 2, m.NumFeatures)

	probs, err := m.PredictProba(x)
	require.NoError(t, err)
	for i, p := range probs {
		if y[i] == 1 {
			assert.Greater(t, p, 0.5, "row %d", i)
		} else {
			assert.Less(t, p, 0.5, "row %d", i)
		}
	}

	auc, err := ROCAUC(y, probs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, auc)
}

func TestGradientBoostedTreesDeterministic(t *testing.T) {
	x, y := separableMatrix()
	params := smallParams()
	params.Subsample = 0.7
	params.ColsampleByTree = 0.5

	a := NewGradientBoostedTrees(params)
	b := NewGradientBoostedTrees(params)
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	pa, err := a.PredictProba(x)
	require.NoError(t, err)
	pb, err := b.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestGradientBoostedTreesScalePosWeight(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := []int{0, 0, 0, 1}

	plain := smallParams()
	weighted := smallParams()
	weighted.ScalePosWeight = 3

	a := NewGradientBoostedTrees(plain)
	b := NewGradientBoostedTrees(weighted)
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	pa, _ := a.PredictProba(x)
	pb, _ := b.PredictProba(x)
	assert.Less(t, pa[0], 0.5)
	assert.InDelta(t, 0.5, pb[0], 0.05, "positives weighted 3x balance a 3:1 split")
}

func TestGradientBoostedTreesErrors(t *testing.T) {
	x, y := separableMatrix()

	m := NewGradientBoostedTrees(smallParams())
	_, err := m.PredictProba(x)
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Error(t, m.Fit(x, y[:3]))

	bad := smallParams()
	bad.Subsample = 0
	assert.Error(t, NewGradientBoostedTrees(bad).Fit(x, y))

	require.NoError(t, m.Fit(x, y))
	_, err = m.PredictProba(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestBoosterParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultBoosterParams().Validate())

	cases := map[string]func(*BoosterParams){
		"estimators": func(p *BoosterParams) { p.NEstimators = 0 },
		"rate":       func(p *BoosterParams) { p.LearningRate = 0 },
		"depth":      func(p *BoosterParams) { p.MaxDepth = 0 },
		"colsample":  func(p *BoosterParams) { p.ColsampleByTree = 1.5 },
		"gamma":      func(p *BoosterParams) { p.Gamma = -1 },
		"weight":     func(p *BoosterParams) { p.ScalePosWeight = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultBoosterParams()
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
