package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BoosterParams mirrors the usual gradient boosting knobs.
type BoosterParams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	Gamma           float64 `json:"gamma"`
	ScalePosWeight  float64 `json:"scale_pos_weight"`
	Lambda          float64 `json:"lambda"`
	MinChildWeight  float64 `json:"min_child_weight"`
	Seed            int64   `json:"seed"`
}

func DefaultBoosterParams() BoosterParams {
	return BoosterParams{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		Subsample:       1,
		ColsampleByTree: 1,
		Gamma:           0,
		ScalePosWeight:  1,
		Lambda:          1,
		MinChildWeight:  1,
		Seed:            42,
	}
}

func (p BoosterParams) Validate() error {
	switch {
	case p.NEstimators <= 0:
		return errors.New("n_estimators must be positive")
	case p.LearningRate <= 0:
		return errors.New("learning_rate must be positive")
	case p.MaxDepth <= 0:
		return errors.New("max_depth must be positive")
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.New("subsample must be in (0, 1]")
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return errors.New("colsample_bytree must be in (0, 1]")
	case p.Gamma < 0:
		return errors.New("gamma must be non-negative")
	case p.ScalePosWeight <= 0:
		return errors.New("scale_pos_weight must be positive")
	case p.Lambda < 0:
		return errors.New("lambda must be non-negative")
	case p.MinChildWeight < 0:
		return errors.New("min_child_weight must be non-negative")
	}
	return nil
}

// GradientBoostedTrees is a binary classifier trained with logistic loss.
// Positive-class rows are weighted by ScalePosWeight.
type GradientBoostedTrees struct {
	Params      BoosterParams    `json:"params"`
	BaseMargin  float64          `json:"base_margin"`
	NumFeatures int              `json:"num_features"`
	Trees       []RegressionTree `json:"trees"`
}

func NewGradientBoostedTrees(params BoosterParams) *GradientBoostedTrees {
	return &GradientBoostedTrees{Params: params}
}

func (m *GradientBoostedTrees) Fit(x *mat.Dense, y []int) error {
	if err := m.Params.Validate(); err != nil {
		return err
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return ErrEmptyDataset
	}
	if rows != len(y) {
		return fmt.Errorf("features and labels size mismatch: %d != %d", rows, len(y))
	}

	p := m.Params
	rng := rand.New(rand.NewSource(p.Seed))
	bm := newBinnedMatrix(x, defaultMaxBins)
	tp := treeParams{
		maxDepth:       p.MaxDepth,
		learningRate:   p.LearningRate,
		lambda:         p.Lambda,
		gamma:          p.Gamma,
		minChildWeight: p.MinChildWeight,
	}

	weights := make([]float64, rows)
	for i, label := range y {
		weights[i] = 1
		if label == 1 {
			weights[i] = p.ScalePosWeight
		}
	}

	margins := make([]float64, rows)
	grad := make([]float64, rows)
	hess := make([]float64, rows)
	rowCount := max(1, int(math.Round(p.Subsample*float64(rows))))
	colCount := max(1, int(math.Round(p.ColsampleByTree*float64(cols))))

	m.Trees = make([]RegressionTree, 0, p.NEstimators)
	m.BaseMargin = 0
	m.NumFeatures = cols
	for round := 0; round < p.NEstimators; round++ {
		for i := range margins {
			prob := sigmoid(margins[i])
			grad[i] = (prob - float64(y[i])) * weights[i]
			hess[i] = math.Max(prob*(1-prob), 1e-16) * weights[i]
		}

		sampled := sampleIndices(rng, rows, rowCount)
		features := sampleIndices(rng, cols, colCount)
		tree := buildTree(bm, grad, hess, sampled, features, tp)
		m.Trees = append(m.Trees, tree)

		for i := range margins {
			margins[i] += tree.Predict(x.RawRowView(i))
		}
	}
	return nil
}

// PredictProba returns the positive-class probability for each row.
func (m *GradientBoostedTrees) PredictProba(x *mat.Dense) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("classifier: %w", ErrNotFitted)
	}
	rows, cols := x.Dims()
	if cols != m.NumFeatures {
		return nil, fmt.Errorf("classifier expects %d features, got %d", m.NumFeatures, cols)
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = sigmoid(m.margin(x.RawRowView(i)))
	}
	return out, nil
}

func (m *GradientBoostedTrees) margin(row []float64) float64 {
	sum := m.BaseMargin
	for i := range m.Trees {
		sum += m.Trees[i].Predict(row)
	}
	return sum
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// sampleIndices draws k distinct indices from [0, n), returned sorted.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := rng.Perm(n)[:k]
	sort.Ints(picked)
	return picked
}
