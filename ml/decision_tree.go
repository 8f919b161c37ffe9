package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxBins = 256
	missingBin     = math.MaxUint16
)

// RegressionTree is one boosting round: a binary tree over the transformed
// features whose leaves hold additive margin contributions.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	DefaultLeft bool    `json:"default_left"`
	Value       float64 `json:"value"`
	IsLeaf      bool    `json:"is_leaf"`
}

// Predict walks the tree. Values <= Threshold go left; NaN follows the
// node's learned default direction.
func (t *RegressionTree) Predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		x := math.NaN()
		if node.FeatureIdx >= 0 && node.FeatureIdx < len(features) {
			x = features[node.FeatureIdx]
		}
		switch {
		case math.IsNaN(x):
			if node.DefaultLeft {
				idx = node.LeftChild
			} else {
				idx = node.RightChild
			}
		case x <= node.Threshold:
			idx = node.LeftChild
		default:
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(t.Nodes) {
			return 0
		}
	}
}

func (t *RegressionTree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		if idx < 0 || idx >= len(t.Nodes) || t.Nodes[idx].IsLeaf {
			return 0
		}
		return 1 + max(walk(t.Nodes[idx].LeftChild), walk(t.Nodes[idx].RightChild))
	}
	return walk(0)
}

// binnedMatrix quantizes every feature against sorted cut points so split
// search runs over histograms instead of raw values. A value v lands in the
// first bin b with v <= cuts[b].
type binnedMatrix struct {
	rows, cols int
	bins       []uint16
	cuts       [][]float64
}

func newBinnedMatrix(x *mat.Dense, maxBins int) *binnedMatrix {
	rows, cols := x.Dims()
	bm := &binnedMatrix{
		rows: rows,
		cols: cols,
		bins: make([]uint16, rows*cols),
		cuts: make([][]float64, cols),
	}
	values := make([]float64, 0, rows)
	for j := 0; j < cols; j++ {
		values = values[:0]
		for i := 0; i < rows; i++ {
			if v := x.At(i, j); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		bm.cuts[j] = quantileCuts(values, maxBins)
		for i := 0; i < rows; i++ {
			v := x.At(i, j)
			if math.IsNaN(v) {
				bm.bins[i*cols+j] = missingBin
				continue
			}
			bm.bins[i*cols+j] = uint16(sort.SearchFloat64s(bm.cuts[j], v))
		}
	}
	return bm
}

func quantileCuts(values []float64, maxBins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	unique := sorted[:1]
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) <= maxBins {
		return append([]float64(nil), unique...)
	}
	cuts := make([]float64, 0, maxBins)
	n := len(sorted)
	for k := 1; k <= maxBins; k++ {
		v := sorted[k*n/maxBins-1]
		if len(cuts) == 0 || v != cuts[len(cuts)-1] {
			cuts = append(cuts, v)
		}
	}
	return cuts
}

type treeParams struct {
	maxDepth       int
	learningRate   float64
	lambda         float64
	gamma          float64
	minChildWeight float64
}

type treeBuilder struct {
	bm       *binnedMatrix
	grad     []float64
	hess     []float64
	features []int
	params   treeParams
	nodes    []TreeNode
}

type split struct {
	feature     int
	bin         int
	threshold   float64
	defaultLeft bool
	gain        float64
}

// buildTree grows one tree on the given rows and features with exact gain on
// histogram boundaries.
func buildTree(bm *binnedMatrix, grad, hess []float64, rows, features []int, params treeParams) RegressionTree {
	b := &treeBuilder{
		bm:       bm,
		grad:     grad,
		hess:     hess,
		features: features,
		params:   params,
	}
	b.grow(rows, 0)
	return RegressionTree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	var g, h float64
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})
	leaf := TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      -g / (h + b.params.lambda) * b.params.learningRate,
		IsLeaf:     true,
	}
	if depth >= b.params.maxDepth || len(rows) < 2 {
		b.nodes[idx] = leaf
		return idx
	}

	best, ok := b.findBestSplit(rows, g, h)
	if !ok {
		b.nodes[idx] = leaf
		return idx
	}

	left, right := b.partition(rows, best)
	if len(left) == 0 || len(right) == 0 {
		b.nodes[idx] = leaf
		return idx
	}

	node := TreeNode{
		FeatureIdx:  best.feature,
		Threshold:   best.threshold,
		DefaultLeft: best.defaultLeft,
	}
	node.LeftChild = b.grow(left, depth+1)
	node.RightChild = b.grow(right, depth+1)
	b.nodes[idx] = node
	return idx
}

func (b *treeBuilder) findBestSplit(rows []int, g, h float64) (split, bool) {
	lambda := b.params.lambda
	minChild := b.params.minChildWeight
	parent := g * g / (h + lambda)

	best := split{feature: -1}
	for _, f := range b.features {
		cuts := b.bm.cuts[f]
		if len(cuts) < 2 {
			continue
		}
		gh := make([]float64, len(cuts))
		hh := make([]float64, len(cuts))
		var gm, hm float64
		for _, r := range rows {
			bin := b.bm.bins[r*b.bm.cols+f]
			if bin == missingBin {
				gm += b.grad[r]
				hm += b.hess[r]
				continue
			}
			gh[bin] += b.grad[r]
			hh[bin] += b.hess[r]
		}

		var gl, hl float64
		for bin := 0; bin < len(cuts)-1; bin++ {
			gl += gh[bin]
			hl += hh[bin]
			for _, missingLeft := range [2]bool{false, true} {
				gL, hL := gl, hl
				if missingLeft {
					gL += gm
					hL += hm
				}
				gR, hR := g-gL, h-hL
				if hL < minChild || hR < minChild {
					continue
				}
				gain := 0.5*(gL*gL/(hL+lambda)+gR*gR/(hR+lambda)-parent) - b.params.gamma
				if gain > best.gain {
					best = split{
						feature:     f,
						bin:         bin,
						threshold:   cuts[bin],
						defaultLeft: missingLeft,
						gain:        gain,
					}
				}
			}
		}
	}
	return best, best.feature >= 0
}

func (b *treeBuilder) partition(rows []int, s split) (left, right []int) {
	left = make([]int, 0, len(rows))
	right = make([]int, 0, len(rows))
	for _, r := range rows {
		bin := b.bm.bins[r*b.bm.cols+s.feature]
		goLeft := s.defaultLeft
		if bin != missingBin {
			goLeft = int(bin) <= s.bin
		}
		if goLeft {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}
