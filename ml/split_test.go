package ml

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(neg, pos int) []int {
	y := make([]int, 0, neg+pos)
	for i := 0; i < neg; i++ {
		y = append(y, 0)
	}
	for i := 0; i < pos; i++ {
		y = append(y, 1)
	}
	return y
}

func TestStratifiedTrainTestSplit(t *testing.T) {
	y := labels(90, 10)
	train, test, err := StratifiedTrainTestSplit(y, 0.2, 42)
	require.NoError(t, err)

	assert.Len(t, test, 20)
	assert.Len(t, train, 80)
	_, testPos := ClassCounts(SubsetLabels(y, test))
	_, trainPos := ClassCounts(SubsetLabels(y, train))
	assert.Equal(t, 2, testPos)
	assert.Equal(t, 8, trainPos)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, r := range all {
		assert.Equal(t, i, r)
	}

	train2, test2, err := StratifiedTrainTestSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, test3, err := StratifiedTrainTestSplit(y, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test, test3)
}

func TestStratifiedTrainTestSplitErrors(t *testing.T) {
	_, _, err := StratifiedTrainTestSplit(nil, 0.2, 42)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, _, err = StratifiedTrainTestSplit(labels(10, 1), 0.2, 42)
	assert.Error(t, err)

	_, _, err = StratifiedTrainTestSplit(labels(10, 10), 1.5, 42)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	y := labels(30, 9)
	folds, err := StratifiedKFold(y, 3, 42)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	seen := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Train, len(y)-len(f.Test))
		assert.True(t, sort.IntsAreSorted(f.Test))
		_, pos := ClassCounts(SubsetLabels(y, f.Test))
		assert.Equal(t, 3, pos)
		for _, r := range f.Test {
			seen[r]++
		}
	}
	assert.Len(t, seen, len(y))
	for _, n := range seen {
		assert.Equal(t, 1, n, "every row is tested exactly once")
	}
}

func TestStratifiedKFoldErrors(t *testing.T) {
	_, err := StratifiedKFold(labels(10, 10), 1, 42)
	assert.Error(t, err)

	_, err = StratifiedKFold(labels(10, 2), 3, 42)
	assert.ErrorContains(t, err, "fewer than 3 folds")
}
