package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Fold holds the row indices of one cross-validation split.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedTrainTestSplit holds out testSize of every class. The same seed
// always yields the same split.
func StratifiedTrainTestSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	if len(y) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	rng := rand.New(rand.NewSource(seed))
	for _, class := range classesOf(y) {
		members := rowsOfClass(y, class)
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d member(s), need at least 2 to stratify", class, len(members))
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		n := int(math.Round(testSize * float64(len(members))))
		n = min(max(n, 1), len(members)-1)
		test = append(test, members[:n]...)
		train = append(train, members[n:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// StratifiedKFold deals every class round-robin over k folds after a seeded
// shuffle, so each fold keeps roughly the global class ratio.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("cv folds must be at least 2, got %d", k)
	}
	if len(y) < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", len(y), k)
	}
	rng := rand.New(rand.NewSource(seed))
	assignment := make([]int, len(y))
	for _, class := range classesOf(y) {
		members := rowsOfClass(y, class)
		if len(members) < k {
			return nil, fmt.Errorf("class %d has %d member(s), fewer than %d folds", class, len(members), k)
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		for i, row := range members {
			assignment[row] = i % k
		}
	}

	folds := make([]Fold, k)
	for row, fold := range assignment {
		for f := range folds {
			if f == fold {
				folds[f].Test = append(folds[f].Test, row)
			} else {
				folds[f].Train = append(folds[f].Train, row)
			}
		}
	}
	return folds, nil
}

// ClassCounts returns the number of negative and positive labels.
func ClassCounts(y []int) (negative, positive int) {
	for _, label := range y {
		if label == 1 {
			positive++
		} else {
			negative++
		}
	}
	return negative, positive
}

// SubsetLabels picks y at the given rows.
func SubsetLabels(y []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}

func classesOf(y []int) []int {
	seen := make(map[int]struct{})
	for _, label := range y {
		seen[label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

func rowsOfClass(y []int, class int) []int {
	var rows []int
	for i, label := range y {
		if label == class {
			rows = append(rows, i)
		}
	}
	return rows
}
