package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testNumerical   = []string{"age", "balance"}
	testCategorical = []string{"job"}
)

// syntheticFrame builds a small learnable table: positives skew towards high
// balance and the "management" job. "loan" is a 0/1 passthrough column.
func syntheticFrame(t testing.TB, n int, seed int64) (*Frame, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	jobs := []string{"admin.", "management", "technician"}

	age := make([]Cell, n)
	balance := make([]Cell, n)
	job := make([]Cell, n)
	loan := make([]Cell, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		j := jobs[rng.Intn(len(jobs))]
		b := rng.NormFloat64()*500 + 1000
		positive := b > 1200 || (j == "management" && b > 900)
		if rng.Float64() < 0.05 {
			positive = !positive
		}
		if positive {
			y[i] = 1
		}
		age[i] = NumberCell(float64(20 + rng.Intn(50)))
		balance[i] = NumberCell(b)
		job[i] = StringCell(j)
		loan[i] = NumberCell(float64(rng.Intn(2)))
	}
	if n > 3 {
		age[3] = MissingCell()
	}

	f := NewFrame()
	require.NoError(t, f.SetColumn("age", age))
	require.NoError(t, f.SetColumn("job", job))
	require.NoError(t, f.SetColumn("balance", balance))
	require.NoError(t, f.SetColumn("loan", loan))
	return f, y
}

func smallParams() BoosterParams {
	p := DefaultBoosterParams()
	p.NEstimators = 20
	p.MaxDepth = 3
	return p
}
