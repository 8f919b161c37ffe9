package predictor

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"termdeposit/ml"
)

var (
	fixtureTraining = []string{"age", "job", "balance", "loan"}
	fixtureBinary   = []string{"loan"}
)

// fixturePipeline fits a small pipeline where a high balance means "yes".
func fixturePipeline(t *testing.T, seed int64) *ml.Pipeline {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	jobs := []string{"admin.", "management", "technician"}
	n := 300

	age := make([]ml.Cell, n)
	job := make([]ml.Cell, n)
	balance := make([]ml.Cell, n)
	loan := make([]ml.Cell, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		b := rng.NormFloat64()*800 + 1000
		if b > 1200 {
			y[i] = 1
		}
		age[i] = ml.NumberCell(float64(20 + rng.Intn(50)))
		job[i] = ml.StringCell(jobs[rng.Intn(len(jobs))])
		balance[i] = ml.NumberCell(b)
		loan[i] = ml.NumberCell(float64(rng.Intn(2)))
	}
	f := ml.NewFrame()
	require.NoError(t, f.SetColumn("age", age))
	require.NoError(t, f.SetColumn("job", job))
	require.NoError(t, f.SetColumn("balance", balance))
	require.NoError(t, f.SetColumn("loan", loan))

	params := ml.DefaultBoosterParams()
	params.NEstimators = 30
	params.MaxDepth = 3
	p := ml.NewPipeline([]string{"age", "balance"}, []string{"job"}, params)
	require.NoError(t, p.Fit(f, y))
	return p
}

func writeArtifacts(t *testing.T, dir string, p *ml.Pipeline) ml.ArtifactStore {
	t.Helper()
	store := ml.NewArtifactStore(dir)
	require.NoError(t, store.Ensure())
	require.NoError(t, store.SavePipeline(p))
	require.NoError(t, store.SaveTrainingFeatures(fixtureTraining))
	require.NoError(t, store.SaveBinaryFeatures(fixtureBinary))
	return store
}

func record(balance float64) map[string]ml.Cell {
	return map[string]ml.Cell{
		"age":     ml.NumberCell(41),
		"job":     ml.StringCell("management"),
		"balance": ml.NumberCell(balance),
		"loan":    ml.StringCell("no"),
		"ignored": ml.StringCell("dropped"),
	}
}

func TestServicePredict(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 16, zaptest.NewLogger(t))
	require.NoError(t, err)

	yes, err := svc.Predict(context.Background(), record(4000))
	require.NoError(t, err)
	assert.Equal(t, LabelYes, yes.Label)
	assert.Greater(t, yes.Probability, Threshold)

	no, err := svc.Predict(context.Background(), record(-1000))
	require.NoError(t, err)
	assert.Equal(t, LabelNo, no.Label)
	assert.LessOrEqual(t, no.Probability, Threshold)
	assert.GreaterOrEqual(t, no.Probability, 0.0)
}

func TestServicePredictCaches(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 16, nil)
	require.NoError(t, err)

	first, err := svc.Predict(context.Background(), record(2500))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Predict(context.Background(), record(2500))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Probability, second.Probability)
	assert.Equal(t, first.Label, second.Label)
}

func TestServicePredictWithoutCache(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p, err := svc.Predict(context.Background(), record(2500))
		require.NoError(t, err)
		assert.False(t, p.Cached)
	}
}

func TestServicePredictMissingFields(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 16, nil)
	require.NoError(t, err)

	p, err := svc.Predict(context.Background(), map[string]ml.Cell{"balance": ml.NumberCell(100)})
	require.NoError(t, err)
	assert.Contains(t, []string{LabelYes, LabelNo}, p.Label)
}

func TestServicePredictCancelled(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 16, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Predict(ctx, record(100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceNotReady(t *testing.T) {
	svc := NewWithState(nil, ml.NewArtifactStore(t.TempDir()), nil)
	_, err := svc.Predict(context.Background(), record(100))
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "OK", svc.Health())
}

func TestNewMissingPipeline(t *testing.T) {
	_, err := New(ml.NewArtifactStore(t.TempDir()), 16, nil)
	assert.ErrorIs(t, err, ml.ErrArtifactMissing)
}

func TestLoadStateFallsBackToDefaultFeatures(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	require.NoError(t, os.Remove(store.TrainingFeaturesPath()))
	require.NoError(t, os.Remove(store.BinaryFeaturesPath()))

	st, err := LoadState(store, 4, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, ml.TrainingFeatures(), st.TrainingFeatures)
	assert.Equal(t, ml.BinaryFeatures(), st.BinaryFeatures)

	svc := NewWithState(st, store, nil)
	_, err = svc.Predict(context.Background(), record(3000))
	assert.NoError(t, err)
}

func TestLoadStateFallsBackOnUnusableFeatureLists(t *testing.T) {
	cases := []struct {
		name     string
		training string
		binary   string
	}{
		{name: "null lists", training: "null", binary: "null"},
		{name: "empty training list", training: "[]", binary: "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
			require.NoError(t, os.WriteFile(store.TrainingFeaturesPath(), []byte(tc.training), 0o644))
			require.NoError(t, os.WriteFile(store.BinaryFeaturesPath(), []byte(tc.binary), 0o644))

			svc, err := New(store, 0, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, ml.TrainingFeatures(), svc.State().TrainingFeatures)
			assert.Equal(t, ml.BinaryFeatures(), svc.State().BinaryFeatures)

			p, err := svc.Predict(context.Background(), record(3000))
			require.NoError(t, err)
			assert.Contains(t, []string{LabelYes, LabelNo}, p.Label)
		})
	}
}

func TestReloadSwapsState(t *testing.T) {
	dir := t.TempDir()
	store := writeArtifacts(t, dir, fixturePipeline(t, 1))
	svc, err := New(store, 16, nil)
	require.NoError(t, err)
	before := svc.State()

	_, err = svc.Predict(context.Background(), record(2500))
	require.NoError(t, err)

	writeArtifacts(t, dir, fixturePipeline(t, 2))
	require.NoError(t, svc.Reload())

	after := svc.State()
	assert.NotSame(t, before, after)
	assert.Equal(t, before.cacheSize, after.cacheSize)

	p, err := svc.Predict(context.Background(), record(2500))
	require.NoError(t, err)
	assert.False(t, p.Cached, "fresh state starts with an empty cache")
}

func TestReloadFailureKeepsState(t *testing.T) {
	store := writeArtifacts(t, t.TempDir(), fixturePipeline(t, 1))
	svc, err := New(store, 16, nil)
	require.NoError(t, err)
	before := svc.State()

	require.NoError(t, os.WriteFile(store.PipelinePath(), []byte("{broken"), 0o644))
	assert.Error(t, svc.Reload())
	assert.Same(t, before, svc.State())

	_, err = svc.Predict(context.Background(), record(2500))
	assert.NoError(t, err)
}

func TestBinaryEncodingErrorSurfaces(t *testing.T) {
	p := fixturePipeline(t, 1)
	st, err := NewState(p, fixtureTraining, []string{"housing"}, 0)
	require.NoError(t, err)
	svc := NewWithState(st, ml.NewArtifactStore(t.TempDir()), nil)

	_, err = svc.Predict(context.Background(), record(100))
	var missing *ml.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "housing", missing.Column)
}

func TestCacheKeyFollowsFeatureOrder(t *testing.T) {
	order := []string{"a", "b"}
	k1 := cacheKey(order, map[string]ml.Cell{"a": ml.NumberCell(1), "b": ml.StringCell("x"), "c": ml.NumberCell(9)})
	k2 := cacheKey(order, map[string]ml.Cell{"b": ml.StringCell("x"), "a": ml.NumberCell(1)})
	k3 := cacheKey(order, map[string]ml.Cell{"a": ml.StringCell("1"), "b": ml.StringCell("x")})
	k4 := cacheKey(order, map[string]ml.Cell{"b": ml.StringCell("x")})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
}

func TestWatchReloadsOnArtifactChange(t *testing.T) {
	dir := t.TempDir()
	store := writeArtifacts(t, dir, fixturePipeline(t, 1))
	svc, err := New(store, 16, zaptest.NewLogger(t))
	require.NoError(t, err)
	before := svc.State()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, store.SavePipeline(fixturePipeline(t, 3)))

	assert.Eventually(t, func() bool { return svc.State() != before }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestIsServingArtifact(t *testing.T) {
	assert.True(t, isServingArtifact("/a/"+ml.PipelineFile))
	assert.True(t, isServingArtifact(ml.BinaryFeaturesFile))
	assert.False(t, isServingArtifact("/a/"+ml.RunLogFile))
	assert.False(t, isServingArtifact("/a/.tmp-123"))
}
