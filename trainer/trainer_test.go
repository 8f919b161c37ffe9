package trainer

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"termdeposit/ml"
)

// writeDataset writes a bank-marketing shaped CSV where long calls and a
// previous success drive subscription.
func writeDataset(t *testing.T, dir string, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	pick := func(values ...string) string { return values[rng.Intn(len(values))] }

	var b strings.Builder
	b.WriteString(`"age";"job";"marital";"education";"default";"balance";"housing";"loan";"contact";"day";"month";"duration";"campaign";"pdays";"previous";"poutcome";"y"` + "\n")
	for i := 0; i < rows; i++ {
		duration := rng.Intn(1200)
		poutcome := pick("unknown", "failure", "other", "success")
		y := "no"
		if duration > 700 || (poutcome == "success" && duration > 300) {
			y = "yes"
		}
		fmt.Fprintf(&b, "%d;%s;%s;%s;%s;%d;%s;%s;%s;%d;%s;%d;%d;%d;%d;%s;%s\n",
			18+rng.Intn(60),
			pick("admin.", "management", "technician", "services"),
			pick("married", "single", "divorced"),
			pick("primary", "secondary", "tertiary", "unknown"),
			pick("no", "no", "yes"),
			rng.Intn(5000)-500,
			pick("yes", "no"),
			pick("yes", "no"),
			pick("cellular", "telephone", "unknown"),
			1+rng.Intn(31),
			pick("jan", "may", "aug", "nov"),
			duration,
			1+rng.Intn(5),
			-1,
			rng.Intn(3),
			poutcome,
			y,
		)
	}
	path := filepath.Join(dir, "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func fastSpace() *ml.SearchSpace {
	s := ml.DefaultSearchSpace(3)
	s.NEstimators = ml.UniformInt{Low: 10, High: 20}
	s.MaxDepth = ml.UniformInt{Low: 2, High: 4}
	s.LearningRate = ml.UniformFloat{Low: 0.2, High: 0.3}
	return &s
}

func TestRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "artifacts")
	opts := DefaultOptions(writeDataset(t, dir, 300), artifacts)
	opts.Iterations = 2
	opts.Folds = 3
	opts.Space = fastSpace()
	opts.RecordHistory = true

	res, err := Run(context.Background(), opts, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 300, res.Rows)
	assert.Equal(t, 300, res.Positives+res.Negatives)
	assert.Equal(t, 60, res.TestRows)
	assert.Equal(t, 240, res.TrainRows)
	assert.Greater(t, res.HoldoutAUC, 0.8)
	assert.NotEmpty(t, res.RunID)

	store := ml.NewArtifactStore(artifacts)
	binary, err := store.LoadBinaryFeatures()
	require.NoError(t, err)
	assert.Equal(t, ml.BinaryFeatures(), binary)

	features, err := store.LoadTrainingFeatures()
	require.NoError(t, err)
	assert.Equal(t, ml.TrainingFeatures(), features)

	pipeline, err := store.LoadPipeline()
	require.NoError(t, err)
	assert.Equal(t, res.Best.Params, pipeline.Classifier.Params)
	assert.Equal(t, []string{"default", "housing", "loan"}, pipeline.Preprocessor.Remainder)

	runs, err := History(artifacts, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
	assert.InDelta(t, res.HoldoutAUC, runs[0].HoldoutAUC, 1e-12)
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	dataset := writeDataset(t, dir, 200)
	run := func(sub string) *Result {
		opts := DefaultOptions(dataset, filepath.Join(dir, sub))
		opts.Iterations = 2
		opts.Folds = 2
		opts.Space = fastSpace()
		res, err := Run(context.Background(), opts, nil)
		require.NoError(t, err)
		return res
	}

	a, b := run("a"), run("b")
	assert.Equal(t, a.Best.Params, b.Best.Params)
	assert.Equal(t, a.HoldoutAUC, b.HoldoutAUC)
	assert.Empty(t, a.RunID, "history disabled")
}

func TestRunMissingDataset(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(filepath.Join(dir, "absent.csv"), filepath.Join(dir, "artifacts"))
	_, err := Run(context.Background(), opts, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunMissingBinaryColumnAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte("age;housing;loan;y\n30;yes;no;no\n40;no;no;yes\n"), 0o644))

	_, err := Run(context.Background(), DefaultOptions(path, filepath.Join(dir, "artifacts")), nil)

	var missing *ml.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "default", missing.Column)
	_, statErr := os.Stat(filepath.Join(dir, "artifacts", ml.PipelineFile))
	assert.ErrorIs(t, statErr, os.ErrNotExist, "no pipeline written on failure")
}

func TestRunNoPositives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte("default;housing;loan;y\nno;yes;no;no\nno;no;no;no\n"), 0o644))

	_, err := Run(context.Background(), DefaultOptions(path, filepath.Join(dir, "artifacts")), nil)
	assert.ErrorIs(t, err, ErrNoPositives)
}

func TestRunRejectsBadOptions(t *testing.T) {
	dir := t.TempDir()
	base := DefaultOptions(writeDataset(t, dir, 50), filepath.Join(dir, "artifacts"))

	cases := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero iterations", func(o *Options) { o.Iterations = 0 }},
		{"negative iterations", func(o *Options) { o.Iterations = -1 }},
		{"zero folds", func(o *Options) { o.Folds = 0 }},
		{"single fold", func(o *Options) { o.Folds = 1 }},
		{"zero test size", func(o *Options) { o.TestSize = 0 }},
		{"whole dataset as test", func(o *Options) { o.TestSize = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := base
			tc.modify(&opts)
			_, err := Run(context.Background(), opts, nil)
			assert.Error(t, err)
		})
	}
	_, statErr := os.Stat(base.ArtifactsDir)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "options are checked before touching disk")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("data.csv", "artifacts")
	assert.Equal(t, "data.csv", opts.DatasetPath)
	assert.Equal(t, "artifacts", opts.ArtifactsDir)
	assert.Equal(t, DefaultIterations, opts.Iterations)
	assert.Equal(t, DefaultFolds, opts.Folds)
	assert.Equal(t, int64(DefaultSeed), opts.Seed)
	assert.Equal(t, DefaultTestSize, opts.TestSize)
}
