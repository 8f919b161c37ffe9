package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineFitPredict(t *testing.T) {
	x, y := syntheticFrame(t, 300, 7)
	p := NewPipeline(testNumerical, testCategorical, smallParams())
	require.NoError(t, p.Fit(x, y))
	assert.False(t, p.TrainedAt.IsZero())

	probs, err := p.PredictProba(x)
	require.NoError(t, err)
	require.Len(t, probs, 300)
	for _, pr := range probs {
		assert.InDelta(t, 1.0, pr[0]+pr[1], 1e-12)
	}

	scores, err := p.PositiveScores(x)
	require.NoError(t, err)
	auc, err := ROCAUC(y, scores)
	require.NoError(t, err)
	assert.Greater(t, auc, 0.85)
}

func TestPipelineSaveLoadRoundTrip(t *testing.T) {
	x, y := syntheticFrame(t, 200, 11)
	p := NewPipeline(testNumerical, testCategorical, smallParams())
	require.NoError(t, p.Fit(x, y))

	path := filepath.Join(t.TempDir(), PipelineFile)
	require.NoError(t, p.Save(path))

	loaded, err := LoadPipeline(path)
	require.NoError(t, err)

	want, err := p.PredictProba(x)
	require.NoError(t, err)
	got, err := loaded.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, p.Preprocessor.FeatureNames(), loaded.Preprocessor.FeatureNames())
}

func TestPipelineSaveUnfitted(t *testing.T) {
	p := NewPipeline(testNumerical, testCategorical, smallParams())
	err := p.Save(filepath.Join(t.TempDir(), PipelineFile))
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLoadPipelineErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPipeline(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, ErrArtifactMissing)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, err = LoadPipeline(garbage)
	assert.Error(t, err)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 99}`), 0o644))
	_, err = LoadPipeline(future)
	assert.ErrorContains(t, err, "version")
}

func TestPipelineMissingInputColumn(t *testing.T) {
	x, y := syntheticFrame(t, 100, 3)
	p := NewPipeline(testNumerical, testCategorical, smallParams())
	require.NoError(t, p.Fit(x, y))

	_, err := p.PredictProba(x.Drop("balance"))
	var missing *MissingColumnError
	assert.ErrorAs(t, err, &missing)
}
