// Package predictor serves single-record predictions from the trained
// pipeline.
package predictor

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"termdeposit/ml"
)

// State is everything a prediction needs. It never changes after LoadState;
// a reload builds a new one.
type State struct {
	Pipeline         *ml.Pipeline
	TrainingFeatures []string
	BinaryFeatures   []string
	LoadedAt         time.Time

	cache     *lru.Cache[string, Prediction]
	cacheSize int
}

// LoadState reads the artifacts in store. A missing or undecodable pipeline
// is an error; missing feature lists fall back to the built-in lists with a
// warning. cacheSize <= 0 disables the result cache.
func LoadState(store ml.ArtifactStore, cacheSize int, logger *zap.Logger) (*State, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pipeline, err := store.LoadPipeline()
	if err != nil {
		return nil, fmt.Errorf("load model pipeline: %w", err)
	}
	logger.Info("Model loaded successfully", zap.String("path", store.PipelinePath()))

	training, err := store.LoadTrainingFeatures()
	if err != nil {
		logger.Warn("Failed to load training features, using default training features",
			zap.String("path", store.TrainingFeaturesPath()), zap.Error(err))
		training = ml.TrainingFeatures()
	}

	binary, err := store.LoadBinaryFeatures()
	if err != nil {
		logger.Warn("Failed to load binary features, using default binary features",
			zap.String("path", store.BinaryFeaturesPath()), zap.Error(err))
		binary = ml.BinaryFeatures()
	}

	return NewState(pipeline, training, binary, cacheSize)
}

// NewState assembles a state from already loaded parts.
func NewState(pipeline *ml.Pipeline, training, binary []string, cacheSize int) (*State, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("model pipeline: %w", ml.ErrNotFitted)
	}
	st := &State{
		Pipeline:         pipeline,
		TrainingFeatures: training,
		BinaryFeatures:   binary,
		LoadedAt:         time.Now().UTC(),
		cacheSize:        cacheSize,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		st.cache = cache
	}
	return st, nil
}
