package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const pipelineFormatVersion = 1

// Pipeline chains the column transformer and the classifier. It is the single
// serving artifact.
type Pipeline struct {
	Version      int                   `json:"version"`
	TrainedAt    time.Time             `json:"trained_at"`
	Preprocessor *ColumnTransformer    `json:"preprocessor"`
	Classifier   *GradientBoostedTrees `json:"classifier"`
}

func NewPipeline(numerical, categorical []string, params BoosterParams) *Pipeline {
	return &Pipeline{
		Version:      pipelineFormatVersion,
		Preprocessor: NewColumnTransformer(numerical, categorical),
		Classifier:   NewGradientBoostedTrees(params),
	}
}

// Fit fits the preprocessor on x, then the classifier on the transformed x.
func (p *Pipeline) Fit(x *Frame, y []int) error {
	if x.Len() != len(y) {
		return fmt.Errorf("features and labels size mismatch: %d != %d", x.Len(), len(y))
	}
	matrix, err := p.Preprocessor.FitTransform(x)
	if err != nil {
		return fmt.Errorf("fit preprocessor: %w", err)
	}
	if err := p.Classifier.Fit(matrix, y); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}
	p.TrainedAt = time.Now().UTC()
	return nil
}

// PredictProba returns [P(no), P(yes)] for each row of x.
func (p *Pipeline) PredictProba(x *Frame) ([][2]float64, error) {
	if p.Preprocessor == nil || p.Classifier == nil {
		return nil, fmt.Errorf("pipeline: %w", ErrNotFitted)
	}
	matrix, err := p.Preprocessor.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	positive, err := p.Classifier.PredictProba(matrix)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, len(positive))
	for i, prob := range positive {
		out[i] = [2]float64{1 - prob, prob}
	}
	return out, nil
}

// PositiveScores returns only P(yes) for each row.
func (p *Pipeline) PositiveScores(x *Frame) ([]float64, error) {
	probs, err := p.PredictProba(x)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(probs))
	for i, pr := range probs {
		scores[i] = pr[1]
	}
	return scores, nil
}

// Save writes the fitted pipeline atomically; an existing artifact is only
// replaced once the new one is fully on disk.
func (p *Pipeline) Save(path string) error {
	if p.Preprocessor == nil || !p.Preprocessor.fitted() || p.Classifier == nil || len(p.Classifier.Trees) == 0 {
		return fmt.Errorf("pipeline: %w", ErrNotFitted)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload, 0o644)
}

func decodePipeline(payload []byte) (*Pipeline, error) {
	var p Pipeline
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.Version != pipelineFormatVersion {
		return nil, fmt.Errorf("unsupported pipeline format version %d", p.Version)
	}
	if p.Preprocessor == nil || !p.Preprocessor.fitted() {
		return nil, errors.New("pipeline has no fitted preprocessor")
	}
	if p.Classifier == nil || len(p.Classifier.Trees) == 0 {
		return nil, errors.New("pipeline has no fitted classifier")
	}
	if p.Classifier.NumFeatures != p.Preprocessor.NumOutputs() {
		return nil, fmt.Errorf("classifier expects %d features, preprocessor yields %d",
			p.Classifier.NumFeatures, p.Preprocessor.NumOutputs())
	}
	return &p, nil
}
