package ml

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UniformInt draws integers from [Low, High).
type UniformInt struct {
	Low, High int
}

func (d UniformInt) Sample(rng *rand.Rand) int {
	if d.High <= d.Low {
		return d.Low
	}
	return d.Low + rng.Intn(d.High-d.Low)
}

// UniformFloat draws floats from [Low, High).
type UniformFloat struct {
	Low, High float64
}

func (d UniformFloat) Sample(rng *rand.Rand) float64 {
	if d.High <= d.Low {
		return d.Low
	}
	return d.Low + rng.Float64()*(d.High-d.Low)
}

// SearchSpace holds one distribution per tuned hyperparameter. Params not
// listed here keep the values from Base.
type SearchSpace struct {
	Base            BoosterParams
	NEstimators     UniformInt
	LearningRate    UniformFloat
	MaxDepth        UniformInt
	Subsample       UniformFloat
	ColsampleByTree UniformFloat
	Gamma           UniformFloat
	ScalePosWeight  UniformFloat
}

// DefaultSearchSpace centres scale_pos_weight on the negative/positive ratio
// of the training labels.
func DefaultSearchSpace(classWeight float64) SearchSpace {
	return SearchSpace{
		Base:            DefaultBoosterParams(),
		NEstimators:     UniformInt{Low: 100, High: 1000},
		LearningRate:    UniformFloat{Low: 0.01, High: 0.30},
		MaxDepth:        UniformInt{Low: 3, High: 10},
		Subsample:       UniformFloat{Low: 0.6, High: 1.0},
		ColsampleByTree: UniformFloat{Low: 0.6, High: 1.0},
		Gamma:           UniformFloat{Low: 0, High: 0.5},
		ScalePosWeight:  UniformFloat{Low: 0.9 * classWeight, High: 1.1 * classWeight},
	}
}

func (s SearchSpace) Sample(rng *rand.Rand) BoosterParams {
	p := s.Base
	p.NEstimators = s.NEstimators.Sample(rng)
	p.LearningRate = s.LearningRate.Sample(rng)
	p.MaxDepth = s.MaxDepth.Sample(rng)
	p.Subsample = s.Subsample.Sample(rng)
	p.ColsampleByTree = s.ColsampleByTree.Sample(rng)
	p.Gamma = s.Gamma.Sample(rng)
	p.ScalePosWeight = s.ScalePosWeight.Sample(rng)
	return p
}

// SearchConfig controls RandomizedSearch.
type SearchConfig struct {
	Iterations  int
	Folds       int
	Seed        int64
	Workers     int
	Numerical   []string
	Categorical []string
	Logger      *zap.Logger
}

// Candidate is one sampled parameter set with its cross-validated score.
type Candidate struct {
	Index      int           `json:"index"`
	Params     BoosterParams `json:"params"`
	FoldScores []float64     `json:"fold_scores"`
	MeanScore  float64       `json:"mean_score"`
	Duration   time.Duration `json:"duration"`
}

// SearchResult carries every candidate plus the winner refitted on all rows.
type SearchResult struct {
	Candidates []Candidate
	Best       Candidate
	Pipeline   *Pipeline
}

type foldJob struct {
	candidate int
	fold      int
}

type foldScore struct {
	foldJob
	score    float64
	duration time.Duration
	err      error
}

// RandomizedSearch samples cfg.Iterations parameter sets, scores each by
// mean ROC AUC over stratified folds, then refits the best one on the whole
// of x. Ties go to the earliest candidate. Every candidate/fold pair runs on
// a bounded worker pool; the first failure cancels the rest.
func RandomizedSearch(ctx context.Context, x *Frame, y []int, space SearchSpace, cfg SearchConfig) (*SearchResult, error) {
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("search iterations must be positive, got %d", cfg.Iterations)
	}
	if x.Len() != len(y) {
		return nil, fmt.Errorf("features and labels size mismatch: %d != %d", x.Len(), len(y))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	folds, err := StratifiedKFold(y, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	candidates := make([]Candidate, cfg.Iterations)
	for i := range candidates {
		candidates[i] = Candidate{
			Index:      i,
			Params:     space.Sample(rng),
			FoldScores: make([]float64, len(folds)),
		}
	}

	type foldData struct {
		trainX, testX *Frame
		trainY, testY []int
	}
	data := make([]foldData, len(folds))
	for i, f := range folds {
		data[i] = foldData{
			trainX: x.Take(f.Train),
			testX:  x.Take(f.Test),
			trainY: SubsetLabels(y, f.Train),
			testY:  SubsetLabels(y, f.Test),
		}
	}

	logger.Info("Starting randomized search",
		zap.Int("candidates", len(candidates)),
		zap.Int("folds", len(folds)),
		zap.Int("fits", len(candidates)*len(folds)),
		zap.Int("workers", workers))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan foldJob)
	results := make(chan foldScore)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				start := time.Now()
				d := data[job.fold]
				score, err := scoreFold(candidates[job.candidate].Params, cfg, d.trainX, d.trainY, d.testX, d.testY)
				select {
				case results <- foldScore{foldJob: job, score: score, duration: time.Since(start), err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for c := range candidates {
			for f := range folds {
				select {
				case jobs <- foldJob{candidate: c, fold: f}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	done := 0
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("candidate %d fold %d: %w", res.candidate, res.fold, res.err)
				cancel()
			}
			continue
		}
		c := &candidates[res.candidate]
		c.FoldScores[res.fold] = res.score
		c.Duration += res.duration
		done++
		logger.Debug("Fold scored",
			zap.Int("candidate", res.candidate),
			zap.Int("fold", res.fold),
			zap.Float64("roc_auc", res.score),
			zap.Int("completed", done))
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && done < len(candidates)*len(folds) {
		return nil, err
	}

	bestIdx := -1
	for i := range candidates {
		var sum float64
		for _, s := range candidates[i].FoldScores {
			sum += s
		}
		candidates[i].MeanScore = sum / float64(len(folds))
		if bestIdx < 0 || candidates[i].MeanScore > candidates[bestIdx].MeanScore {
			bestIdx = i
		}
	}
	best := candidates[bestIdx]
	logger.Info("Randomized search finished",
		zap.Int("best_candidate", best.Index),
		zap.Float64("best_mean_roc_auc", best.MeanScore))

	pipeline := NewPipeline(cfg.Numerical, cfg.Categorical, best.Params)
	if err := pipeline.Fit(x, y); err != nil {
		return nil, fmt.Errorf("refit best candidate: %w", err)
	}

	return &SearchResult{
		Candidates: candidates,
		Best:       best,
		Pipeline:   pipeline,
	}, nil
}

func scoreFold(params BoosterParams, cfg SearchConfig, trainX *Frame, trainY []int, testX *Frame, testY []int) (float64, error) {
	p := NewPipeline(cfg.Numerical, cfg.Categorical, params)
	if err := p.Fit(trainX, trainY); err != nil {
		return 0, err
	}
	scores, err := p.PositiveScores(testX)
	if err != nil {
		return 0, err
	}
	auc, err := ROCAUC(testY, scores)
	if errors.Is(err, ErrSingleClass) {
		return 0, fmt.Errorf("validation fold has a single class: %w", err)
	}
	return auc, err
}
