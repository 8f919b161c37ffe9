// Package trainer builds, tunes and persists the subscription pipeline.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"termdeposit/db"
	"termdeposit/ml"
)

const (
	DefaultIterations = 100
	DefaultFolds      = 5
	DefaultSeed       = 42
	DefaultTestSize   = 0.2
)

var ErrNoPositives = errors.New("dataset has no positive labels")

type Options struct {
	DatasetPath  string
	ArtifactsDir string
	Iterations   int
	Folds        int
	Seed         int64
	TestSize     float64
	Workers      int
	// Space replaces the default search distributions when set.
	Space *ml.SearchSpace
	// RecordHistory appends the run to the sqlite training log.
	RecordHistory bool
}

// DefaultOptions returns the stock training configuration. Run takes every
// field literally, so zero values are rejected rather than defaulted.
func DefaultOptions(datasetPath, artifactsDir string) Options {
	return Options{
		DatasetPath:  datasetPath,
		ArtifactsDir: artifactsDir,
		Iterations:   DefaultIterations,
		Folds:        DefaultFolds,
		Seed:         DefaultSeed,
		TestSize:     DefaultTestSize,
	}
}

type Result struct {
	RunID        string
	Rows         int
	Positives    int
	Negatives    int
	ClassWeight  float64
	TrainRows    int
	TestRows     int
	Best         ml.Candidate
	HoldoutAUC   float64
	Holdout      ml.BinaryReport
	PipelinePath string
	Duration     time.Duration
}

// Run trains the pipeline end to end and writes every artifact. The binary
// and training feature lists are written before fitting, so they may exist
// even when the run fails.
func Run(ctx context.Context, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("hyper-tune iterations must be positive, got %d", opts.Iterations)
	}
	if opts.Folds < 2 {
		return nil, fmt.Errorf("cv folds must be at least 2, got %d", opts.Folds)
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, fmt.Errorf("test size must be within (0, 1), got %g", opts.TestSize)
	}
	start := time.Now()

	store := ml.NewArtifactStore(opts.ArtifactsDir)
	if err := store.Ensure(); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}

	logger.Info("========== Creating data pipeline ==========")
	logger.Info("Loading dataset", zap.String("path", opts.DatasetPath))
	frame, err := ml.LoadDataset(opts.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	binary := ml.BinaryFeatures()
	if err := store.SaveBinaryFeatures(binary); err != nil {
		return nil, fmt.Errorf("save binary features: %w", err)
	}

	logger.Info("Encoding binary features", zap.Strings("columns", binary))
	if err := ml.EncodeBinaryFeatures(frame, append(binary, ml.TargetColumn)); err != nil {
		return nil, fmt.Errorf("encode binary features: %w", err)
	}
	y, err := frame.Labels(ml.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	negatives, positives := ml.ClassCounts(y)
	if positives == 0 {
		return nil, ErrNoPositives
	}
	classWeight := float64(negatives) / float64(positives)
	logger.Info("Class balance",
		zap.Int("positive_count", positives),
		zap.Int("negative_count", negatives),
		zap.Float64("neg_pos_ratio", classWeight))

	x := frame.Drop(ml.TargetColumn)

	logger.Info("Splitting data", zap.Float64("test_size", opts.TestSize), zap.Int64("seed", opts.Seed))
	trainIdx, testIdx, err := ml.StratifiedTrainTestSplit(y, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	trainX, testX := x.Take(trainIdx), x.Take(testIdx)
	trainY, testY := ml.SubsetLabels(y, trainIdx), ml.SubsetLabels(y, testIdx)

	if err := store.SaveTrainingFeatures(x.Columns()); err != nil {
		return nil, fmt.Errorf("save training features: %w", err)
	}

	space := ml.DefaultSearchSpace(classWeight)
	if opts.Space != nil {
		space = *opts.Space
	}

	logger.Info("========== Running hyperparameter tuning via stratified CV ==========")
	search, err := ml.RandomizedSearch(ctx, trainX, trainY, space, ml.SearchConfig{
		Iterations:  opts.Iterations,
		Folds:       opts.Folds,
		Seed:        opts.Seed,
		Workers:     opts.Workers,
		Numerical:   ml.NumericalFeatures(),
		Categorical: ml.CategoricalFeatures(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("randomized search: %w", err)
	}
	best := search.Best
	logger.Info("Best ROC AUC score", zap.Float64("roc_auc", best.MeanScore))
	logger.Info("Best performing parameters",
		zap.Int("n_estimators", best.Params.NEstimators),
		zap.Float64("learning_rate", best.Params.LearningRate),
		zap.Int("max_depth", best.Params.MaxDepth),
		zap.Float64("subsample", best.Params.Subsample),
		zap.Float64("colsample_bytree", best.Params.ColsampleByTree),
		zap.Float64("gamma", best.Params.Gamma),
		zap.Float64("scale_pos_weight", best.Params.ScalePosWeight))

	scores, err := search.Pipeline.PositiveScores(testX)
	if err != nil {
		return nil, fmt.Errorf("score holdout: %w", err)
	}
	holdoutAUC, err := ml.ROCAUC(testY, scores)
	if err != nil {
		return nil, fmt.Errorf("holdout roc auc: %w", err)
	}
	report := ml.Evaluate(testY, scores, 0.5)
	logger.Info("ROC AUC score of best model on holdout test set",
		zap.Float64("roc_auc", holdoutAUC),
		zap.Float64("accuracy", report.Accuracy),
		zap.Float64("precision", report.Precision),
		zap.Float64("recall", report.Recall))

	logger.Info("Saving pipeline (data + best performing model)", zap.String("path", store.PipelinePath()))
	if err := store.SavePipeline(search.Pipeline); err != nil {
		return nil, fmt.Errorf("save pipeline: %w", err)
	}

	result := &Result{
		Rows:         len(y),
		Positives:    positives,
		Negatives:    negatives,
		ClassWeight:  classWeight,
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		Best:         best,
		HoldoutAUC:   holdoutAUC,
		Holdout:      report,
		PipelinePath: store.PipelinePath(),
		Duration:     time.Since(start),
	}

	if opts.RecordHistory {
		run, err := recordRun(store, opts, result)
		if err != nil {
			logger.Warn("Failed to record training run", zap.Error(err))
		} else {
			result.RunID = run.RunID
			logger.Info("Training run recorded", zap.String("run_id", run.RunID))
		}
	}
	return result, nil
}

func recordRun(store ml.ArtifactStore, opts Options, res *Result) (db.TrainingRun, error) {
	history, err := db.Open(store.RunLogPath())
	if err != nil {
		return db.TrainingRun{}, err
	}
	defer history.Close()

	return history.SaveTrainingRun(db.TrainingRun{
		Iterations:   opts.Iterations,
		Folds:        opts.Folds,
		Rows:         res.Rows,
		Positives:    res.Positives,
		Negatives:    res.Negatives,
		BestCVAUC:    res.Best.MeanScore,
		HoldoutAUC:   res.HoldoutAUC,
		BestParams:   res.Best.Params,
		ArtifactPath: res.PipelinePath,
	})
}

// History lists recorded training runs, newest first.
func History(artifactsDir string, limit int) ([]db.TrainingRun, error) {
	history, err := db.Open(ml.NewArtifactStore(artifactsDir).RunLogPath())
	if err != nil {
		return nil, err
	}
	defer history.Close()
	return history.LoadTrainingRuns(limit)
}
