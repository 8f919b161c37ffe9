package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"termdeposit/config"
	"termdeposit/logging"
	"termdeposit/trainer"
)

func main() {
	iterations := flag.Int("hyper-tune-iter", trainer.DefaultIterations, "Number of hyperparameter tuning iterations.")
	folds := flag.Int("cv-fold", trainer.DefaultFolds, "Number of cross-validation folds.")
	env := flag.String("env", "", "Runtime environment: dev, staging or production.")
	history := flag.Int("history", 0, "Print the last N recorded training runs and exit.")
	schedule := flag.String("schedule", "", `Retrain on a cron schedule, e.g. "0 3 * * *" or "@every 24h".`)
	flag.Parse()

	overrides := config.Overrides{}
	if *env != "" {
		overrides["env"] = *env
	}
	settings, err := config.Load(overrides)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger, err := logging.Setup(settings.ConfigDir, settings.RootDir, settings.Env)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()

	if *history > 0 {
		if err := printHistory(settings.ArtifactsDir, *history); err != nil {
			logger.Fatal("Failed to read training history", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := trainer.DefaultOptions(settings.DatasetPath(), settings.ArtifactsDir)
	opts.Iterations = *iterations
	opts.Folds = *folds
	opts.RecordHistory = true

	if *schedule != "" {
		if err := trainer.Schedule(ctx, *schedule, opts, logger); err != nil {
			logger.Fatal("Failed to schedule training", zap.Error(err))
		}
		return
	}

	res, err := trainer.Run(ctx, opts, logger)
	if err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}
	logger.Info("Training complete",
		zap.String("pipeline", res.PipelinePath),
		zap.Float64("cv_roc_auc", res.Best.MeanScore),
		zap.Float64("holdout_roc_auc", res.HoldoutAUC),
		zap.Duration("duration", res.Duration))
}

func printHistory(artifactsDir string, limit int) error {
	runs, err := trainer.History(artifactsDir, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTRAINED AT\tITER\tFOLDS\tROWS\tCV AUC\tHOLDOUT AUC")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4f\t%.4f\n",
			r.RunID, r.TrainedAt.Format("2006-01-02 15:04:05"), r.Iterations, r.Folds, r.Rows, r.BestCVAUC, r.HoldoutAUC)
	}
	return w.Flush()
}
