package trainer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule retrains on a cron spec ("0 3 * * *", "@every 6h", ...) until ctx
// is done. A run still in progress when the next one is due is not
// overlapped; the next tick is skipped. Failed runs are logged and do not
// stop the schedule.
func Schedule(ctx context.Context, spec string, opts Options, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err := c.AddFunc(spec, func() {
		res, err := Run(ctx, opts, logger)
		if err != nil {
			logger.Error("Scheduled training failed", zap.Error(err))
			return
		}
		logger.Info("Scheduled training finished",
			zap.String("run_id", res.RunID),
			zap.Float64("holdout_roc_auc", res.HoldoutAUC),
			zap.Duration("duration", res.Duration))
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	logger.Info("Training scheduled", zap.String("schedule", spec))
	c.Start()
	<-ctx.Done()

	// Wait for a running job to notice the cancellation.
	<-c.Stop().Done()
	return nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
