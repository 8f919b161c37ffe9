package predictor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"termdeposit/ml"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the state whenever one of the serving artifacts in the store
// directory changes. Bursts of events (temp file + rename) are coalesced.
// It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.store.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.store.Dir, err)
	}
	s.logger.Info("Watching artifacts for changes", zap.String("dir", s.store.Dir))

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isServingArtifact(event.Name) || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			s.logger.Debug("Artifact changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Artifact watcher error", zap.Error(err))
		case <-timer.C:
			// Errors are logged by Reload; the old state keeps serving.
			_ = s.Reload()
		}
	}
}

func isServingArtifact(path string) bool {
	switch filepath.Base(path) {
	case ml.PipelineFile, ml.TrainingFeaturesFile, ml.BinaryFeaturesFile:
		return true
	}
	return false
}
