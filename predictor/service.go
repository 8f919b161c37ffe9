package predictor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"termdeposit/ml"
)

const (
	LabelYes = "yes"
	LabelNo  = "no"

	// Threshold is exclusive: a probability of exactly 0.5 is "no".
	Threshold = 0.5
)

type Prediction struct {
	Label       string  `json:"prediction"`
	Probability float64 `json:"probability"`
	Cached      bool    `json:"-"`
}

var ErrNotReady = errors.New("prediction service has no model state")

// Service answers predictions against the current State. Reads are lock
// free; Reload swaps the whole state at once.
type Service struct {
	state  atomic.Pointer[State]
	store  ml.ArtifactStore
	logger *zap.Logger
}

// New loads the initial state from store. Any error here is fatal for the
// caller.
func New(store ml.ArtifactStore, cacheSize int, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := LoadState(store, cacheSize, logger)
	if err != nil {
		return nil, err
	}
	s := &Service{store: store, logger: logger}
	s.state.Store(st)
	return s, nil
}

// NewWithState wraps a prepared state. Reload re-reads from store.
func NewWithState(st *State, store ml.ArtifactStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, logger: logger}
	if st != nil {
		s.state.Store(st)
	}
	return s
}

// State returns the current snapshot.
func (s *Service) State() *State { return s.state.Load() }

// Health reports liveness only; it never looks at the model.
func (s *Service) Health() string { return "OK" }

// Predict scores one record given as column -> cell. Columns are ordered by
// the training feature list; fields it does not name are dropped and names
// missing from fields become missing values.
func (s *Service) Predict(ctx context.Context, fields map[string]ml.Cell) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	st := s.state.Load()
	if st == nil {
		return Prediction{}, ErrNotReady
	}

	var key string
	if st.cache != nil {
		key = cacheKey(st.TrainingFeatures, fields)
		if p, ok := st.cache.Get(key); ok {
			p.Cached = true
			return p, nil
		}
	}

	frame := ml.FrameFromRecord(fields, st.TrainingFeatures)
	if err := ml.EncodeBinaryFeatures(frame, st.BinaryFeatures); err != nil {
		return Prediction{}, fmt.Errorf("encode binary features: %w", err)
	}
	probs, err := st.Pipeline.PredictProba(frame)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	if len(probs) != 1 {
		return Prediction{}, fmt.Errorf("predict: expected 1 row, got %d", len(probs))
	}

	p := Prediction{Label: LabelNo, Probability: probs[0][1]}
	if p.Probability > Threshold {
		p.Label = LabelYes
	}
	if st.cache != nil {
		st.cache.Add(key, p)
	}
	return p, nil
}

// Reload builds a fresh state from the artifact store and swaps it in. On
// failure the previous state stays active.
func (s *Service) Reload() error {
	cacheSize := 0
	if cur := s.state.Load(); cur != nil {
		cacheSize = cur.cacheSize
	}
	st, err := LoadState(s.store, cacheSize, s.logger)
	if err != nil {
		s.logger.Error("Reload failed, keeping previous model state", zap.Error(err))
		return err
	}
	s.state.Store(st)
	s.logger.Info("Model state reloaded", zap.Time("loaded_at", st.LoadedAt))
	return nil
}

func cacheKey(order []string, fields map[string]ml.Cell) string {
	var b strings.Builder
	for _, name := range order {
		c, ok := fields[name]
		switch {
		case !ok || c.IsMissing():
			b.WriteString("~")
		case c.Kind == ml.KindNumber:
			b.WriteString("n:")
			b.WriteString(c.String())
		default:
			b.WriteString("s:")
			b.WriteString(c.Str)
		}
		b.WriteByte(0)
	}
	return b.String()
}
