package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	PipelineFile         = "best_ml_pipeline.json"
	TrainingFeaturesFile = "training_features.json"
	BinaryFeaturesFile   = "binary_features.json"
	RunLogFile           = "training_runs.db"
)

// ErrInvalidFeatureList is a feature list file that decodes but holds no
// usable list (null, or empty where a list is required).
var ErrInvalidFeatureList = errors.New("invalid feature list")

// ArtifactStore locates everything training hands over to serving.
type ArtifactStore struct {
	Dir string
}

func NewArtifactStore(dir string) ArtifactStore {
	return ArtifactStore{Dir: dir}
}

func (s ArtifactStore) PipelinePath() string         { return filepath.Join(s.Dir, PipelineFile) }
func (s ArtifactStore) TrainingFeaturesPath() string { return filepath.Join(s.Dir, TrainingFeaturesFile) }
func (s ArtifactStore) BinaryFeaturesPath() string   { return filepath.Join(s.Dir, BinaryFeaturesFile) }
func (s ArtifactStore) RunLogPath() string           { return filepath.Join(s.Dir, RunLogFile) }

func (s ArtifactStore) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s ArtifactStore) SavePipeline(p *Pipeline) error {
	return p.Save(s.PipelinePath())
}

func (s ArtifactStore) LoadPipeline() (*Pipeline, error) {
	return LoadPipeline(s.PipelinePath())
}

func (s ArtifactStore) SaveTrainingFeatures(names []string) error {
	return saveFeatureList(s.TrainingFeaturesPath(), names)
}

// LoadTrainingFeatures fails on an empty list: it fixes the column order and
// cannot be empty.
func (s ArtifactStore) LoadTrainingFeatures() ([]string, error) {
	return loadFeatureList(s.TrainingFeaturesPath(), false)
}

func (s ArtifactStore) SaveBinaryFeatures(names []string) error {
	return saveFeatureList(s.BinaryFeaturesPath(), names)
}

func (s ArtifactStore) LoadBinaryFeatures() ([]string, error) {
	return loadFeatureList(s.BinaryFeaturesPath(), true)
}

func saveFeatureList(path string, names []string) error {
	if names == nil {
		names = []string{}
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, payload, 0o644)
}

func loadFeatureList(path string, allowEmpty bool) ([]string, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrArtifactMissing)
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if names == nil || (!allowEmpty && len(names) == 0) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFeatureList)
	}
	return names, nil
}

func writeFileAtomic(path string, payload []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
