package ml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var ErrArtifactMissing = errors.New("artifact not found")

// LoadPipeline reads a pipeline written by Pipeline.Save.
func LoadPipeline(path string) (*Pipeline, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrArtifactMissing)
	}
	if err != nil {
		return nil, err
	}
	p, err := decodePipeline(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}
