package client

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"

	"termdeposit/customer"
	"termdeposit/ml"
)

var ErrDatasetMissing = errors.New("dataset file not found")

// Sample is one dataset row ready to send, with its known label.
type Sample struct {
	Record customer.Record
	Truth  string
}

// SampleDataset picks one random row of the labelled dataset and drops the
// target column.
func SampleDataset(path string, rng *rand.Rand) (Sample, error) {
	frame, err := ml.LoadDataset(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Sample{}, fmt.Errorf("%w at %s", ErrDatasetMissing, path)
	}
	if err != nil {
		return Sample{}, err
	}

	row := frame.Row(rng.Intn(frame.Len()))
	truth := ""
	if y, ok := row[ml.TargetColumn]; ok {
		truth = y.String()
		delete(row, ml.TargetColumn)
	}

	record, err := customer.FromCells(row)
	if err != nil {
		return Sample{}, fmt.Errorf("sampled row: %w", err)
	}
	return Sample{Record: record, Truth: truth}, nil
}
