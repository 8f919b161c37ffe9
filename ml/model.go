package ml

import "gonum.org/v1/gonum/mat"

// Classifier is a binary model over the transformed feature matrix.
type Classifier interface {
	Fit(x *mat.Dense, y []int) error
	PredictProba(x *mat.Dense) ([]float64, error)
}

// Transformer turns a raw table into the classifier's input.
type Transformer interface {
	Fit(f *Frame) error
	Transform(f *Frame) (*mat.Dense, error)
}

var (
	_ Classifier  = (*GradientBoostedTrees)(nil)
	_ Transformer = (*ColumnTransformer)(nil)
)
