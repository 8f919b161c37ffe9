package ml

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var ErrSingleClass = errors.New("roc auc is undefined when only one class is present")

// ROCAUC is the area under the ROC curve of scores against binary labels.
func ROCAUC(labels []int, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("labels and scores size mismatch: %d != %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return 0, ErrEmptyDataset
	}

	neg, pos := ClassCounts(labels)
	if neg == 0 || pos == 0 {
		return 0, ErrSingleClass
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	y := make([]float64, len(order))
	classes := make([]bool, len(order))
	for i, idx := range order {
		y[i] = scores[idx]
		classes[i] = labels[idx] == 1
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// BinaryReport summarises thresholded predictions against labels.
type BinaryReport struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Evaluate labels a row positive when its score is strictly above threshold.
func Evaluate(labels []int, scores []float64, threshold float64) BinaryReport {
	if len(labels) == 0 {
		return BinaryReport{}
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, label := range labels {
		predicted := 0
		if scores[i] > threshold {
			predicted = 1
			predictedPositive++
		}
		if predicted == label {
			correct++
		}
		if label == 1 {
			actualPositive++
			if predicted == 1 {
				truePositive++
			}
		}
	}

	report := BinaryReport{Accuracy: float64(correct) / float64(len(labels))}
	if predictedPositive > 0 {
		report.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		report.Recall = float64(truePositive) / float64(actualPositive)
	}
	return report
}
