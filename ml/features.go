package ml

// TargetColumn is the label column of the bank marketing dataset.
const TargetColumn = "y"

var numericalFeatures = []string{
	"age",
	"balance",
	"day",
	"duration",
	"campaign",
	"pdays",
	"previous",
}

var categoricalFeatures = []string{
	"job",
	"marital",
	"education",
	"contact",
	"month",
	"poutcome",
}

var binaryFeatures = []string{"default", "housing", "loan"}

var trainingFeatures = []string{
	"age",
	"job",
	"marital",
	"education",
	"default",
	"balance",
	"housing",
	"loan",
	"contact",
	"day",
	"month",
	"duration",
	"campaign",
	"pdays",
	"previous",
	"poutcome",
}

// NumericalFeatures returns the columns that are standardized.
func NumericalFeatures() []string { return cloneNames(numericalFeatures) }

// CategoricalFeatures returns the columns that are one-hot encoded.
func CategoricalFeatures() []string { return cloneNames(categoricalFeatures) }

// BinaryFeatures returns the yes/no columns encoded to 1/0.
func BinaryFeatures() []string { return cloneNames(binaryFeatures) }

// TrainingFeatures returns the default model input column order, used when
// training_features.json is unavailable.
func TrainingFeatures() []string { return cloneNames(trainingFeatures) }

// IsNumerical reports whether name is a numerical feature.
func IsNumerical(name string) bool { return contains(numericalFeatures, name) }

func cloneNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
