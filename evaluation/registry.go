// Package evaluation trains a fixed, ordered set of classifiers on a prepared
// train/test split and collects comparable metrics for each of them.
package evaluation

import (
	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/sklearn/ensemble"
	"github.com/YuminosukeSato/nidsbench/sklearn/naive_bayes"
	"github.com/YuminosukeSato/nidsbench/sklearn/neighbors"
	"github.com/YuminosukeSato/nidsbench/sklearn/svm"
	"github.com/YuminosukeSato/nidsbench/sklearn/tree"
)

// Registry names of the benchmarked models, in report order.
const (
	KNearestNeighbors    = "K-Nearest Neighbors"
	DecisionTree         = "Decision Tree"
	RandomForest         = "Random Forest"
	NaiveBayes           = "Naive Bayes"
	SupportVectorMachine = "Support Vector Machine"
	XGBoost              = "XGBoost"
)

// ModelNames lists the default registry in evaluation order.
var ModelNames = []string{
	KNearestNeighbors,
	DecisionTree,
	RandomForest,
	NaiveBayes,
	SupportVectorMachine,
	XGBoost,
}

// Entry is one named, untrained model.
type Entry struct {
	Name  string
	Model model.Classifier
}

// Registry is an ordered list of models. Evaluation and reporting follow
// this order.
type Registry []Entry

// Names returns the model names in order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, e := range r {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the model registered under name.
func (r Registry) Lookup(name string) (model.Classifier, bool) {
	for _, e := range r {
		if e.Name == name {
			return e.Model, true
		}
	}
	return nil, false
}

// Validate rejects empty registries, empty names and duplicates.
func (r Registry) Validate() error {
	if len(r) == 0 {
		return errors.NewValidationError("registry", "must contain at least one model", 0)
	}
	seen := make(map[string]struct{}, len(r))
	for _, e := range r {
		if e.Name == "" || e.Model == nil {
			return errors.NewValidationError("registry", "entries need a name and a model", e.Name)
		}
		if _, ok := seen[e.Name]; ok {
			return errors.NewValidationError("registry", "duplicate model name", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// NewModel builds the untrained model registered under name. Randomised
// models are seeded with seed.
func NewModel(name string, seed int64) (model.Classifier, error) {
	switch name {
	case KNearestNeighbors:
		return neighbors.NewKNeighborsClassifier(), nil
	case DecisionTree:
		return tree.NewDecisionTreeClassifier(
			tree.WithClassWeight("balanced"),
			tree.WithRandomState(seed),
		), nil
	case RandomForest:
		return ensemble.NewRandomForestClassifier(
			ensemble.WithForestRandomState(seed),
		), nil
	case NaiveBayes:
		return naive_bayes.NewGaussianNB(), nil
	case SupportVectorMachine:
		return svm.NewSVC(svm.WithProbability(true)), nil
	case XGBoost:
		return ensemble.NewGradientBoostingClassifier(), nil
	default:
		return nil, errors.NewValidationError("model", "unknown model name", name)
	}
}

// DefaultRegistry returns the six benchmarked models in ModelNames order.
func DefaultRegistry(seed int64) Registry {
	r := make(Registry, 0, len(ModelNames))
	for _, name := range ModelNames {
		m, err := NewModel(name, seed)
		if err != nil {
			// every name in ModelNames is handled by NewModel
			panic(err)
		}
		r = append(r, Entry{Name: name, Model: m})
	}
	return r
}
