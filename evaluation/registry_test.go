package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/sklearn/ensemble"
	"github.com/YuminosukeSato/nidsbench/sklearn/naive_bayes"
	"github.com/YuminosukeSato/nidsbench/sklearn/neighbors"
	"github.com/YuminosukeSato/nidsbench/sklearn/svm"
	"github.com/YuminosukeSato/nidsbench/sklearn/tree"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(42)
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{
		"K-Nearest Neighbors",
		"Decision Tree",
		"Random Forest",
		"Naive Bayes",
		"Support Vector Machine",
		"XGBoost",
	}, r.Names())

	types := []model.Classifier{
		&neighbors.KNeighborsClassifier{},
		&tree.DecisionTreeClassifier{},
		&ensemble.RandomForestClassifier{},
		&naive_bayes.GaussianNB{},
		&svm.SVC{},
		&ensemble.GradientBoostingClassifier{},
	}
	for i, e := range r {
		assert.IsType(t, types[i], e.Model, e.Name)
	}

	dt, ok := r.Lookup(DecisionTree)
	require.True(t, ok)
	assert.Equal(t, "balanced", dt.(*tree.DecisionTreeClassifier).GetParams()["class_weight"])

	svc, ok := r.Lookup(SupportVectorMachine)
	require.True(t, ok)
	assert.Equal(t, true, svc.(*svm.SVC).GetParams()["probability"])

	_, ok = r.Lookup("Logistic Regression")
	assert.False(t, ok)
}

func TestNewModelUnknown(t *testing.T) {
	_, err := NewModel("Perceptron", 1)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRegistryValidate(t *testing.T) {
	nb := naive_bayes.NewGaussianNB()
	tests := []struct {
		name     string
		registry Registry
		wantErr  bool
	}{
		{"ok", Registry{{Name: "a", Model: nb}}, false},
		{"empty", Registry{}, true},
		{"no name", Registry{{Model: nb}}, true},
		{"no model", Registry{{Name: "a"}}, true},
		{"duplicate", Registry{{Name: "a", Model: nb}, {Name: "a", Model: nb}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.registry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
