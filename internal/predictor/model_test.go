package predictor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLogisticRegressionPredict(t *testing.T) {
	m := &logisticRegression{weights: []float64{1, -1}, intercept: 0}

	r, err := m.Predict([]float64{2, 1}) // z = 1
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = m.Predict([]float64{1, 2}) // z = -1
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestLogisticRegressionDimensionMismatch(t *testing.T) {
	m := &logisticRegression{weights: []float64{1, -1}, intercept: 0}
	_, err := m.Predict([]float64{1})
	assert.Error(t, err)
}

func TestBoostedStumpsPredict(t *testing.T) {
	m := &boostedStumps{
		bias: -0.1,
		dim:  2,
		stumps: []stump{
			{Feature: 0, Threshold: 0.5, Left: -0.3, Right: 0.4},
			{Feature: 1, Threshold: 0.0, Left: -0.2, Right: 0.3},
		},
	}

	r, err := m.Predict([]float64{1, 1}) // -0.1 + 0.4 + 0.3 = 0.6
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = m.Predict([]float64{0, -1}) // -0.1 - 0.3 - 0.2 = -0.6
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "lr_model.json",
		`{"type":"logistic_regression","weights":[0.5,-0.5],"intercept":0.1}`)
	writeArtifact(t, dir, "gb_model.json",
		`{"type":"boosted_stumps","bias":0,"stumps":[{"feature":0,"threshold":0,"left":-1,"right":1}]}`)
	writeArtifact(t, dir, "notes.txt", "ignored")

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lr_model", "gb_model"}, reg.Names())

	_, err = reg.Get("lr_model")
	require.NoError(t, err)

	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, apperr.ErrModelNotFound)
}

func TestLoadRegistryEmptyDir(t *testing.T) {
	_, err := LoadRegistry(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRegistryBadArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "weird.json", `{"type":"decision_forest"}`)
	_, err := LoadRegistry(dir)
	assert.Error(t, err)
}

func TestShippedArtifactsLoad(t *testing.T) {
	reg, err := LoadRegistry("../../ml_models")
	require.NoError(t, err)

	m, err := reg.Get("lr_model")
	require.NoError(t, err)
	vec := make([]float64, FeatureCount)
	r, err := m.Predict(vec)
	require.NoError(t, err)
	assert.Contains(t, []float64{0, 1}, r)
}
