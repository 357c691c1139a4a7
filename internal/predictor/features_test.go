package predictor

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadWith(n int) []byte {
	features := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		features[fmt.Sprintf("f%03d", i)] = float64(i)
	}
	b, _ := json.Marshal(map[string]any{"features": features})
	return b
}

func TestParseFeaturesFullVector(t *testing.T) {
	vec, err := ParseFeatures(payloadWith(FeatureCount))
	require.NoError(t, err)
	require.Len(t, vec, FeatureCount)
	// ordered by feature name
	assert.Equal(t, 0.0, vec[0])
	assert.Equal(t, float64(FeatureCount-1), vec[FeatureCount-1])
}

func TestParseFeaturesRejectsShortVector(t *testing.T) {
	_, err := ParseFeatures(payloadWith(FeatureCount - 1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseFeaturesRejectsExtraFeatures(t *testing.T) {
	_, err := ParseFeatures(payloadWith(FeatureCount + 3))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseFeaturesRejectsBadJSON(t *testing.T) {
	_, err := ParseFeatures([]byte("not json at all"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseFeaturesRejectsNonNumericValues(t *testing.T) {
	_, err := ParseFeatures([]byte(`{"features":{"a":"oops"}}`))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
