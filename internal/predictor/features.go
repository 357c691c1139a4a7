package predictor

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/akulagin/mlservice/internal/apperr"
)

// FeatureCount is the input dimensionality the classifiers were trained on.
const FeatureCount = 241

type payload struct {
	Features map[string]float64 `json:"features"`
}

// ParseFeatures decodes an uploaded payload into the ordered feature vector.
// The payload is a JSON object whose "features" field maps feature names to
// scalar values; exactly FeatureCount entries are required. Values are
// ordered by feature name so the same payload always yields the same vector.
func ParseFeatures(content []byte) ([]float64, error) {
	var p payload
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", apperr.ErrValidation)
	}
	if len(p.Features) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d: %w", FeatureCount, len(p.Features), apperr.ErrValidation)
	}
	keys := make([]string, 0, len(p.Features))
	for k := range p.Features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, p.Features[k])
	}
	return out, nil
}
