package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/akulagin/mlservice/internal/apperr"
)

// Classifier scores a single feature vector and returns the class label.
type Classifier interface {
	Predict(features []float64) (float64, error)
}

// artifact is the on-disk JSON format the models are exported in.
type artifact struct {
	Type      string  `json:"type"`
	Weights   []float64 `json:"weights"`
	Intercept float64 `json:"intercept"`
	Bias      float64 `json:"bias"`
	Stumps    []stump `json:"stumps"`
}

type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

type logisticRegression struct {
	weights   []float64
	intercept float64
}

func (m *logisticRegression) Predict(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.weights), len(features))
	}
	z := m.intercept
	for i, w := range m.weights {
		z += w * features[i]
	}
	if 1/(1+math.Exp(-z)) >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

type boostedStumps struct {
	bias   float64
	stumps []stump
	dim    int
}

func (m *boostedStumps) Predict(features []float64) (float64, error) {
	if len(features) != m.dim {
		return 0, fmt.Errorf("expected %d features, got %d", m.dim, len(features))
	}
	score := m.bias
	for _, s := range m.stumps {
		if features[s.Feature] <= s.Threshold {
			score += s.Left
		} else {
			score += s.Right
		}
	}
	if score >= 0 {
		return 1, nil
	}
	return 0, nil
}

// Registry is the immutable name -> classifier mapping a worker runs with.
// It is built once at process start and passed in explicitly; nothing in
// this package holds global model state.
type Registry struct {
	models map[string]Classifier
}

// LoadRegistry reads every *.json artifact in dir; the file name without
// extension becomes the model name (lr_model.json -> "lr_model").
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read model dir: %w", err)
	}
	models := make(map[string]Classifier)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		m, err := buildClassifier(b)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		models[name] = m
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no model artifacts in %s", dir)
	}
	return &Registry{models: models}, nil
}

// NewRegistry wraps an explicit mapping; tests use it with fakes.
func NewRegistry(models map[string]Classifier) *Registry {
	return &Registry{models: models}
}

func (r *Registry) Get(name string) (Classifier, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", name, apperr.ErrModelNotFound)
	}
	return m, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.models))
	for k := range r.models {
		out = append(out, k)
	}
	return out
}

func buildClassifier(b []byte) (Classifier, error) {
	var a artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	switch a.Type {
	case "logistic_regression":
		if len(a.Weights) == 0 {
			return nil, fmt.Errorf("logistic_regression artifact has no weights")
		}
		return &logisticRegression{weights: a.Weights, intercept: a.Intercept}, nil
	case "boosted_stumps":
		if len(a.Stumps) == 0 {
			return nil, fmt.Errorf("boosted_stumps artifact has no stumps")
		}
		dim := 0
		for _, s := range a.Stumps {
			if s.Feature < 0 {
				return nil, fmt.Errorf("stump references negative feature %d", s.Feature)
			}
			if s.Feature >= dim {
				dim = s.Feature + 1
			}
		}
		// trained against the full fixed-width vector
		if dim < FeatureCount {
			dim = FeatureCount
		}
		return &boostedStumps{bias: a.Bias, stumps: a.Stumps, dim: dim}, nil
	default:
		return nil, fmt.Errorf("unknown artifact type %q", a.Type)
	}
}
