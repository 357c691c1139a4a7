package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/metrics"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/akulagin/mlservice/internal/predictor"
	"github.com/akulagin/mlservice/internal/queue"
	repo "github.com/akulagin/mlservice/internal/repository"
	"github.com/akulagin/mlservice/internal/storage"
)

type PredictionService struct {
	preds  repo.Predictions
	files  *storage.FileStore
	broker queue.Broker
	log    *slog.Logger
}

func NewPredictionService(p repo.Predictions, f *storage.FileStore, b queue.Broker, log *slog.Logger) *PredictionService {
	return &PredictionService{preds: p, files: f, broker: b, log: log}
}

// Submit dispatches one prediction: price check, payload parse, enqueue,
// then debit + ledger insert in a single DB transaction. A rollback after
// enqueue leaves the queued job orphaned; there is no compensating cancel.
func (s *PredictionService) Submit(ctx context.Context, user models.User, fileID, modelName string) (string, error) {
	price, ok := predictor.Price(modelName)
	if !ok {
		return "", fmt.Errorf("unknown model %q: %w", modelName, apperr.ErrValidation)
	}
	if price > user.Balance {
		return "", fmt.Errorf("model %s costs %.1f: %w", modelName, price, apperr.ErrInsufficientCredit)
	}

	content, err := s.files.Read(fileID)
	if err != nil {
		return "", err
	}
	features, err := predictor.ParseFeatures(content)
	if err != nil {
		return "", err
	}

	jobID, err := s.broker.Enqueue(ctx, modelName, features, user.ID)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	if depth, derr := s.broker.Depth(ctx); derr == nil {
		metrics.QueueDepth.Set(float64(depth))
	}

	if _, err := s.preds.DebitAndCreate(ctx, user.ID, jobID, price); err != nil {
		return "", err
	}
	metrics.PredictionsDispatched.WithLabelValues(modelName).Inc()
	s.log.Info("prediction dispatched", "job", jobID, "model", modelName, "user_id", user.ID)
	return jobID, nil
}

// JobStatus is the client-facing view of a job's queue state.
type JobStatus struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

func (s *PredictionService) Status(ctx context.Context, jobID string) (JobStatus, error) {
	st, err := s.broker.Poll(ctx, jobID)
	if err != nil {
		return JobStatus{}, err
	}
	switch st.State {
	case queue.StateFinished:
		return JobStatus{Status: "finished", Result: st.Result}, nil
	case queue.StateFailed:
		return JobStatus{Status: "failed", Result: st.Error}, nil
	default:
		return JobStatus{Status: string(st.State)}, nil
	}
}

// Result merges a ready job's outcome into its ledger row and returns it.
// ready is false while the job is still queued or running. The merge happens
// at most once; later calls return the persisted row as-is.
func (s *PredictionService) Result(ctx context.Context, jobID string) (models.Prediction, bool, error) {
	st, err := s.broker.Poll(ctx, jobID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// broker state may have expired while the ledger row survives
			p, lerr := s.preds.GetByJobID(jobID)
			if lerr == nil && p.Result != nil {
				return p, true, nil
			}
			return models.Prediction{}, false, err
		}
		return models.Prediction{}, false, err
	}

	switch st.State {
	case queue.StateFinished:
		p, err := s.preds.SetResultIfUnset(jobID, st.Result)
		if err != nil {
			return models.Prediction{}, false, err
		}
		return p, true, nil
	case queue.StateFailed:
		p, err := s.preds.SetResultIfUnset(jobID, "failed: "+st.Error)
		if err != nil {
			return models.Prediction{}, false, err
		}
		return p, true, nil
	default:
		return models.Prediction{}, false, nil
	}
}

func (s *PredictionService) ListByUser(userID int64) ([]models.Prediction, error) {
	return s.preds.ListByUser(userID)
}
