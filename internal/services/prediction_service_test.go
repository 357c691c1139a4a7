package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/akulagin/mlservice/internal/predictor"
	"github.com/akulagin/mlservice/internal/queue"
	"github.com/akulagin/mlservice/internal/repository/memory"
	"github.com/akulagin/mlservice/internal/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type predFixture struct {
	users  *memory.Users
	preds  *memory.Predictions
	files  *storage.FileStore
	broker queue.Broker
	mr     *miniredis.Miniredis
	svc    *PredictionService
}

func newPredFixture(t *testing.T) *predFixture {
	t.Helper()
	users := memory.NewUsers()
	preds := memory.NewPredictions(users)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	broker := queue.NewRedisBrokerFromClient(client)
	return &predFixture{
		users:  users,
		preds:  preds,
		files:  files,
		broker: broker,
		mr:     mr,
		svc:    NewPredictionService(preds, files, broker, slog.Default()),
	}
}

func (f *predFixture) user(t *testing.T, balance float64) models.User {
	t.Helper()
	u, err := f.users.Create("alice", "hash", balance)
	require.NoError(t, err)
	return u
}

func (f *predFixture) uploadFeatures(t *testing.T, n int) string {
	t.Helper()
	features := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		features[fmt.Sprintf("f%03d", i)] = float64(i) / 100
	}
	b, err := json.Marshal(map[string]any{"features": features})
	require.NoError(t, err)
	id, err := f.files.Save(bytes.NewReader(b))
	require.NoError(t, err)
	return id
}

func TestSubmitHappyPath(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)

	jobID, err := f.svc.Submit(context.Background(), u, fileID, "lr_model")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// balance debited by the model price
	fresh, err := f.users.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 490.0, fresh.Balance)

	// exactly one ledger row, result unset
	rows, err := f.preds.ListByUser(u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, jobID, rows[0].JobID)
	assert.Equal(t, 10.0, rows[0].Cost)
	assert.Nil(t, rows[0].Result)

	// job is queued on the broker
	st, err := f.broker.Poll(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, queue.StateQueued, st.State)
}

func TestSubmitInsufficientCredit(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 5)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)

	_, err := f.svc.Submit(context.Background(), u, fileID, "lr_model")
	assert.ErrorIs(t, err, apperr.ErrInsufficientCredit)

	fresh, err := f.users.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, fresh.Balance)
}

func TestSubmitStaleBalanceStillRefused(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)

	// caller holds a stale record claiming more credit than is stored
	_, err := f.users.AddBalance(u.ID, -495)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), u, fileID, "lr_model")
	assert.ErrorIs(t, err, apperr.ErrInsufficientCredit)
}

func TestSubmitUnknownModel(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)

	_, err := f.svc.Submit(context.Background(), u, fileID, "mystery")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSubmitMissingFile(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)

	_, err := f.svc.Submit(context.Background(), u, "never-uploaded", "lr_model")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	fresh, err := f.users.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, fresh.Balance)
}

func TestSubmitShortFeatureVector(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount-10)

	_, err := f.svc.Submit(context.Background(), u, fileID, "lr_model")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStatusMapping(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)
	ctx := context.Background()

	jobID, err := f.svc.Submit(ctx, u, fileID, "lr_model")
	require.NoError(t, err)

	st, err := f.svc.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "queued", st.Status)

	require.NoError(t, f.broker.Complete(ctx, jobID, "1"))
	st, err = f.svc.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "finished", st.Status)
	assert.Equal(t, "1", st.Result)

	require.NoError(t, f.broker.Fail(ctx, jobID, "boom"))
	st, err = f.svc.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "failed", st.Status)
	assert.Equal(t, "boom", st.Result)

	_, err = f.svc.Status(ctx, "no-such-job")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResultMergeIsIdempotent(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)
	ctx := context.Background()

	jobID, err := f.svc.Submit(ctx, u, fileID, "lr_model")
	require.NoError(t, err)

	// still processing
	_, ready, err := f.svc.Result(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, f.broker.Complete(ctx, jobID, "1"))

	p, ready, err := f.svc.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ready)
	require.NotNil(t, p.Result)
	assert.Equal(t, "1", *p.Result)

	// a second fetch returns the persisted row even if the broker state
	// changed underneath
	require.NoError(t, f.broker.Complete(ctx, jobID, "999"))
	p, ready, err = f.svc.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Equal(t, "1", *p.Result)
}

func TestResultUnknownJob(t *testing.T) {
	f := newPredFixture(t)
	_, _, err := f.svc.Result(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResultFallsBackToLedgerAfterRetention(t *testing.T) {
	f := newPredFixture(t)
	u := f.user(t, 500)
	fileID := f.uploadFeatures(t, predictor.FeatureCount)
	ctx := context.Background()

	jobID, err := f.svc.Submit(ctx, u, fileID, "lr_model")
	require.NoError(t, err)
	require.NoError(t, f.broker.Complete(ctx, jobID, "1"))

	// merge once while the broker still knows the job
	_, ready, err := f.svc.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ready)

	// broker forgets after the retention window; the ledger row still answers
	f.mr.FastForward(2 * time.Hour)
	_, err = f.broker.Poll(ctx, jobID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	p, ready, err := f.svc.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ready)
	require.NotNil(t, p.Result)
	assert.Equal(t, "1", *p.Result)
}
