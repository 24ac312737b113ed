package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"appraisal/server/config"
	"appraisal/server/internal/models"
	"appraisal/server/internal/queue"
)

// MockWriter is a mock implementation of PresetWriter
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) SaveRatePresets(ctx context.Context, batch []models.RateSaveRequest) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func newTestPersister(writer PresetWriter, maxRetries int) (*RatePersister, *queue.PresetQueue) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := queue.NewPresetQueue(10, logger)
	cfg := &config.Config{}
	cfg.RatePersistence.MaxRetries = maxRetries
	cfg.RatePersistence.RetryDelay = 0

	p := NewRatePersister(writer, q, cfg, logger)
	p.now = func() time.Time { return time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC) }
	return p, q
}

func testBatch() []models.RateSaveRequest {
	return []models.RateSaveRequest{
		{OrganizationID: "org-1", PropertyType: models.Condo, Rates: models.DefaultRates{LivingAreaRate: 80}},
		{OrganizationID: "org-1", PropertyType: models.Duplex, Rates: models.DefaultRates{LivingAreaRate: 40}},
	}
}

func TestNewRatePersister(t *testing.T) {
	writer := &MockWriter{}
	p, q := newTestPersister(writer, 0)

	assert.NotNil(t, p)
	assert.Equal(t, writer, p.writer)
	assert.Equal(t, q, p.queue)
	assert.Empty(t, p.Statuses(""))
}

func TestRatePersister_ProcessBatchSuccess(t *testing.T) {
	writer := &MockWriter{}
	p, _ := newTestPersister(writer, 0)
	batch := testBatch()

	writer.On("SaveRatePresets", mock.Anything, batch).Return(nil).Once()
	require.NoError(t, p.processBatch(batch))

	statuses := p.Statuses("org-1")
	require.Len(t, statuses, 2)
	assert.Equal(t, models.Condo, statuses[0].PropertyType)
	assert.True(t, statuses[0].Succeeded)
	assert.Empty(t, statuses[0].Error)
	writer.AssertExpectations(t)
}

func TestRatePersister_NoRetryByDefault(t *testing.T) {
	writer := &MockWriter{}
	p, _ := newTestPersister(writer, 0)
	batch := testBatch()

	var failures []models.RateSaveStatus
	p.OnFailure(func(s models.RateSaveStatus) { failures = append(failures, s) })

	writer.On("SaveRatePresets", mock.Anything, batch).Return(errors.New("disk full")).Once()
	err := p.processBatch(batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save rate presets after 1 attempts")
	writer.AssertNumberOfCalls(t, "SaveRatePresets", 1)

	require.Len(t, failures, 2)
	assert.False(t, failures[0].Succeeded)
	assert.Contains(t, failures[0].Error, "disk full")
}

func TestRatePersister_RetriesWhenConfigured(t *testing.T) {
	writer := &MockWriter{}
	p, _ := newTestPersister(writer, 2)
	batch := testBatch()

	writer.On("SaveRatePresets", mock.Anything, batch).Return(errors.New("locked")).Twice()
	writer.On("SaveRatePresets", mock.Anything, batch).Return(nil).Once()

	require.NoError(t, p.processBatch(batch))
	writer.AssertNumberOfCalls(t, "SaveRatePresets", 3)
	for _, s := range p.Statuses("") {
		assert.True(t, s.Succeeded)
	}
}

func TestRatePersister_StopCancelsRetries(t *testing.T) {
	writer := &MockWriter{}
	p, _ := newTestPersister(writer, 3)
	p.config.RatePersistence.RetryDelay = 60
	batch := testBatch()

	writer.On("SaveRatePresets", mock.Anything, batch).Return(errors.New("locked"))
	p.Stop()

	err := p.processBatch(batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	writer.AssertNumberOfCalls(t, "SaveRatePresets", 1)
}

func TestRatePersister_ConsumesQueue(t *testing.T) {
	writer := &MockWriter{}
	p, q := newTestPersister(writer, 0)
	batch := testBatch()

	writer.On("SaveRatePresets", mock.Anything, batch).Return(nil).Once()
	p.Start()
	q.Start()

	require.NoError(t, q.Push(batch))
	require.NoError(t, q.Close())

	writer.AssertExpectations(t)
	assert.Len(t, p.Statuses("org-1"), 2)
}

func TestRatePersister_Reject(t *testing.T) {
	p, _ := newTestPersister(&MockWriter{}, 0)

	p.Reject(testBatch()[:1], queue.ErrQueueFull)

	statuses := p.Statuses("")
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Succeeded)
	assert.Contains(t, statuses[0].Error, "queue is full")
	assert.Empty(t, p.Statuses("org-2"))
}
