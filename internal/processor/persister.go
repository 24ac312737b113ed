package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"appraisal/server/config"
	"appraisal/server/internal/models"
	"appraisal/server/internal/queue"
)

// PresetWriter stores organization rate presets
type PresetWriter interface {
	SaveRatePresets(ctx context.Context, batch []models.RateSaveRequest) error
}

// RatePersister writes debounced rate batches from the queue to the preset store and records
// the outcome of every write. A failed write is reported, never rolled back into the rate tables.
type RatePersister struct {
	writer    PresetWriter
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.PresetQueue
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	statuses  map[string]models.RateSaveStatus
	onFailure func(models.RateSaveStatus)
	now       func() time.Time
}

// NewRatePersister creates a new persister instance
func NewRatePersister(writer PresetWriter, q *queue.PresetQueue, cfg *config.Config, logger *logrus.Logger) *RatePersister {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RatePersister{
		writer:   writer,
		queue:    q,
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		statuses: make(map[string]models.RateSaveStatus),
		now:      time.Now,
	}
}

// OnFailure registers a callback for failed writes
func (p *RatePersister) OnFailure(fn func(models.RateSaveStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailure = fn
}

// Start subscribes the persister to the queue
func (p *RatePersister) Start() {
	p.queue.Subscribe(p.processBatch)
}

// Stop cancels in-flight retries
func (p *RatePersister) Stop() {
	p.cancel()
}

// processBatch writes one batch, retrying up to the configured count
func (p *RatePersister) processBatch(batch []models.RateSaveRequest) error {
	maxRetries := p.config.RatePersistence.MaxRetries
	retryDelay := time.Duration(p.config.RatePersistence.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying rate save, attempt %d of %d", attempt, maxRetries)
			select {
			case <-p.ctx.Done():
				err = fmt.Errorf("rate save cancelled: %w", p.ctx.Err())
				p.record(batch, err)
				return err
			case <-time.After(retryDelay):
			}
		}

		err = p.writer.SaveRatePresets(p.ctx, batch)
		if err == nil {
			p.logger.WithField("batch_size", len(batch)).Info("Saved rate presets")
			p.record(batch, nil)
			return nil
		}

		p.logger.WithError(err).Error("Rate save failed")
	}

	err = fmt.Errorf("failed to save rate presets after %d attempts: %w", maxRetries+1, err)
	p.record(batch, err)
	return err
}

// Reject records a batch that never reached the store
func (p *RatePersister) Reject(batch []models.RateSaveRequest, err error) {
	p.record(batch, fmt.Errorf("failed to queue rate presets: %w", err))
}

func (p *RatePersister) record(batch []models.RateSaveRequest, err error) {
	p.mu.Lock()
	onFailure := p.onFailure
	failed := make([]models.RateSaveStatus, 0)
	for _, req := range batch {
		status := models.RateSaveStatus{
			OrganizationID: req.OrganizationID,
			PropertyType:   req.PropertyType,
			Succeeded:      err == nil,
			AttemptedAt:    p.now(),
		}
		if err != nil {
			status.Error = err.Error()
			failed = append(failed, status)
		}
		p.statuses[statusKey(req.OrganizationID, req.PropertyType)] = status
	}
	p.mu.Unlock()

	for _, status := range failed {
		p.logger.WithFields(logrus.Fields{
			"organization_id": status.OrganizationID,
			"property_type":   status.PropertyType,
		}).Warn("Rate preset not persisted, in-memory rates kept")
		if onFailure != nil {
			onFailure(status)
		}
	}
}

// Statuses returns the last outcome per organization and property type
func (p *RatePersister) Statuses(organizationID string) []models.RateSaveStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.RateSaveStatus, 0, len(p.statuses))
	for _, status := range p.statuses {
		if organizationID == "" || status.OrganizationID == organizationID {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return statusKey(out[i].OrganizationID, out[i].PropertyType) < statusKey(out[j].OrganizationID, out[j].PropertyType)
	})
	return out
}

func statusKey(organizationID string, pt models.PropertyType) string {
	return organizationID + "/" + string(pt)
}
