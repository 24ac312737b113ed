package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"appraisal/server/internal/models"
)

type presetKey struct {
	organizationID string
	propertyType   models.PropertyType
}

// Debouncer coalesces rate edits per organization and property type and pushes them to a
// PresetQueue once no new edit has arrived for the debounce window. It satisfies rates.Sink.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	pending  map[presetKey]models.RateSaveRequest
	queue    *PresetQueue
	logger   *logrus.Logger
	// onDropped is called with requests the queue refused
	onDropped func([]models.RateSaveRequest, error)
}

// NewDebouncer creates a debouncer that pushes to q after duration of quiet
func NewDebouncer(duration time.Duration, q *PresetQueue, logger *logrus.Logger) *Debouncer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Debouncer{
		duration: duration,
		pending:  make(map[presetKey]models.RateSaveRequest),
		queue:    q,
		logger:   logger,
	}
}

// OnDropped registers a callback for batches the queue could not accept
func (d *Debouncer) OnDropped(fn func([]models.RateSaveRequest, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDropped = fn
}

// RatesChanged records the latest rates for the request's key and restarts the window
func (d *Debouncer) RatesChanged(req models.RateSaveRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[presetKey{req.OrganizationID, req.PropertyType}] = req

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.Flush)
}

// Pending returns the number of coalesced requests waiting for the window to close
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush pushes every pending request immediately as one batch
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.drain()
	onDropped := d.onDropped
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := d.queue.Push(batch); err != nil {
		d.logger.WithError(err).WithField("batch_size", len(batch)).Warn("Failed to queue rate save batch")
		if onDropped != nil {
			onDropped(batch, err)
		}
		return
	}
	d.logger.WithField("batch_size", len(batch)).Debug("Queued debounced rate save batch")
}

// Cancel discards pending requests without pushing them
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[presetKey]models.RateSaveRequest)
}

// drain empties pending in a stable order. Callers hold mu.
func (d *Debouncer) drain() []models.RateSaveRequest {
	batch := make([]models.RateSaveRequest, 0, len(d.pending))
	for _, req := range d.pending {
		batch = append(batch, req)
	}
	d.pending = make(map[presetKey]models.RateSaveRequest)

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].OrganizationID != batch[j].OrganizationID {
			return batch[i].OrganizationID < batch[j].OrganizationID
		}
		return batch[i].PropertyType < batch[j].PropertyType
	})
	return batch
}
