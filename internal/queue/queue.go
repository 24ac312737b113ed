package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"appraisal/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// PresetQueue is an in-memory queue of rate save batches
type PresetQueue struct {
	items    chan []models.RateSaveRequest
	done     chan struct{}
	stopped  chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]models.RateSaveRequest) error
}

// NewPresetQueue creates a new preset queue with the specified buffer size
func NewPresetQueue(bufferSize int, logger *logrus.Logger) *PresetQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &PresetQueue{
		items:    make(chan []models.RateSaveRequest, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]models.RateSaveRequest) error, 0),
	}
}

// Push adds a batch of rate save requests to the queue
func (q *PresetQueue) Push(batch []models.RateSaveRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed rate batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *PresetQueue) Subscribe(handler func([]models.RateSaveRequest) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *PresetQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

// process handles the queue processing loop. Batches still buffered at close are drained.
func (q *PresetQueue) process() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			for {
				select {
				case batch := <-q.items:
					q.processBatch(batch)
				default:
					return
				}
			}
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *PresetQueue) processBatch(batch []models.RateSaveRequest) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process rate batch")
		}
	}
}

// Close stops the queue and prevents new items from being added.
// If the queue was started, Close waits for buffered batches to be handled.
func (q *PresetQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	close(q.done)
	q.mu.Unlock()

	if started {
		<-q.stopped
	}
	return nil
}

// Len returns the current number of batches in the queue
func (q *PresetQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *PresetQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
