package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionExpirer drops report sessions that have been idle since a cutoff
type SessionExpirer interface {
	ExpireIdle(cutoff time.Time) []string
}

// Scheduler periodically evicts idle report sessions
type Scheduler struct {
	sessions    SessionExpirer
	logger      *logrus.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	interval    time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewScheduler creates a new scheduler. A zero idleTimeout disables eviction.
func NewScheduler(sessions SessionExpirer, interval, idleTimeout time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		sessions:    sessions,
		logger:      logger,
		stopChan:    make(chan struct{}),
		interval:    interval,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Start begins the scheduled sweeps
func (s *Scheduler) Start() {
	if s.idleTimeout <= 0 {
		s.logger.Info("Session expiry disabled")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop ends the sweeps and waits for a running one to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.sweep(t)
		}
	}
}

// sweep evicts every session idle for longer than the timeout as of t
func (s *Scheduler) sweep(t time.Time) int {
	expired := s.sessions.ExpireIdle(t.Add(-s.idleTimeout))
	if len(expired) > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":      len(expired),
			"idle_timeout": s.idleTimeout.String(),
		}).Info("Expired idle sessions")
	} else {
		s.logger.Debug("No idle sessions to expire")
	}
	return len(expired)
}

// RunNow performs one sweep immediately
func (s *Scheduler) RunNow() int {
	return s.sweep(s.now())
}
