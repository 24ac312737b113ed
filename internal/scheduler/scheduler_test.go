package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockExpirer is a mock implementation of SessionExpirer
type MockExpirer struct {
	mock.Mock
	mu    sync.Mutex
	calls int
}

func (m *MockExpirer) ExpireIdle(cutoff time.Time) []string {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	args := m.Called(cutoff)
	return args.Get(0).([]string)
}

func (m *MockExpirer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestRunNow_UsesIdleCutoff(t *testing.T) {
	expirer := &MockExpirer{}
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	expirer.On("ExpireIdle", now.Add(-2*time.Hour)).Return([]string{"a", "b"}).Once()

	s := NewScheduler(expirer, time.Minute, 2*time.Hour, testLogger())
	s.now = func() time.Time { return now }

	assert.Equal(t, 2, s.RunNow())
	expirer.AssertExpectations(t)
}

func TestStart_SweepsPeriodically(t *testing.T) {
	expirer := &MockExpirer{}
	expirer.On("ExpireIdle", mock.Anything).Return([]string{})

	s := NewScheduler(expirer, 10*time.Millisecond, time.Hour, testLogger())
	s.Start()
	assert.Eventually(t, func() bool { return expirer.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	calls := expirer.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, expirer.callCount())
}

func TestStart_DisabledWithoutTimeout(t *testing.T) {
	expirer := &MockExpirer{}

	s := NewScheduler(expirer, 5*time.Millisecond, 0, testLogger())
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	expirer.AssertNotCalled(t, "ExpireIdle", mock.Anything)
}
