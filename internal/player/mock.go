package player

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Launcher.
type Mock struct {
	mu           sync.Mutex
	launchErr    error
	launches     []string
	handles      []*MockHandle
	playDuration time.Duration
}

// NewMock creates a new mock launcher for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Launch(ctx context.Context, url string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.launches = append(m.launches, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.launchErr != nil {
		return nil, m.launchErr
	}

	h := newMockHandle(url)
	m.handles = append(m.handles, h)
	if m.playDuration > 0 {
		time.AfterFunc(m.playDuration, h.Finish)
	}
	return h, nil
}

// Test helpers

// SetLaunchError makes every following Launch fail with err.
func (m *Mock) SetLaunchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchErr = err
}

// SetPlayDuration makes launched handles finish on their own after d.
// Zero keeps them running until Finish is called.
func (m *Mock) SetPlayDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playDuration = d
}

// Launches returns every URL passed to Launch, failed ones included.
func (m *Mock) Launches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.launches...)
}

// Last returns the most recently started handle, or nil.
func (m *Mock) Last() *MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Verify Mock implements Launcher at compile time.
var _ Launcher = (*Mock)(nil)

// MockHandle is a fake player process.
type MockHandle struct {
	URL string

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

func newMockHandle(url string) *MockHandle {
	return &MockHandle{URL: url, done: make(chan struct{})}
}

func (h *MockHandle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *MockHandle) Wait() error {
	<-h.done
	return nil
}

func (h *MockHandle) Stop() error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.Finish()
	return nil
}

// Finish simulates the player exiting. Safe to call more than once.
func (h *MockHandle) Finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Stopped reports whether Stop was called.
func (h *MockHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Verify MockHandle implements Handle at compile time.
var _ Handle = (*MockHandle)(nil)
