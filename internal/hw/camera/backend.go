package camera

import (
	"sync"
	"time"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// Backend is a camera capture implementation. StartStream begins
// writing frames into the given buffer from a producer goroutine until
// StopStream; CaptureVideo records to a file and must not be called
// while streaming (the gateway enforces that).
type Backend interface {
	StartStream(buf *Buffer) error
	StopStream()
	CaptureVideo(path string, seconds int) error
}

// MockBackend generates a synthetic BGR test pattern at a fixed rate,
// for development without a camera.
type MockBackend struct {
	Interval time.Duration // frame period; defaults to ~30fps

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// StartStream launches the pattern generator.
func (m *MockBackend) StartStream(buf *Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return nil // already streaming
	}

	interval := m.Interval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(buf, interval, m.stop, m.done)

	debug.Camera("mock stream started (interval %v)", interval)
	return nil
}

// StopStream halts the generator and waits for it to exit.
func (m *MockBackend) StopStream() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
		debug.Camera("mock stream stopped")
	}
}

// CaptureVideo pretends to record by sleeping for the duration.
func (m *MockBackend) CaptureVideo(path string, seconds int) error {
	debug.Camera("mock video capture to %s (%ds)", path, seconds)
	time.Sleep(time.Duration(seconds) * time.Second)
	return nil
}

func (m *MockBackend) run(buf *Buffer, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	frame := make([]byte, FrameBytes)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq byte
	for {
		// Horizontal gradient, shifted each frame so motion is visible.
		for y := 0; y < FrameHeight; y++ {
			row := y * FrameWidth * FrameChannels
			for x := 0; x < FrameWidth; x++ {
				i := row + x*FrameChannels
				frame[i] = byte(x) + seq     // B
				frame[i+1] = byte(y)         // G
				frame[i+2] = byte(x+y) - seq // R
			}
		}
		buf.Write(frame)
		seq++

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
