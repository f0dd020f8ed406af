package robot

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftbotics/swiftbot/internal/hw/camera"
)

// fakeCameraGateway lends a real shared buffer and counts lifecycle
// calls so tests can assert the exactly-once borrow discipline.
type fakeCameraGateway struct {
	buf *camera.Buffer

	mu           sync.Mutex
	acquires     int
	releases     int
	videoCalls   int
	failAcquire  bool
	failVideo    error
	lastVideoArg string
}

func newFakeCameraGateway() *fakeCameraGateway {
	return &fakeCameraGateway{buf: camera.NewBuffer()}
}

func (g *fakeCameraGateway) AcquireFrameBuffer() (*camera.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAcquire {
		return nil, errors.New("camera busy")
	}
	h, err := g.buf.Lend()
	if err != nil {
		return nil, err
	}
	g.acquires++
	return h, nil
}

func (g *fakeCameraGateway) ReleaseFrameBuffer(h *camera.Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf.Revoke(h)
	g.releases++
	return nil
}

func (g *fakeCameraGateway) CaptureVideo(path string, seconds int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videoCalls++
	g.lastVideoArg = path
	return g.failVideo
}

func (g *fakeCameraGateway) counts() (acquires, releases, videos int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquires, g.releases, g.videoCalls
}

func validFrame(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, camera.FrameBytes)
}

func TestSession_StartIsIdempotent(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	acquires, releases, _ := gw.counts()
	assert.Equal(t, 1, acquires, "repeated Start must never re-acquire")
	assert.Equal(t, 0, releases)
	assert.True(t, s.Active())
}

func TestSession_StartStopCycles(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Start())
		s.Stop()
		s.Stop() // extra stop is a no-op
	}

	acquires, releases, _ := gw.counts()
	assert.Equal(t, 3, acquires, "one acquire per active run")
	assert.Equal(t, 3, releases, "exactly one release per active run")
	assert.False(t, s.Active())
}

func TestSession_StartFailsWhenUnavailable(t *testing.T) {
	gw := newFakeCameraGateway()
	gw.failAcquire = true
	s := newCameraSession(gw)

	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceUnavailable)
	assert.False(t, s.Active(), "failed Start must leave the session idle")

	// Recoverable: a later Start succeeds.
	gw.failAcquire = false
	require.NoError(t, s.Start())
}

func TestSession_CaptureWhileIdle(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)

	gw.buf.Write(validFrame(0x42))
	_, err := s.CaptureFrame()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSession_CaptureSizeMismatchKeepsSessionActive(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)
	require.NoError(t, s.Start())

	gw.buf.Write([]byte{1, 2, 3, 4})
	_, err := s.CaptureFrame()
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.True(t, s.Active(), "size mismatch is a per-call failure")

	// The next well-formed frame captures fine.
	gw.buf.Write(validFrame(0x7f))
	_, err = s.CaptureFrame()
	assert.NoError(t, err)
}

func TestSession_CaptureRoundTripAndIsolation(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)
	require.NoError(t, s.Start())

	src := make([]byte, camera.FrameBytes)
	for i := range src {
		src[i] = byte(i * 31)
	}
	gw.buf.Write(src)

	frame, err := s.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, 640, frame.Width())
	assert.Equal(t, 480, frame.Height())
	require.True(t, bytes.Equal(src, frame.Bytes()), "pixel bytes must round-trip exactly")

	// Overwriting the shared region must not touch the captured frame.
	gw.buf.Write(validFrame(0x00))
	assert.True(t, bytes.Equal(src, frame.Bytes()), "frame must not alias the shared buffer")
}

func TestSession_VideoWhileActiveIsConflict(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)
	require.NoError(t, s.Start())

	err := s.CaptureVideoTo("/tmp/out.avi", 2)
	assert.ErrorIs(t, err, ErrConflictingSession)

	_, _, videos := gw.counts()
	assert.Equal(t, 0, videos, "conflicting video request must not reach the gateway")
}

func TestSession_VideoWhileIdleDelegates(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)

	require.NoError(t, s.CaptureVideoTo("/tmp/out.avi", 2))
	_, _, videos := gw.counts()
	assert.Equal(t, 1, videos)
	assert.Equal(t, "/tmp/out.avi", gw.lastVideoArg)
}

func TestSession_VideoFailureWrapped(t *testing.T) {
	gw := newFakeCameraGateway()
	gw.failVideo = errors.New("device wedged")
	s := newCameraSession(gw)

	err := s.CaptureVideoTo("/tmp/out.avi", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.Contains(t, err.Error(), "device wedged")
}

func TestSession_CaptureAfterStopFails(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)
	require.NoError(t, s.Start())
	s.Stop()

	_, err := s.CaptureFrame()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSession_ConcurrentCaptureNeverTorn(t *testing.T) {
	gw := newFakeCameraGateway()
	s := newCameraSession(gw)
	require.NoError(t, s.Start())

	frameA := validFrame(0xAA)
	frameB := validFrame(0x55)
	gw.buf.Write(frameA)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				gw.buf.Write(frameB)
			} else {
				gw.buf.Write(frameA)
			}
		}
	}()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		frame, err := s.CaptureFrame()
		require.NoError(t, err)
		pix := frame.Bytes()
		require.Len(t, pix, camera.FrameBytes)
		first := pix[0]
		for i, b := range pix {
			if b != first {
				t.Fatalf("torn frame: byte %d is %#x, byte 0 is %#x", i, b, first)
			}
		}
	}
	close(stop)
	wg.Wait()
}
