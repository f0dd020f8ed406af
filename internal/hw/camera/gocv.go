package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// V4LBackend captures from a Video4Linux device through OpenCV. Webcam
// mats arrive as 8UC3 BGR, which is exactly the shared buffer's layout,
// so frames are copied straight through without conversion.
type V4LBackend struct {
	DeviceID int
	FPS      float64 // recording frame rate; defaults to 30

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// StartStream opens the device and launches the producer goroutine.
func (v *V4LBackend) StartStream(buf *Buffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		return nil // already streaming
	}

	cap, err := gocv.OpenVideoCapture(v.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera device %d: %w", v.DeviceID, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, FrameWidth)
	cap.Set(gocv.VideoCaptureFrameHeight, FrameHeight)

	v.stop = make(chan struct{})
	v.done = make(chan struct{})
	go v.run(cap, buf, v.stop, v.done)

	debug.Camera("v4l stream started (device %d)", v.DeviceID)
	return nil
}

// StopStream halts the producer and releases the device.
func (v *V4LBackend) StopStream() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
		debug.Camera("v4l stream stopped")
	}
}

func (v *V4LBackend) run(cap *gocv.VideoCapture, buf *Buffer, stop, done chan struct{}) {
	defer close(done)
	defer cap.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := cap.Read(&mat); !ok || mat.Empty() {
			// Device hiccup: back off briefly instead of spinning.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		data, err := mat.DataPtrUint8()
		if err != nil {
			debug.Error(fmt.Errorf("camera frame data: %w", err))
			continue
		}
		buf.Write(data)
	}
}

// CaptureVideo records MJPG-compressed video to path for the requested
// duration, blocking until done. The session layer guarantees the live
// stream is not running at the same time.
func (v *V4LBackend) CaptureVideo(path string, seconds int) error {
	fps := v.FPS
	if fps <= 0 {
		fps = 30
	}

	cap, err := gocv.OpenVideoCapture(v.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera device %d: %w", v.DeviceID, err)
	}
	defer cap.Close()
	cap.Set(gocv.VideoCaptureFrameWidth, FrameWidth)
	cap.Set(gocv.VideoCaptureFrameHeight, FrameHeight)

	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, FrameWidth, FrameHeight, true)
	if err != nil {
		return fmt.Errorf("open video writer %s: %w", path, err)
	}
	defer writer.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	for time.Now().Before(deadline) {
		if ok := cap.Read(&mat); !ok || mat.Empty() {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err := writer.Write(mat); err != nil {
			return fmt.Errorf("write video frame: %w", err)
		}
	}

	debug.Camera("video saved to %s", path)
	return nil
}
