package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/swiftbotics/swiftbot/internal/robot"
)

// stubDevice records facade calls and lets tests inject failures.
type stubDevice struct {
	mu sync.Mutex

	startErr error
	frameErr error
	active   bool

	videoErr     error
	videoStarted chan string   // receives the path when a capture begins
	videoGate    chan struct{} // capture blocks until closed, when non-nil

	speeds   [][2]float64
	halted   bool
	distance float64
	distErr  error
	lightOps []string
	started  int
	stopped  int
}

func (d *stubDevice) StartCamera() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started++
	d.active = true
	return nil
}

func (d *stubDevice) StopCamera() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped++
	d.active = false
}

func (d *stubDevice) GetFrame() (robot.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frameErr != nil {
		return robot.Frame{}, d.frameErr
	}
	return robot.NewFrame(bytes.Repeat([]byte{0x20, 0x40, 0x60}, 640*480)), nil
}

func (d *stubDevice) CaptureVideo(path string, seconds int) error {
	if d.videoStarted != nil {
		d.videoStarted <- path
	}
	if d.videoGate != nil {
		<-d.videoGate
	}
	return d.videoErr
}

func (d *stubDevice) CameraActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *stubDevice) SetMotorSpeeds(left, right float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speeds = append(d.speeds, [2]float64{left, right})
	return nil
}

func (d *stubDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	return nil
}

func (d *stubDevice) ReadDistance() (float64, error) {
	return d.distance, d.distErr
}

func (d *stubDevice) SetUnderlight(light, r, g, b int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lightOps = append(d.lightOps, "set")
	return nil
}

func (d *stubDevice) FillUnderlighting(r, g, b int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lightOps = append(d.lightOps, "fill")
	return nil
}

func (d *stubDevice) ClearUnderlighting() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lightOps = append(d.lightOps, "clear")
	return nil
}

func newTestServer(t *testing.T, dev *stubDevice) (*httptest.Server, *EventBroadcaster) {
	t.Helper()
	events := NewEventBroadcaster()
	mux := http.NewServeMux()
	NewHandlers(dev, events, t.TempDir()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, events
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestSnapshot_ServesJPEG(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{})

	resp, err := http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	head := make([]byte, 2)
	_, err = resp.Body.Read(head)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, head, "JPEG SOI marker")
}

func TestSnapshot_Annotated(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{})

	resp, err := http.Get(srv.URL + "/snapshot.jpg?annotate=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestSnapshot_CameraIdleIsConflict(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{frameErr: robot.ErrNotStarted})

	resp, err := http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCameraStartStop(t *testing.T) {
	dev := &stubDevice{}
	srv, _ := newTestServer(t, dev)

	resp, err := http.Post(srv.URL+"/camera/start", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/camera/stop", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, dev.started)
	require.Equal(t, 1, dev.stopped)
}

func TestCameraStart_Unavailable(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{startErr: robot.ErrResourceUnavailable})

	resp, err := http.Post(srv.URL+"/camera/start", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVideo_RunsJobAndBroadcasts(t *testing.T) {
	dev := &stubDevice{videoStarted: make(chan string, 1)}
	srv, events := newTestServer(t, dev)

	ch, unsub := events.Subscribe()
	defer unsub()

	resp := postJSON(t, srv.URL+"/video", map[string]int{"seconds": 3})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		JobID string `json:"job_id"`
		Path  string `json:"path"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	_, err := uuid.Parse(out.JobID)
	require.NoError(t, err, "job id should be a uuid")

	select {
	case path := <-dev.videoStarted:
		require.Equal(t, out.Path, path)
	case <-time.After(time.Second):
		t.Fatal("capture never started")
	}

	// recording, then done
	evt := recvEvent(t, ch)
	require.Equal(t, "video", evt.Kind)
	require.Equal(t, out.JobID, evt.JobID)
	evt = recvEvent(t, ch)
	require.Contains(t, evt.Msg, "done")
}

func TestVideo_ConflictsWhileRunning(t *testing.T) {
	dev := &stubDevice{
		videoStarted: make(chan string, 1),
		videoGate:    make(chan struct{}),
	}
	srv, _ := newTestServer(t, dev)

	resp := postJSON(t, srv.URL+"/video", map[string]int{"seconds": 3})
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	<-dev.videoStarted

	resp = postJSON(t, srv.URL+"/video", map[string]int{"seconds": 3})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	close(dev.videoGate)
}

func TestVideo_ConflictsWithLiveSession(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{active: true})

	resp := postJSON(t, srv.URL+"/video", map[string]int{"seconds": 3})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVideo_RejectsBadDuration(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{})

	resp := postJSON(t, srv.URL+"/video", map[string]int{"seconds": 0})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDriveAndHalt(t *testing.T) {
	dev := &stubDevice{}
	srv, _ := newTestServer(t, dev)

	resp := postJSON(t, srv.URL+"/drive", map[string]float64{"left": 0.5, "right": -0.5})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, [][2]float64{{0.5, -0.5}}, dev.speeds)

	resp, err := http.Post(srv.URL+"/halt", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, dev.halted)
}

func TestDrive_BadBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{})

	resp, err := http.Post(srv.URL+"/drive", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDistance(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{distance: 42.5})

	resp, err := http.Get(srv.URL + "/distance")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.InDelta(t, 42.5, out["distance_cm"], 1e-9)
}

func TestUnderlight_FillSetClear(t *testing.T) {
	dev := &stubDevice{}
	srv, _ := newTestServer(t, dev)

	resp := postJSON(t, srv.URL+"/underlight", map[string]int{"red": 255, "green": 0, "blue": 0})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	light := 2
	resp = postJSON(t, srv.URL+"/underlight", map[string]interface{}{
		"light": light, "red": 0, "green": 255, "blue": 0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/underlight", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []string{"fill", "set", "clear"}, dev.lightOps)
}

func TestStream_DeliversJPEGFrames(t *testing.T) {
	srv, _ := newTestServer(t, &stubDevice{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind)
	require.True(t, len(data) > 2 && data[0] == 0xff && data[1] == 0xd8, "binary payload should be a JPEG")
}

func TestButtonRelay_PublishesEvents(t *testing.T) {
	events := NewEventBroadcaster()
	ch, unsub := events.Subscribe()
	defer unsub()

	relay := NewButtonRelay(events)
	relay.OnPressed(robot.ButtonX)
	relay.OnReleased(robot.ButtonX)

	evt := recvEvent(t, ch)
	require.Equal(t, "button", evt.Kind)
	require.Equal(t, "X", evt.Button)
	require.Equal(t, "pressed", evt.State)

	evt = recvEvent(t, ch)
	require.Equal(t, "released", evt.State)
}
