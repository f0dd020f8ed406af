package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/robot"
)

// Device is the slice of the robot surface the web handlers consume.
// *robot.Robot satisfies it; tests substitute a stub.
type Device interface {
	StartCamera() error
	StopCamera()
	GetFrame() (robot.Frame, error)
	CaptureVideo(path string, seconds int) error
	CameraActive() bool

	SetMotorSpeeds(left, right float64) error
	Stop() error
	ReadDistance() (float64, error)

	SetUnderlight(light, red, green, blue int) error
	FillUnderlighting(red, green, blue int) error
	ClearUnderlighting() error
}

// Handlers bundles the HTTP endpoints over a Device.
type Handlers struct {
	dev           Device
	events        *EventBroadcaster
	recordingsDir string

	videoMu      sync.Mutex
	videoRunning bool
}

// NewHandlers wires the endpoints. Recorded videos land in recordingsDir.
func NewHandlers(dev Device, events *EventBroadcaster, recordingsDir string) *Handlers {
	return &Handlers{dev: dev, events: events, recordingsDir: recordingsDir}
}

// Register attaches all routes to the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /events", h.handleEvents)
	mux.HandleFunc("GET /snapshot.jpg", h.handleSnapshot)
	mux.HandleFunc("GET /stream/ws", h.handleStream)
	mux.HandleFunc("POST /camera/start", h.handleCameraStart)
	mux.HandleFunc("POST /camera/stop", h.handleCameraStop)
	mux.HandleFunc("POST /video", h.handleVideo)
	mux.HandleFunc("POST /drive", h.handleDrive)
	mux.HandleFunc("POST /halt", h.handleHalt)
	mux.HandleFunc("GET /distance", h.handleDistance)
	mux.HandleFunc("POST /underlight", h.handleUnderlightSet)
	mux.HandleFunc("DELETE /underlight", h.handleUnderlightClear)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleEvents streams broadcast events as SSE until the client leaves.
func (h *Handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsub := h.events.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// handleSnapshot serves the latest frame as JPEG. ?annotate=1 stamps the
// capture time onto the image.
func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	frame, err := h.dev.GetFrame()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, robot.ErrNotStarted) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	if r.URL.Query().Get("annotate") == "1" {
		img := frame.Image()
		annotate(img, time.Now().Format("2006-01-02 15:04:05"))
		if err := encodeJPEG(w, img, 85); err != nil {
			debug.Error(err)
		}
		return
	}
	if err := frame.EncodeJPEG(w, 85); err != nil {
		debug.Error(err)
	}
}

func (h *Handlers) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.StartCamera(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, robot.ErrResourceUnavailable) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (h *Handlers) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	h.dev.StopCamera()
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

// handleVideo starts an asynchronous recording job. Only one job runs at
// a time, and recording conflicts with the live session.
func (h *Handlers) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Seconds <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("seconds must be positive, got %d", req.Seconds))
		return
	}

	h.videoMu.Lock()
	if h.videoRunning {
		h.videoMu.Unlock()
		writeError(w, http.StatusConflict, errors.New("a recording is already in progress"))
		return
	}
	if h.dev.CameraActive() {
		h.videoMu.Unlock()
		writeError(w, http.StatusConflict, robot.ErrConflictingSession)
		return
	}
	h.videoRunning = true
	h.videoMu.Unlock()

	jobID := uuid.NewString()
	path := filepath.Join(h.recordingsDir, jobID+".avi")

	go func() {
		defer func() {
			h.videoMu.Lock()
			h.videoRunning = false
			h.videoMu.Unlock()
		}()

		if err := os.MkdirAll(h.recordingsDir, 0o755); err != nil {
			debug.Error(err)
			h.events.Broadcast(Event{Kind: "video", JobID: jobID, Msg: "failed: " + err.Error()})
			return
		}
		h.events.Broadcast(Event{Kind: "video", JobID: jobID, Msg: "recording"})
		if err := h.dev.CaptureVideo(path, req.Seconds); err != nil {
			debug.Error(err)
			h.events.Broadcast(Event{Kind: "video", JobID: jobID, Msg: "failed: " + err.Error()})
			return
		}
		h.events.Broadcast(Event{Kind: "video", JobID: jobID, Msg: "done: " + path})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "path": path})
}

func (h *Handlers) handleDrive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Left  float64 `json:"left"`
		Right float64 `json:"right"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.dev.SetMotorSpeeds(req.Left, req.Right); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"left": req.Left, "right": req.Right})
}

func (h *Handlers) handleHalt(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

func (h *Handlers) handleDistance(w http.ResponseWriter, r *http.Request) {
	cm, err := h.dev.ReadDistance()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"distance_cm": cm})
}

// handleUnderlightSet fills all lights, or one when "light" is present.
func (h *Handlers) handleUnderlightSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Light *int `json:"light"`
		Red   int  `json:"red"`
		Green int  `json:"green"`
		Blue  int  `json:"blue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	if req.Light != nil {
		err = h.dev.SetUnderlight(*req.Light, req.Red, req.Green, req.Blue)
	} else {
		err = h.dev.FillUnderlighting(req.Red, req.Green, req.Blue)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) handleUnderlightClear(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.ClearUnderlighting(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
