package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"gitlab.com/calyxos/image-burner/internal/flash"
	"net/http"
	"strconv"
	"time"
)

var ErrUnsafeDisabled = errors.New("unsafe mode is disabled on this server")

type DeviceLister interface {
	Scan(includeNonRemovable bool) ([]*device.Device, error)
	Devices() []*device.Device
}

type Flasher interface {
	Start(ctx context.Context, req flash.Request, sink flash.ProgressFunc) (*flash.Job, error)
	Current() *flash.Job
}

type Config struct {
	Devices        DeviceLister
	Flash          Flasher
	AllowUnsafe    bool
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// Server exposes device listing and flash control over HTTP.
type Server struct {
	devices        DeviceLister
	flash          Flasher
	allowUnsafe    bool
	allowedOrigins []string
	logger         *logrus.Logger
}

func New(config *Config) *Server {
	return &Server{
		devices:        config.Devices,
		flash:          config.Flash,
		allowUnsafe:    config.AllowUnsafe,
		allowedOrigins: config.AllowedOrigins,
		logger:         config.Logger,
	}
}

type deviceView struct {
	Path      string `json:"path"`
	Vendor    string `json:"vendor"`
	Model     string `json:"model,omitempty"`
	Label     string `json:"label"`
	SizeBytes uint64 `json:"sizeBytes"`
	Removable bool   `json:"removable"`
}

type flashRequest struct {
	Image   string `json:"image"`
	Device  string `json:"device"`
	Unsafe  bool   `json:"unsafe"`
	Unmount bool   `json:"unmount"`
	Confirm bool   `json:"confirm"`
}

type jobView struct {
	ID       string         `json:"id"`
	Done     bool           `json:"done"`
	Error    string         `json:"error,omitempty"`
	Progress flash.Progress `json:"progress"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/devices", s.listDevices).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/rescan", s.rescanDevices).Methods(http.MethodPost)
	r.HandleFunc("/api/flash", s.startFlash).Methods(http.MethodPost)
	r.HandleFunc("/api/flash", s.flashStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/flash", s.cancelFlash).Methods(http.MethodDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.WithField("listen", addr).Info("starting server")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	if job := s.flash.Current(); job != nil {
		job.Cancel()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) unsafeParam(r *http.Request) (bool, error) {
	value := r.URL.Query().Get("unsafe")
	if value == "" {
		return false, nil
	}
	unsafe, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid unsafe parameter %q", value)
	}
	if unsafe && !s.allowUnsafe {
		return false, ErrUnsafeDisabled
	}
	return unsafe, nil
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	unsafe, err := s.unsafeParam(r)
	if err != nil {
		s.writeParamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views(s.devices.Devices(), unsafe))
}

func (s *Server) rescanDevices(w http.ResponseWriter, r *http.Request) {
	unsafe, err := s.unsafeParam(r)
	if err != nil {
		s.writeParamError(w, err)
		return
	}
	devices, err := s.devices.Scan(unsafe)
	if err != nil {
		s.logger.Errorf("rescan failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorView{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, views(devices, unsafe))
}

func (s *Server) startFlash(w http.ResponseWriter, r *http.Request) {
	var body flashRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if body.Image == "" || body.Device == "" {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "image and device are required"})
		return
	}
	if body.Unsafe && !s.allowUnsafe {
		writeJSON(w, http.StatusForbidden, errorView{Error: ErrUnsafeDisabled.Error()})
		return
	}

	requestID := uuid.NewString()
	logger := s.logger.WithFields(logrus.Fields{
		"requestId": requestID,
		"device":    body.Device,
		"image":     body.Image,
	})
	job, err := s.flash.Start(context.Background(), flash.Request{
		ID:      requestID,
		Image:   body.Image,
		Device:  body.Device,
		Unsafe:  body.Unsafe,
		Decider: flash.Answers{Unmount: body.Unmount, Write: body.Confirm},
	}, nil)
	if errors.Is(err, flash.ErrBusy) {
		writeJSON(w, http.StatusConflict, errorView{Error: err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("unable to start flash: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		return
	}
	logger.Info("flash started")
	w.Header().Set("Location", "/api/flash")
	writeJSON(w, http.StatusAccepted, viewJob(job))
}

func (s *Server) flashStatus(w http.ResponseWriter, r *http.Request) {
	job := s.flash.Current()
	if job == nil {
		writeJSON(w, http.StatusNotFound, errorView{Error: "no flash has been started"})
		return
	}
	writeJSON(w, http.StatusOK, viewJob(job))
}

func (s *Server) cancelFlash(w http.ResponseWriter, r *http.Request) {
	job := s.flash.Current()
	if job == nil {
		writeJSON(w, http.StatusNotFound, errorView{Error: "no flash has been started"})
		return
	}
	s.logger.WithField("requestId", job.ID).Info("cancelling flash")
	job.Cancel()
	writeJSON(w, http.StatusAccepted, viewJob(job))
}

func (s *Server) writeParamError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrUnsafeDisabled) {
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorView{Error: err.Error()})
}

func views(devices []*device.Device, unsafe bool) []deviceView {
	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		if !unsafe && !d.Removable() {
			continue
		}
		out = append(out, deviceView{
			Path:      d.Path(),
			Vendor:    d.Vendor(),
			Model:     d.Model(),
			Label:     d.DisplayLabel(),
			SizeBytes: d.SizeBytes(),
			Removable: d.Removable(),
		})
	}
	return out
}

func viewJob(job *flash.Job) jobView {
	view := jobView{ID: job.ID, Progress: job.Progress()}
	select {
	case <-job.Done():
		view.Done = true
		if err := job.Err(); err != nil {
			view.Error = err.Error()
		}
	default:
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
