package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediakit/internal/audio"
	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/loudness"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/storage"
	"github.com/maauso/mediakit/internal/task"
	"github.com/maauso/mediakit/internal/timeline"
)

// DefaultMaxUploadBytes bounds the body of POST /uploads.
const DefaultMaxUploadBytes int64 = 2 << 30

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	editor         *editor.Editor
	uploads        storage.Storage
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithUploads enables POST /uploads, storing bodies in s.
func WithUploads(s storage.Storage) HandlerOption {
	return func(h *Handlers) {
		h.uploads = s
	}
}

// WithMaxUploadBytes limits the size of uploaded files.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ed *editor.Editor, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		editor:         ed,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Session: string(h.editor.Status())})
}

// Trim handles POST /tasks/trim requests.
func (h *Handlers) Trim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.editor.Trim(r.Context(), editor.TrimRequest{
		Source:  req.Source,
		Output:  req.Output,
		Begin:   req.Begin,
		End:     req.End,
		Media:   pipeline.MediaType(req.Media),
		Publish: req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// Cut handles POST /tasks/cut requests.
func (h *Handlers) Cut(w http.ResponseWriter, r *http.Request) {
	var req CutRequest
	if !h.decode(w, r, &req) {
		return
	}
	segments := make([]editor.Segment, len(req.Segments))
	for i, s := range req.Segments {
		segments[i] = editor.Segment{Index: s.Index, Begin: s.Begin, End: s.End}
	}
	res, err := h.editor.CutAudio(r.Context(), editor.CutRequest{
		Source:    req.Source,
		OutputDir: req.OutputDir,
		Segments:  segments,
		Media:     pipeline.MediaType(req.Media),
		Publish:   req.Publish,
	}, h.logCompletion(r))
	if err != nil {
		h.accepted(w, nil, nil, err)
		return
	}
	h.accepted(w, res.Task, res.Skipped, nil)
}

// Composite handles POST /tasks/composite requests.
func (h *Handlers) Composite(w http.ResponseWriter, r *http.Request) {
	var req CompositeRequest
	if !h.decode(w, r, &req) {
		return
	}
	clips := make([]editor.Clip, len(req.Clips))
	for i, c := range req.Clips {
		clips[i] = editor.Clip{Source: c.Source, Begin: c.Begin, End: c.End}
	}
	t, err := h.editor.Composite(r.Context(), editor.CompositeRequest{
		Clips:   clips,
		Output:  req.Output,
		Media:   pipeline.MediaType(req.Media),
		Publish: req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// Watermark handles POST /tasks/watermark requests.
func (h *Handlers) Watermark(w http.ResponseWriter, r *http.Request) {
	var req WatermarkRequest
	if !h.decode(w, r, &req) {
		return
	}
	overlays := make([]editor.Overlay, len(req.Overlays))
	for i, o := range req.Overlays {
		overlays[i] = editor.Overlay{Image: o.Image, X: o.X, Y: o.Y, Begin: o.Begin, End: o.End}
	}
	t, err := h.editor.Watermark(r.Context(), editor.WatermarkRequest{
		Source:   req.Source,
		Output:   req.Output,
		Overlays: overlays,
		Publish:  req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// Snapshot handles POST /tasks/snapshot requests.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.editor.Snapshot(r.Context(), editor.SnapshotRequest{
		Source:   req.Source,
		Dir:      req.Dir,
		Prefix:   req.Prefix,
		Start:    req.Start,
		FPS:      req.FPS,
		Duration: req.Duration,
		Quality:  req.Quality,
		Publish:  req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// Convert handles POST /tasks/convert requests.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.editor.Convert(r.Context(), editor.ConvertRequest{
		Source:  req.Source,
		Output:  req.Output,
		Preset:  req.Preset,
		Publish: req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// Volume handles POST /tasks/volume requests.
func (h *Handlers) Volume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.editor.AdjustDecibel(r.Context(), editor.DecibelRequest{
		Source:   req.Source,
		Output:   req.Output,
		Decibel:  req.Decibel,
		Relative: req.Relative,
		Publish:  req.Publish,
	}, h.logCompletion(r))
	h.accepted(w, t, nil, err)
}

// ListTasks handles GET /tasks requests.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	records, err := h.editor.Tasks(r.Context())
	if err != nil {
		h.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list tasks", "TASK_FETCH_FAILED")
		return
	}
	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(records))}
	for _, rec := range records {
		resp.Tasks = append(resp.Tasks, toTaskResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTask handles GET /tasks/{id} requests.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task ID is required", "MISSING_TASK_ID")
		return
	}

	rec, err := h.editor.Task(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found", "TASK_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get task",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get task", "TASK_FETCH_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(rec))
}

// CancelTask handles POST /tasks/{id}/cancel requests.
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	if err := h.editor.CancelTask(taskID); err != nil {
		if errors.Is(err, task.ErrUnknownTask) {
			writeError(w, http.StatusNotFound, "task not found", "TASK_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "CANCEL_FAILED")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CancelActive handles POST /cancel requests.
func (h *Handlers) CancelActive(w http.ResponseWriter, r *http.Request) {
	h.editor.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

// Loudness handles GET /loudness?path= requests.
func (h *Handlers) Loudness(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	stats, err := h.editor.Loudness(r.Context(), path)
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoudnessResponse{
		Path:          path,
		Decibel:       finite(stats.Decibel),
		DecibelMedian: finite(stats.DecibelMedian),
	})
}

// Info handles GET /info?path= requests.
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.editor.Info(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	resp := InfoResponse{
		Path:     info.Path,
		Format:   info.FormatName,
		Duration: info.Duration,
		Size:     info.Size,
		BitRate:  info.BitRate,
		Streams:  make([]StreamResponse, 0, len(info.Streams)),
	}
	for _, s := range info.Streams {
		resp.Streams = append(resp.Streams, StreamResponse{
			Index:      s.Index,
			Type:       s.CodecType,
			Codec:      s.CodecName,
			Width:      s.Width,
			Height:     s.Height,
			SampleRate: s.SampleRate,
			Channels:   s.Channels,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Presets handles GET /presets requests.
func (h *Handlers) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: h.editor.Presets().Names()})
}

// Upload handles POST /uploads?name= requests. The body is stored as-is.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		writeError(w, http.StatusNotImplemented, "uploads are not enabled", "UPLOADS_DISABLED")
		return
	}
	name := filepath.Base(r.URL.Query().Get("name"))
	if name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "name is required", "VALIDATION_ERROR")
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	path, err := h.uploads.Import(r.Context(), name, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "UPLOAD_TOO_LARGE")
			return
		}
		h.logger.Error("failed to store upload",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store upload", "UPLOAD_FAILED")
		return
	}

	h.logger.Info("upload stored", slog.String("path", path))
	writeJSON(w, http.StatusCreated, UploadResponse{Path: path})
}

// decode reads and validates a JSON body, writing the error response itself
// on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// accepted writes the 202 response of an admitted task or the mapped error.
func (h *Handlers) accepted(w http.ResponseWriter, t *task.Task, skipped []*pipeline.SegmentError, err error) {
	if err != nil {
		h.writeEditorError(w, err)
		return
	}

	h.logger.Info("task created",
		slog.String("task_id", t.ID()),
		slog.String("kind", string(t.Kind())),
	)

	resp := CreateTaskResponse{
		ID:     t.ID(),
		Kind:   string(t.Kind()),
		Status: string(task.StateRunning),
	}
	for _, s := range skipped {
		resp.Skipped = append(resp.Skipped, SkippedSegment{Index: s.Index, Error: s.Err.Error()})
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// logCompletion logs the outcome of a task submitted over HTTP, since no
// client is waiting on its future. The line carries the submitting
// request's ID.
func (h *Handlers) logCompletion(r *http.Request) task.SubmitOption {
	requestID := RequestIDFrom(r.Context())
	return task.WithCompletion(func(t *task.Task) {
		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("task_id", t.ID()),
			slog.String("outcome", string(t.Outcome())),
		}
		if err := t.Err(); err != nil {
			h.logger.Warn("task finished", append(attrs, slog.String("error", err.Error()))...)
			return
		}
		h.logger.Info("task finished", attrs...)
	})
}

// writeEditorError maps editor errors to HTTP status codes.
func (h *Handlers) writeEditorError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, task.ErrPreviousTaskNotFinished):
		status, code = http.StatusConflict, "PREVIOUS_TASK_NOT_FINISHED"
	case errors.Is(err, task.ErrSessionClosed):
		status, code = http.StatusServiceUnavailable, "SHUTTING_DOWN"
	case errors.Is(err, editor.ErrInvalidPath):
		status, code = http.StatusUnprocessableEntity, "INVALID_PATH"
	case errors.Is(err, editor.ErrNoValidSegments):
		status, code = http.StatusBadRequest, "NO_VALID_SEGMENTS"
	case errors.Is(err, timeline.ErrInvalidRange):
		status, code = http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, preset.ErrUnknownPreset):
		status, code = http.StatusBadRequest, "UNKNOWN_PRESET"
	case errors.Is(err, task.ErrPublishUnavailable):
		status, code = http.StatusBadRequest, "PUBLISH_UNAVAILABLE"
	case errors.Is(err, editor.ErrInvalidRequest),
		errors.Is(err, pipeline.ErrInvalidSnapshot),
		errors.Is(err, pipeline.ErrInvalidMediaType):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, editor.ErrSilentSource):
		status, code = http.StatusUnprocessableEntity, "SILENT_SOURCE"
	case errors.Is(err, audio.ErrNoAudio), errors.Is(err, loudness.ErrEmptyStream):
		status, code = http.StatusUnprocessableEntity, "NO_AUDIO"
	case errors.Is(err, context.Canceled):
		status, code = http.StatusRequestTimeout, "REQUEST_CANCELLED"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("error", err.Error()))
	} else {
		h.logger.Warn("request rejected",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, err.Error(), code)
}

func toTaskResponse(rec *task.Record) TaskResponse {
	resp := TaskResponse{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Status:    string(rec.Status),
		Progress:  int(math.Round(rec.Progress * 100)),
		Error:     rec.Error,
		Outputs:   rec.Outputs,
		URLs:      rec.PublishedURLs,
		CreatedAt: rec.CreatedAt,
	}
	if !rec.CompletedAt.IsZero() {
		completed := rec.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// finite returns nil for values JSON cannot encode, such as the -Inf level
// of silent audio.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
