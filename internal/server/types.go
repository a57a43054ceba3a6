// Package server provides the HTTP server for the mediakit API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// TrimRequest is the HTTP request body for trimming one range of a file.
type TrimRequest struct {
	// Source is the path of the input file.
	Source string `json:"source" validate:"required"`
	// Output is the path of the file to write.
	Output string `json:"output" validate:"required"`
	// Begin is the start of the range in seconds.
	Begin float64 `json:"begin" validate:"gte=0"`
	// End is the end of the range in seconds.
	End float64 `json:"end" validate:"gt=0"`
	// Media is "video" (default) or "audio".
	Media string `json:"media,omitempty" validate:"omitempty,oneof=video audio"`
	// Publish indicates whether to upload the output to S3.
	Publish bool `json:"publish"`
}

// SegmentRequest is one segment of a batch cut.
type SegmentRequest struct {
	Index string  `json:"index" validate:"required"`
	Begin float64 `json:"begin" validate:"gte=0"`
	End   float64 `json:"end" validate:"gt=0"`
}

// CutRequest is the HTTP request body for cutting several segments of a file.
type CutRequest struct {
	Source    string           `json:"source" validate:"required"`
	OutputDir string           `json:"output_dir" validate:"required"`
	Segments  []SegmentRequest `json:"segments" validate:"required,min=1"`
	Media     string           `json:"media,omitempty" validate:"omitempty,oneof=video audio"`
	Publish   bool             `json:"publish"`
}

// ClipRequest is one clip of a composite.
type ClipRequest struct {
	Source string  `json:"source" validate:"required"`
	Begin  float64 `json:"begin" validate:"gte=0"`
	End    float64 `json:"end" validate:"gt=0"`
}

// CompositeRequest is the HTTP request body for joining clips.
type CompositeRequest struct {
	Clips   []ClipRequest `json:"clips" validate:"required,min=1,dive"`
	Output  string        `json:"output" validate:"required"`
	Media   string        `json:"media,omitempty" validate:"omitempty,oneof=video audio"`
	Publish bool          `json:"publish"`
}

// OverlayRequest is one image of a watermark.
type OverlayRequest struct {
	Image string  `json:"image" validate:"required"`
	X     int     `json:"x" validate:"gte=0"`
	Y     int     `json:"y" validate:"gte=0"`
	Begin float64 `json:"begin" validate:"gte=0"`
	End   float64 `json:"end" validate:"gt=0"`
}

// WatermarkRequest is the HTTP request body for drawing images onto a video.
type WatermarkRequest struct {
	Source   string           `json:"source" validate:"required"`
	Output   string           `json:"output" validate:"required"`
	Overlays []OverlayRequest `json:"overlays" validate:"required,min=1,dive"`
	Publish  bool             `json:"publish"`
}

// SnapshotRequest is the HTTP request body for sampling stills.
type SnapshotRequest struct {
	Source   string  `json:"source" validate:"required"`
	Dir      string  `json:"dir" validate:"required"`
	Prefix   string  `json:"prefix"`
	Start    float64 `json:"start" validate:"gte=0"`
	FPS      int     `json:"fps" validate:"required,min=1,max=120"`
	Duration float64 `json:"duration" validate:"gt=0"`
	// Quality ranges from 1 (best) to 5. Zero selects the default.
	Quality int  `json:"quality,omitempty" validate:"omitempty,min=1,max=5"`
	Publish bool `json:"publish"`
}

// ConvertRequest is the HTTP request body for re-encoding with a preset.
type ConvertRequest struct {
	Source  string `json:"source" validate:"required"`
	Output  string `json:"output" validate:"required"`
	Preset  string `json:"preset" validate:"required"`
	Publish bool   `json:"publish"`
}

// VolumeRequest is the HTTP request body for changing the level of a file.
type VolumeRequest struct {
	Source string `json:"source" validate:"required"`
	Output string `json:"output" validate:"required"`
	// Decibel is the target level in dBFS, or the change in dB when Relative is set.
	Decibel  float64 `json:"decibel" validate:"gte=-120,lte=120"`
	Relative bool    `json:"relative"`
	Publish  bool    `json:"publish"`
}

// CreateTaskResponse is the HTTP response after a task was admitted.
type CreateTaskResponse struct {
	// ID is the handle of the task.
	ID string `json:"id"`
	// Kind is the editing operation.
	Kind string `json:"kind"`
	// Status is the initial task status.
	Status string `json:"status"`
	// Skipped lists the rejected segments of a batch cut.
	Skipped []SkippedSegment `json:"skipped,omitempty"`
}

// SkippedSegment is a batch cut segment that was not processed.
type SkippedSegment struct {
	Index string `json:"index"`
	Error string `json:"error"`
}

// TaskResponse is the HTTP response for getting task details.
type TaskResponse struct {
	// ID is the handle of the task.
	ID string `json:"id"`
	// Kind is the editing operation.
	Kind string `json:"kind"`
	// Status is the current task status.
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// Error contains any error message if the task failed or was cancelled.
	Error string `json:"error,omitempty"`
	// Outputs lists the files the task writes.
	Outputs []string `json:"outputs"`
	// URLs lists the S3 URLs of published outputs.
	URLs []string `json:"urls,omitempty"`
	// CreatedAt is when the task was admitted.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task finished.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskListResponse is the HTTP response for listing tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// LoudnessResponse is the HTTP response for a loudness measurement.
type LoudnessResponse struct {
	Path string `json:"path"`
	// Decibel is the overall level in dBFS. Null for silent audio.
	Decibel *float64 `json:"decibel"`
	// DecibelMedian is the median of per-window levels in dBFS. Null for silent audio.
	DecibelMedian *float64 `json:"decibel_median"`
}

// StreamResponse describes one stream of a media file.
type StreamResponse struct {
	Index      int    `json:"index"`
	Type       string `json:"type"`
	Codec      string `json:"codec"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// InfoResponse is the HTTP response for media metadata.
type InfoResponse struct {
	Path     string           `json:"path"`
	Format   string           `json:"format"`
	Duration float64          `json:"duration"`
	Size     int64            `json:"size"`
	BitRate  int64            `json:"bit_rate"`
	Streams  []StreamResponse `json:"streams"`
}

// UploadResponse is the HTTP response after a file was uploaded.
type UploadResponse struct {
	// Path is the server-side path to use as a source in later requests.
	Path string `json:"path"`
}

// PresetsResponse lists the available conversion presets.
type PresetsResponse struct {
	Presets []string `json:"presets"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Session is the admission state of the task session.
	Session string `json:"session"`
}
