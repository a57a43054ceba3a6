// Package pipeline translates editing requests into engine-neutral
// processing specifications: an ordered list of source inputs, an ordered
// list of transform steps and the output targets.
//
// Builders are pure apart from probing source durations; they never start
// the media engine, so a Spec can be built and discarded freely.
package pipeline

import (
	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/timeline"
)

// Kind identifies the editing operation a Spec was built for.
type Kind string

const (
	KindTrim      Kind = "trim"
	KindCut       Kind = "cut"
	KindComposite Kind = "composite"
	KindWatermark Kind = "watermark"
	KindSnapshot  Kind = "snapshot"
	KindConvert   Kind = "convert"
	KindVolume    Kind = "volume"
)

// MediaType selects which streams an operation carries.
type MediaType string

const (
	// MediaVideo keeps the video stream and any audio.
	MediaVideo MediaType = "video"
	// MediaAudio drops video and processes audio only.
	MediaAudio MediaType = "audio"
)

// IsValid reports whether m is a known media type.
func (m MediaType) IsValid() bool {
	return m == MediaVideo || m == MediaAudio
}

// StepKind identifies a transform step.
type StepKind string

const (
	// StepExtract selects Range from Input.
	StepExtract StepKind = "extract"
	// StepConcat joins every preceding extract step in order.
	StepConcat StepKind = "concat"
	// StepOverlay draws Input at (X, Y) over the running video while Range is active.
	StepOverlay StepKind = "overlay"
	// StepFrame grabs one still image from Input into Output.
	StepFrame StepKind = "frame"
	// StepEncode re-encodes to Target.
	StepEncode StepKind = "encode"
	// StepVolume scales audio amplitude by Gain.
	StepVolume StepKind = "volume"
)

// Input describes one source opened by the engine.
type Input struct {
	// Path is the source file.
	Path string
	// Seek is an input-side seek in seconds applied before decoding.
	Seek float64
}

// Step is a single transform. Only the fields relevant to Kind are set.
type Step struct {
	Kind   StepKind
	Input  int
	Output int
	Range  timeline.Range
	X, Y   int
	At     float64
	Gain   float64
	Target preset.Target
}

// Output is one file written by the pipeline.
type Output struct {
	// Path is the destination file.
	Path string
	// Quality is the still-image quality (1 best .. 5), snapshot outputs only.
	Quality int
}

// Spec is an immutable description of one pipeline run.
type Spec struct {
	kind     Kind
	media    MediaType
	inputs   []Input
	steps    []Step
	outputs  []Output
	duration float64
}

// Kind returns the operation the pipeline was built for.
func (s *Spec) Kind() Kind { return s.kind }

// Media returns the stream selection of the pipeline.
func (s *Spec) Media() MediaType { return s.media }

// Duration returns the expected media duration of the output in seconds.
// The session uses it to turn elapsed time into a progress ratio.
func (s *Spec) Duration() float64 { return s.duration }

// Inputs returns a copy of the ordered source descriptors.
func (s *Spec) Inputs() []Input { return append([]Input(nil), s.inputs...) }

// Steps returns a copy of the ordered transform steps.
func (s *Spec) Steps() []Step { return append([]Step(nil), s.steps...) }

// Outputs returns a copy of the output targets.
func (s *Spec) Outputs() []Output { return append([]Output(nil), s.outputs...) }

// OutputPaths returns the paths of every file the pipeline writes.
func (s *Spec) OutputPaths() []string {
	paths := make([]string, len(s.outputs))
	for i, o := range s.outputs {
		paths[i] = o.Path
	}
	return paths
}
