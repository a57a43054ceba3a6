package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/preset"
)

// ErrUnsupportedSpec is returned when a spec cannot be rendered to ffmpeg arguments.
var ErrUnsupportedSpec = errors.New("unsupported pipeline spec")

// Args renders spec into an ffmpeg argument list, without the binary name.
// The result is deterministic for a given spec.
func Args(spec *pipeline.Spec) ([]string, error) {
	args := []string{"-hide_banner", "-nostdin", "-y"}

	switch spec.Kind() {
	case pipeline.KindTrim, pipeline.KindCut:
		return appendTrim(args, spec)
	case pipeline.KindComposite:
		return appendComposite(args, spec)
	case pipeline.KindWatermark:
		return appendWatermark(args, spec)
	case pipeline.KindSnapshot:
		return appendSnapshot(args, spec)
	case pipeline.KindConvert:
		return appendConvert(args, spec)
	case pipeline.KindVolume:
		return appendVolume(args, spec)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedSpec, spec.Kind())
	}
}

func appendTrim(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(inputs) != 1 || len(steps) != 1 || len(outputs) != 1 || steps[0].Kind != pipeline.StepExtract {
		return nil, fmt.Errorf("%w: trim expects one input, one extract step and one output", ErrUnsupportedSpec)
	}
	r := steps[0].Range

	// Input-side seek is frame accurate when re-encoding.
	args = append(args,
		"-ss", seconds(r.Begin()),
		"-t", seconds(r.Duration()),
		"-i", inputs[0].Path,
	)
	if spec.Media() == pipeline.MediaAudio {
		args = append(args, "-vn")
	}
	return append(args, outputs[0].Path), nil
}

func appendComposite(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(outputs) != 1 || len(steps) == 0 || steps[len(steps)-1].Kind != pipeline.StepConcat {
		return nil, fmt.Errorf("%w: composite must end with a concat step", ErrUnsupportedSpec)
	}
	for _, in := range inputs {
		args = append(args, "-i", in.Path)
	}

	video := spec.Media() == pipeline.MediaVideo
	var chains, labels []string
	n := 0
	for _, step := range steps[:len(steps)-1] {
		if step.Kind != pipeline.StepExtract {
			return nil, fmt.Errorf("%w: composite step %q", ErrUnsupportedSpec, step.Kind)
		}
		b, e := seconds(step.Range.Begin()), seconds(step.Range.End())
		if video {
			chains = append(chains, fmt.Sprintf("[%d:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d]", step.Input, b, e, n))
			labels = append(labels, fmt.Sprintf("[v%d]", n))
		}
		chains = append(chains, fmt.Sprintf("[%d:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d]", step.Input, b, e, n))
		labels = append(labels, fmt.Sprintf("[a%d]", n))
		n++
	}

	v := 0
	outLabels := "[outa]"
	if video {
		v = 1
		outLabels = "[outv][outa]"
	}
	chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=%d:a=1%s", strings.Join(labels, ""), n, v, outLabels))

	args = append(args, "-filter_complex", strings.Join(chains, ";"))
	if video {
		args = append(args, "-map", "[outv]")
	}
	args = append(args, "-map", "[outa]")
	return append(args, outputs[0].Path), nil
}

func appendWatermark(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(outputs) != 1 || len(steps) == 0 {
		return nil, fmt.Errorf("%w: watermark expects overlay steps and one output", ErrUnsupportedSpec)
	}
	for _, in := range inputs {
		args = append(args, "-i", in.Path)
	}

	chains := make([]string, 0, len(steps))
	prev := "[0:v]"
	for i, step := range steps {
		if step.Kind != pipeline.StepOverlay {
			return nil, fmt.Errorf("%w: watermark step %q", ErrUnsupportedSpec, step.Kind)
		}
		label := fmt.Sprintf("[wm%d]", i)
		// Half-open activity window [begin, end).
		enable := fmt.Sprintf("gte(t\\,%s)*lt(t\\,%s)", seconds(step.Range.Begin()), seconds(step.Range.End()))
		chains = append(chains, fmt.Sprintf("%s[%d:v]overlay=x=%d:y=%d:enable='%s'%s", prev, step.Input, step.X, step.Y, enable, label))
		prev = label
	}

	args = append(args,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", prev,
		"-map", "0:a?",
		"-c:a", "copy",
	)
	return append(args, outputs[0].Path), nil
}

func appendSnapshot(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: snapshot without frames", ErrUnsupportedSpec)
	}
	for _, in := range inputs {
		args = append(args, "-ss", seconds(in.Seek), "-i", in.Path)
	}
	for _, step := range steps {
		if step.Kind != pipeline.StepFrame || step.Output >= len(outputs) || step.Input >= len(inputs) {
			return nil, fmt.Errorf("%w: malformed frame step", ErrUnsupportedSpec)
		}
		out := outputs[step.Output]
		args = append(args,
			"-map", fmt.Sprintf("%d:v:0", step.Input),
			"-frames:v", "1",
			"-q:v", strconv.Itoa(out.Quality),
			out.Path,
		)
	}
	return args, nil
}

func appendConvert(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(inputs) != 1 || len(steps) != 1 || len(outputs) != 1 || steps[0].Kind != pipeline.StepEncode {
		return nil, fmt.Errorf("%w: convert expects one input, one encode step and one output", ErrUnsupportedSpec)
	}
	args = append(args, "-i", inputs[0].Path)
	args = appendTarget(args, steps[0].Target)
	return append(args, outputs[0].Path), nil
}

// appendTarget adds codec and container arguments for a preset.
func appendTarget(args []string, t preset.Target) []string {
	if t.NoVideo {
		args = append(args, "-vn")
	} else if t.VideoCodec != "" {
		args = append(args, "-c:v", t.VideoCodec)
		if t.VideoPreset != "" {
			args = append(args, "-preset", t.VideoPreset)
		}
		if t.CRF > 0 {
			args = append(args, "-crf", strconv.Itoa(t.CRF))
		}
		if t.PixelFormat != "" {
			args = append(args, "-pix_fmt", t.PixelFormat)
		}
	}

	if t.NoAudio {
		args = append(args, "-an")
	} else {
		if t.AudioCodec != "" {
			args = append(args, "-c:a", t.AudioCodec)
		}
		if t.AudioBitrate != "" {
			args = append(args, "-b:a", t.AudioBitrate)
		}
		if t.SampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(t.SampleRate))
		}
		if t.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(t.Channels))
		}
	}

	if t.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	if t.Format != "" {
		args = append(args, "-f", t.Format)
	}
	return args
}

func appendVolume(args []string, spec *pipeline.Spec) ([]string, error) {
	inputs, steps, outputs := spec.Inputs(), spec.Steps(), spec.Outputs()
	if len(inputs) != 1 || len(steps) != 1 || len(outputs) != 1 || steps[0].Kind != pipeline.StepVolume {
		return nil, fmt.Errorf("%w: volume expects one input, one volume step and one output", ErrUnsupportedSpec)
	}
	return append(args,
		"-i", inputs[0].Path,
		"-af", "volume="+strconv.FormatFloat(steps[0].Gain, 'f', 6, 64),
		"-c:v", "copy",
		outputs[0].Path,
	), nil
}

// seconds formats a timestamp with millisecond precision.
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
