// Package preset defines named conversion targets (codec and container
// hints) used by format conversion, compression and audio extraction.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed presets.toml
var builtinPresets string

// Names of the built-in presets.
const (
	Compress      = "compress"
	SubtitleAudio = "subtitle-audio"
	AAC           = "aac"
	MP4           = "mp4"
)

// ErrUnknownPreset is returned when a preset name is not in the catalog.
var ErrUnknownPreset = errors.New("unknown preset")

// Target describes how a conversion re-encodes its input.
// Empty fields leave the engine's defaults in place.
type Target struct {
	Name         string `toml:"-" json:"name"`
	Description  string `toml:"description" json:"description,omitempty"`
	VideoCodec   string `toml:"video_codec" json:"video_codec,omitempty"`
	VideoPreset  string `toml:"video_preset" json:"video_preset,omitempty"`
	CRF          int    `toml:"crf" json:"crf,omitempty"`
	PixelFormat  string `toml:"pixel_format" json:"pixel_format,omitempty"`
	NoVideo      bool   `toml:"no_video" json:"no_video,omitempty"`
	AudioCodec   string `toml:"audio_codec" json:"audio_codec,omitempty"`
	AudioBitrate string `toml:"audio_bitrate" json:"audio_bitrate,omitempty"`
	SampleRate   int    `toml:"sample_rate" json:"sample_rate,omitempty"`
	Channels     int    `toml:"channels" json:"channels,omitempty"`
	NoAudio      bool   `toml:"no_audio" json:"no_audio,omitempty"`
	Format       string `toml:"format" json:"format,omitempty"`
	FastStart    bool   `toml:"faststart" json:"faststart,omitempty"`
}

// Validate checks that the target does not drop every stream.
func (t Target) Validate() error {
	if t.NoVideo && t.NoAudio {
		return fmt.Errorf("preset %q: no_video and no_audio are mutually exclusive", t.Name)
	}
	if t.CRF < 0 || t.CRF > 51 {
		return fmt.Errorf("preset %q: crf %d out of range 0-51", t.Name, t.CRF)
	}
	return nil
}

type file struct {
	Presets map[string]Target `toml:"presets"`
}

// Catalog is a read-only set of named targets.
type Catalog struct {
	targets map[string]Target
}

// Builtin returns the catalog of presets shipped with the binary.
func Builtin() *Catalog {
	c, err := parse(builtinPresets)
	if err != nil {
		panic(fmt.Sprintf("preset: embedded presets are invalid: %v", err))
	}
	return c
}

// Load returns the built-in catalog extended by the presets in path.
// Entries in path replace built-ins with the same name. An empty path
// returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	extra, err := parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	for name, t := range extra.targets {
		c.targets[name] = t
	}
	return c, nil
}

func parse(data string) (*Catalog, error) {
	var f file
	decoder := toml.NewDecoder(strings.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&f); err != nil {
		return nil, err
	}

	c := &Catalog{targets: make(map[string]Target, len(f.Presets))}
	for name, t := range f.Presets {
		t.Name = name
		if err := t.Validate(); err != nil {
			return nil, err
		}
		c.targets[name] = t
	}
	return c, nil
}

// Get returns the named target.
func (c *Catalog) Get(name string) (Target, error) {
	t, ok := c.targets[name]
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return t, nil
}

// Names returns the preset names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.targets))
	for name := range c.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
