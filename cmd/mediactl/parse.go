package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/mediakit/internal/editor"
)

// parseRange parses "BEGIN-END" in seconds.
func parseRange(s string) (float64, float64, error) {
	b, e, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: want BEGIN-END", s)
	}
	begin, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: begin: %w", s, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(e), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: end: %w", s, err)
	}
	return begin, end, nil
}

// parseSegment parses "INDEX:BEGIN-END".
func parseSegment(s string) (editor.Segment, error) {
	index, r, ok := strings.Cut(s, ":")
	if !ok {
		return editor.Segment{}, fmt.Errorf("segment %q: want INDEX:BEGIN-END", s)
	}
	begin, end, err := parseRange(r)
	if err != nil {
		return editor.Segment{}, fmt.Errorf("segment %q: %w", s, err)
	}
	return editor.Segment{Index: index, Begin: begin, End: end}, nil
}

// parseClip parses "PATH@BEGIN-END". The last '@' separates the range so
// paths may contain '@'.
func parseClip(s string) (editor.Clip, error) {
	path, r, ok := cutLast(s, "@")
	if !ok || path == "" {
		return editor.Clip{}, fmt.Errorf("clip %q: want PATH@BEGIN-END", s)
	}
	begin, end, err := parseRange(r)
	if err != nil {
		return editor.Clip{}, fmt.Errorf("clip %q: %w", s, err)
	}
	return editor.Clip{Source: path, Begin: begin, End: end}, nil
}

// parseOverlay parses "IMAGE@X,Y@BEGIN-END".
func parseOverlay(s string) (editor.Overlay, error) {
	rest, r, ok := cutLast(s, "@")
	if !ok {
		return editor.Overlay{}, fmt.Errorf("overlay %q: want IMAGE@X,Y@BEGIN-END", s)
	}
	image, pos, ok := cutLast(rest, "@")
	if !ok || image == "" {
		return editor.Overlay{}, fmt.Errorf("overlay %q: want IMAGE@X,Y@BEGIN-END", s)
	}

	xs, ys, ok := strings.Cut(pos, ",")
	if !ok {
		return editor.Overlay{}, fmt.Errorf("overlay %q: position %q: want X,Y", s, pos)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return editor.Overlay{}, fmt.Errorf("overlay %q: x: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return editor.Overlay{}, fmt.Errorf("overlay %q: y: %w", s, err)
	}
	begin, end, err := parseRange(r)
	if err != nil {
		return editor.Overlay{}, fmt.Errorf("overlay %q: %w", s, err)
	}
	return editor.Overlay{Image: image, X: x, Y: y, Begin: begin, End: end}, nil
}

func cutLast(s, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
