package compose

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidGraph is returned when a Graph cannot produce a valid command.
var ErrInvalidGraph = errors.New("invalid filter graph")

// Segment is a still image shown for a whole number of seconds.
type Segment struct {
	Path     string
	Duration int
}

// Encoding holds the output codec settings.
type Encoding struct {
	FPS    int
	Preset string
	CRF    int
}

// Graph is a concatenation of looped still segments with an optional
// audio track muxed on top.
type Graph struct {
	Segments []Segment
	Audio    string // local path or URL; empty for a silent video
	Cap      int    // output duration cap in seconds
	Encoding Encoding
	Output   string
}

// Validate checks segment count, durations and output settings.
func (g Graph) Validate() error {
	if len(g.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidGraph)
	}
	for i, s := range g.Segments {
		if s.Path == "" {
			return fmt.Errorf("%w: segment %d has no input", ErrInvalidGraph, i)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("%w: segment %d has duration %d", ErrInvalidGraph, i, s.Duration)
		}
	}
	if g.Cap <= 0 {
		return fmt.Errorf("%w: duration cap %d", ErrInvalidGraph, g.Cap)
	}
	if g.Encoding.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidGraph, g.Encoding.FPS)
	}
	if g.Output == "" {
		return fmt.Errorf("%w: no output", ErrInvalidGraph)
	}
	return nil
}

// Filter returns the concat filter over every segment's video stream.
func (g Graph) Filter() string {
	var sb strings.Builder
	for i := range g.Segments {
		fmt.Fprintf(&sb, "[%d:v]", i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=0[outv]", len(g.Segments))
	return sb.String()
}

// audioIndex is the input index of the audio track, one past the last
// segment.
func (g Graph) audioIndex() int {
	return len(g.Segments)
}

// Args renders the ffmpeg argument list.
func (g Graph) Args() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	fps := strconv.Itoa(g.Encoding.FPS)
	var args []string
	for _, s := range g.Segments {
		args = append(args, "-loop", "1", "-framerate", fps, "-t", strconv.Itoa(s.Duration), "-i", s.Path)
	}
	if g.Audio != "" {
		args = append(args, "-i", g.Audio)
	}

	args = append(args,
		"-filter_complex", g.Filter(),
		"-map", "[outv]",
		"-c:v", "libx264",
		"-preset", g.Encoding.Preset,
		"-crf", strconv.Itoa(g.Encoding.CRF),
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-t", strconv.Itoa(g.Cap),
	)
	if g.Audio != "" {
		args = append(args, "-map", fmt.Sprintf("%d:a", g.audioIndex()), "-c:a", "aac", "-shortest")
	}
	return append(args, "-y", g.Output), nil
}
