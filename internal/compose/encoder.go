package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Encoder runs the encoding subprocess.
type Encoder interface {
	Encode(ctx context.Context, args []string) error
}

// FFmpeg invokes the ffmpeg binary.
type FFmpeg struct {
	Path string
	log  *zap.Logger
}

// NewFFmpeg creates an encoder. An empty path looks up "ffmpeg" on PATH.
func NewFFmpeg(path string, log *zap.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpeg{Path: path, log: log.Named("ffmpeg")}
}

// Encode runs ffmpeg with args and reports its output on failure.
func (f *FFmpeg) Encode(ctx context.Context, args []string) error {
	f.log.Debug("running", zap.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, f.Path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w, output: %s", err, tail(output, 2048))
	}
	return nil
}

// tail keeps the last n bytes of b, where ffmpeg prints its error.
func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
