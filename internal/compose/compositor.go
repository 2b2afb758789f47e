package compose

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zhe.chen/storyweaver/internal/artifact"
	"github.com/zhe.chen/storyweaver/internal/render"
	"github.com/zhe.chen/storyweaver/internal/upstream"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// SceneInput is one scene to place in the video.
type SceneInput struct {
	ImageRef    string
	Description string
}

// Request describes one video.
type Request struct {
	Title    string
	Scenes   []SceneInput
	AudioRef string
	Total    time.Duration
}

// Metadata summarises an encoded video.
type Metadata struct {
	Title      string    `json:"title"`
	Duration   int       `json:"duration"`
	Scenes     int       `json:"scenes"`
	Format     string    `json:"format"`
	Resolution string    `json:"resolution"`
	FPS        int       `json:"fps"`
	HasAudio   bool      `json:"has_audio"`
	Created    time.Time `json:"created"`
}

// Video is the compositor's output.
type Video struct {
	Ref        string
	PreviewRef string
	Metadata   Metadata
}

// Compositor renders segments and encodes them into one video.
type Compositor struct {
	fonts     *render.Fonts
	artifacts *artifact.Store
	loader    *Loader
	encoder   Encoder
	encodes   *semaphore.Weighted
	cfg       types.VideoConfig
	titleDur  time.Duration
	tempRoot  string
	log       *zap.Logger
}

// New creates a compositor. cfg.MaxConcurrentEncodes bounds how many
// encoder processes run at once across all callers.
func New(fonts *render.Fonts, artifacts *artifact.Store, encoder Encoder, cfg types.VideoConfig, titleDuration time.Duration, tempRoot string, log *zap.Logger) *Compositor {
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.MaxConcurrentEncodes
	if limit <= 0 {
		limit = 1
	}
	return &Compositor{
		fonts:     fonts,
		artifacts: artifacts,
		loader:    NewLoader(artifacts, cfg.FetchTimeout),
		encoder:   encoder,
		encodes:   semaphore.NewWeighted(int64(limit)),
		cfg:       cfg,
		titleDur:  titleDuration,
		tempRoot:  tempRoot,
		log:       log.Named("compositor"),
	}
}

// UsableAudio reports whether ref points at real narration.
func UsableAudio(ref string) bool {
	return ref != "" && !artifact.IsPlaceholder(ref)
}

// Compose renders and encodes req. An encoder failure yields the
// placeholder video as a degraded result. Budget, title card and temp
// directory failures are returned as errors.
func (c *Compositor) Compose(ctx context.Context, req Request) (upstream.Result[Video], error) {
	budget, err := PlanBudget(req.Total, c.titleDur, len(req.Scenes))
	if err != nil {
		return upstream.Result[Video]{}, err
	}

	tmp, err := os.MkdirTemp(c.tempRoot, "storyweaver-*")
	if err != nil {
		return upstream.Result[Video]{}, fmt.Errorf("failed to create temp dir: %w", err)
	}

	var written []string
	defer func() { c.cleanup(tmp, written) }()

	titlePath := filepath.Join(tmp, "title.png")
	if err := c.writeTitle(titlePath, req.Title); err != nil {
		return upstream.Result[Video]{}, err
	}
	written = append(written, titlePath)

	scenePaths, err := c.writeScenes(ctx, tmp, req.Scenes)
	written = append(written, scenePaths...)
	if err != nil {
		return upstream.Result[Video]{}, err
	}

	durations := budget.Durations()
	segments := make([]Segment, 0, len(durations))
	segments = append(segments, Segment{Path: titlePath, Duration: durations[0]})
	for i, p := range scenePaths {
		segments = append(segments, Segment{Path: p, Duration: durations[i+1]})
	}

	hasAudio := UsableAudio(req.AudioRef)
	name := c.artifacts.Name("video", 0, "mp4")
	graph := Graph{
		Segments: segments,
		Cap:      budget.Target,
		Encoding: Encoding{FPS: c.cfg.FPS, Preset: c.cfg.Preset, CRF: c.cfg.CRF},
		Output:   c.artifacts.Path(name),
	}
	if hasAudio {
		loc := c.artifacts.Resolve(req.AudioRef)
		graph.Audio = loc.Path
		if loc.Remote() {
			graph.Audio = loc.URL
		}
	}

	meta := Metadata{
		Title:      req.Title,
		Duration:   budget.Realised(),
		Scenes:     len(req.Scenes),
		Format:     "MP4",
		Resolution: fmt.Sprintf("%dx%d", render.FrameWidth, render.FrameHeight),
		FPS:        c.cfg.FPS,
		HasAudio:   hasAudio,
		Created:    time.Now(),
	}

	if err := c.encode(ctx, graph); err != nil {
		c.log.Error("encoding failed", zap.Error(err))
		return upstream.Fallback(Video{Ref: artifact.PlaceholderVideo, Metadata: meta}, err.Error()), nil
	}

	video := Video{Ref: c.artifacts.Ref(name), Metadata: meta}
	if c.cfg.Preview {
		video.PreviewRef = c.writePreview(req.Title, budget.Realised(), req.Scenes)
	}

	c.log.Info("video composed",
		zap.String("ref", video.Ref),
		zap.Int("duration", meta.Duration),
		zap.Int("scenes", meta.Scenes),
		zap.Bool("audio", hasAudio))
	return upstream.Real(video), nil
}

func (c *Compositor) encode(ctx context.Context, g Graph) error {
	args, err := g.Args()
	if err != nil {
		return err
	}
	if err := c.encodes.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for encoder slot: %w", err)
	}
	defer c.encodes.Release(1)

	return c.encoder.Encode(ctx, args)
}

func (c *Compositor) writeTitle(path, title string) error {
	img, err := render.TitleCard(c.fonts, title, c.cfg.Subtitle)
	if err != nil {
		return fmt.Errorf("failed to render title card: %w", err)
	}
	return writePNG(path, img)
}

// writeScenes renders every scene segment concurrently and returns the
// paths of those written, in scene order.
func (c *Compositor) writeScenes(ctx context.Context, dir string, scenes []SceneInput) ([]string, error) {
	paths := make([]string, len(scenes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, scene := range scenes {
		g.Go(func() error {
			img := c.sceneFrame(ctx, i+1, scene)
			p := filepath.Join(dir, fmt.Sprintf("scene_%d.png", i+1))
			if err := writePNG(p, img); err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}

	err := g.Wait()
	var written []string
	for _, p := range paths {
		if p != "" {
			written = append(written, p)
		}
	}
	if err != nil {
		return written, fmt.Errorf("failed to write scene segment: %w", err)
	}
	return written, nil
}

// sceneFrame letterboxes the scene's image, or draws the fallback frame
// when the image cannot be loaded or drawn.
func (c *Compositor) sceneFrame(ctx context.Context, ordinal int, scene SceneInput) image.Image {
	log := c.log.With(zap.Int("scene", ordinal))

	src, err := c.loader.Load(ctx, scene.ImageRef)
	if err == nil {
		frame, ferr := render.SceneFrame(c.fonts, src, scene.Description)
		if ferr == nil {
			return frame
		}
		err = ferr
	}
	log.Warn("using fallback frame", zap.String("image", scene.ImageRef), zap.Error(err))

	frame, ferr := render.FallbackFrame(c.fonts, ordinal, scene.Description)
	if ferr != nil {
		log.Error("fallback frame failed", zap.Error(ferr))
		return image.NewRGBA(image.Rect(0, 0, render.FrameWidth, render.FrameHeight))
	}
	return frame
}

func (c *Compositor) writePreview(title string, seconds int, scenes []SceneInput) string {
	ps := make([]render.PreviewScene, len(scenes))
	for i, s := range scenes {
		ps[i] = render.PreviewScene{Description: s.Description}
	}

	img, err := render.Preview(c.fonts, title, seconds, ps)
	if err == nil {
		var data []byte
		if data, err = render.EncodePNG(img); err == nil {
			var ref string
			if ref, err = c.artifacts.Write(c.artifacts.Name("video_preview", 0, "png"), data); err == nil {
				return ref
			}
		}
	}
	c.log.Warn("preview not written", zap.Error(err))
	return ""
}

// cleanup removes segment files and the temp dir. Failures are logged.
func (c *Compositor) cleanup(dir string, files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			c.log.Warn("cleanup failed", zap.String("path", f), zap.Error(err))
		}
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		c.log.Warn("cleanup failed", zap.String("path", dir), zap.Error(err))
	}
}

func writePNG(path string, img image.Image) error {
	data, err := render.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
