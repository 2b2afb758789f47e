package compose

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/zhe.chen/storyweaver/internal/artifact"
)

// maxImageBytes bounds a remote image download.
const maxImageBytes = 32 << 20

// Loader reads scene images from the artifact directory, the local
// filesystem or over HTTP.
type Loader struct {
	artifacts *artifact.Store
	client    *http.Client
}

// NewLoader creates a loader. timeout bounds each remote fetch.
func NewLoader(artifacts *artifact.Store, timeout time.Duration) *Loader {
	return &Loader{
		artifacts: artifacts,
		client:    &http.Client{Timeout: timeout},
	}
}

// Load decodes the image behind ref.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	loc := l.artifacts.Resolve(ref)
	if loc.Remote() {
		return l.fetch(ctx, loc.URL)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", loc.Path, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return img, nil
}
