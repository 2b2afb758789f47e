// Package artifact names, writes and resolves generated media files.
//
// Artifacts live in one flat directory and are referenced by a public
// prefix plus file name, e.g. "/generated/scene_2_1718000000000.png".
package artifact

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sentinel references returned when a capability is unavailable.
const (
	PlaceholderAudio = "/api/placeholder-audio.mp3"
	PlaceholderVideo = "/api/placeholder-video.mp4"
)

var placeholderImageColors = []string{"ff6b6b", "4ecdc4", "45b7d1", "96ceb4", "feca57", "ff9ff3"}

// PlaceholderImageURL returns the colored placeholder locator for a scene.
func PlaceholderImageURL(ordinal int) string {
	color := placeholderImageColors[mod(ordinal, len(placeholderImageColors))]
	return fmt.Sprintf("%s1024x1024/%s/ffffff?text=Scene+%d", placeholderImageHost, color, ordinal)
}

const placeholderImageHost = "https://via.placeholder.com/"

// IsPlaceholder reports whether ref is a sentinel rather than real media.
func IsPlaceholder(ref string) bool {
	return ref == PlaceholderAudio || ref == PlaceholderVideo || strings.HasPrefix(ref, placeholderImageHost)
}

// Store owns the output directory.
type Store struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// New creates the output directory if needed.
func New(dir, publicPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{
		dir:    dir,
		prefix: "/" + strings.Trim(publicPrefix, "/"),
		now:    time.Now,
	}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Name builds "<kind>_<ordinal>_<timestamp>.<ext>", omitting the ordinal
// when it is not positive. Timestamps are strictly increasing per Store so
// concurrent runs never collide.
func (s *Store) Name(kind string, ordinal int, ext string) string {
	ts := s.timestamp()
	ext = strings.TrimPrefix(ext, ".")
	if ordinal > 0 {
		return fmt.Sprintf("%s_%d_%d.%s", kind, ordinal, ts, ext)
	}
	return fmt.Sprintf("%s_%d.%s", kind, ts, ext)
}

func (s *Store) timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

// Path returns the local path of an artifact name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Ref returns the public reference of an artifact name.
func (s *Store) Ref(name string) string {
	return path.Join(s.prefix, filepath.Base(name))
}

// Write stores data under name atomically and returns its reference.
func (s *Store) Write(name string, data []byte) (string, error) {
	dst := s.Path(name)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to rename artifact: %w", err)
	}
	return s.Ref(name), nil
}

// Location is where the bytes behind a reference can be read from.
type Location struct {
	Path string // set for local files
	URL  string // set for remote resources
}

// Remote reports whether the location must be fetched over HTTP.
func (l Location) Remote() bool {
	return l.URL != ""
}

// Resolve maps a reference to a local path or remote URL.
func (s *Store) Resolve(ref string) Location {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return Location{URL: ref}
	}
	if strings.HasPrefix(ref, s.prefix+"/") {
		return Location{Path: s.Path(strings.TrimPrefix(ref, s.prefix+"/"))}
	}
	return Location{Path: ref}
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
