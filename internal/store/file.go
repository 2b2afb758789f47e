package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// record is the on-disk document for one story.
type record struct {
	Story  *types.Story  `json:"story"`
	Scenes []types.Scene `json:"scenes"`
}

// File stores one JSON document per story in a directory. Documents are
// replaced atomically so a reader never sees a partial write.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(id string) string {
	return filepath.Join(f.dir, filepath.Base(id)+".json")
}

func (f *File) load(id string) (*record, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read story: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse story %s: %w", id, err)
	}
	return &rec, nil
}

func (f *File) save(rec *record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	path := f.path(rec.Story.ID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write story: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename story: %w", err)
	}
	return nil
}

func (f *File) CreateStory(ctx context.Context, story *types.Story) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path(story.ID)); err == nil {
		return fmt.Errorf("story %s already exists", story.ID)
	}
	return f.save(&record{Story: story.Clone()})
}

func (f *File) GetStory(ctx context.Context, id string) (*types.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.load(id)
	if err != nil {
		return nil, err
	}
	return rec.Story, nil
}

func (f *File) UpdateStory(ctx context.Context, id string, update types.StoryUpdate) (*types.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.load(id)
	if err != nil {
		return nil, err
	}
	if err := update.ApplyTo(rec.Story); err != nil {
		return nil, err
	}
	if err := f.save(rec); err != nil {
		return nil, err
	}
	return rec.Story.Clone(), nil
}

func (f *File) CreateScene(ctx context.Context, scene *types.Scene) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.load(scene.StoryID)
	if err != nil {
		return err
	}
	for _, existing := range rec.Scenes {
		if existing.Ordinal == scene.Ordinal {
			return fmt.Errorf("%w: story %s scene %d", ErrDuplicateScene, scene.StoryID, scene.Ordinal)
		}
	}
	rec.Scenes = append(rec.Scenes, *scene)
	return f.save(rec)
}

func (f *File) ListScenes(ctx context.Context, storyID string) ([]types.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.load(storyID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rec.Scenes, func(i, j int) bool { return rec.Scenes[i].Ordinal < rec.Scenes[j].Ordinal })
	return rec.Scenes, nil
}

func (f *File) Close() error { return nil }
