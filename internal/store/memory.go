package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// Memory keeps everything in process memory.
type Memory struct {
	mu      sync.RWMutex
	stories map[string]*types.Story
	scenes  map[string][]types.Scene
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		stories: make(map[string]*types.Story),
		scenes:  make(map[string][]types.Scene),
	}
}

func (m *Memory) CreateStory(ctx context.Context, story *types.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[story.ID]; ok {
		return fmt.Errorf("story %s already exists", story.ID)
	}
	m.stories[story.ID] = story.Clone()
	return nil
}

func (m *Memory) GetStory(ctx context.Context, id string) (*types.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *Memory) UpdateStory(ctx context.Context, id string, update types.StoryUpdate) (*types.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := s.Clone()
	if err := update.ApplyTo(next); err != nil {
		return nil, err
	}
	m.stories[id] = next
	return next.Clone(), nil
}

func (m *Memory) CreateScene(ctx context.Context, scene *types.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[scene.StoryID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, scene.StoryID)
	}
	for _, existing := range m.scenes[scene.StoryID] {
		if existing.Ordinal == scene.Ordinal {
			return fmt.Errorf("%w: story %s scene %d", ErrDuplicateScene, scene.StoryID, scene.Ordinal)
		}
	}
	m.scenes[scene.StoryID] = append(m.scenes[scene.StoryID], *scene)
	return nil
}

func (m *Memory) ListScenes(ctx context.Context, storyID string) ([]types.Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.stories[storyID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, storyID)
	}
	scenes := append([]types.Scene(nil), m.scenes[storyID]...)
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Ordinal < scenes[j].Ordinal })
	return scenes, nil
}

func (m *Memory) Close() error { return nil }
