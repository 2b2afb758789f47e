// Package store persists stories and their scenes.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhe.chen/storyweaver/internal/language"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

var (
	// ErrNotFound is returned when a story does not exist.
	ErrNotFound = errors.New("story not found")
	// ErrDuplicateScene is returned when a scene ordinal is already taken.
	ErrDuplicateScene = errors.New("scene ordinal already exists")
	// ErrInvalidStory is returned by NewStory for missing title or text.
	ErrInvalidStory = errors.New("invalid story")
)

// Store is the persistence the pipeline reads and writes. Implementations
// are safe for concurrent use and reject status changes that move a story
// backwards with types.ErrInvalidTransition.
type Store interface {
	CreateStory(ctx context.Context, story *types.Story) error
	GetStory(ctx context.Context, id string) (*types.Story, error)
	UpdateStory(ctx context.Context, id string, update types.StoryUpdate) (*types.Story, error)
	CreateScene(ctx context.Context, scene *types.Scene) error
	ListScenes(ctx context.Context, storyID string) ([]types.Scene, error)
	Close() error
}

// NewStory builds a pending story. Languages default to English.
func NewStory(title, text, inputLang, outputLang string) (*types.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidStory)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidStory)
	}

	now := time.Now().UTC()
	return &types.Story{
		ID:             uuid.NewString(),
		Title:          title,
		Text:           text,
		InputLanguage:  language.Normalize(inputLang),
		OutputLanguage: language.Normalize(outputLang),
		Status:         types.StoryPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewScene builds a scene record for storyID.
func NewScene(storyID string, ordinal int, description, imageRef string) *types.Scene {
	return &types.Scene{
		ID:          uuid.NewString(),
		StoryID:     storyID,
		Ordinal:     ordinal,
		Description: description,
		ImageRef:    imageRef,
		CreatedAt:   time.Now().UTC(),
	}
}
