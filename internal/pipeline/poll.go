package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// DefaultPollInterval is how often Poll re-reads a story when no interval
// is given.
const DefaultPollInterval = 2 * time.Second

// Poll re-reads the story every interval until it is completed or failed
// and returns the terminal record.
func Poll(ctx context.Context, st store.Store, id string, interval time.Duration) (*types.Story, error) {
	return Watch(ctx, st, id, interval, nil)
}

// Watch is Poll with a callback invoked each time the observed status
// changes, including for the first read.
func Watch(ctx context.Context, st store.Store, id string, interval time.Duration, onChange func(*types.Story)) (*types.Story, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last types.StoryStatus
	for {
		story, err := st.GetStory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to poll story: %w", err)
		}
		if story.Status != last {
			last = story.Status
			if onChange != nil {
				onChange(story)
			}
		}
		if story.Status.IsTerminal() {
			return story, nil
		}

		select {
		case <-ctx.Done():
			return story, ctx.Err()
		case <-ticker.C:
		}
	}
}
