// Package compose turns a title and rendered scenes into one encoded video.
package compose

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoScenes is returned when there is nothing to compose.
	ErrNoScenes = errors.New("no scenes to compose")
	// ErrBudgetTooSmall is returned when scenes would get less than a second each.
	ErrBudgetTooSmall = errors.New("duration budget too small for scene count")
)

// Budget splits a total duration into a fixed title slot and equal
// whole-second scene slots. The remainder is dropped, so the realised
// total may fall short of the target by up to scenes-1 seconds.
type Budget struct {
	Title    int // seconds
	PerScene int // seconds
	Scenes   int
	Target   int // nominal total in seconds, used as the encode cap
}

// PlanBudget computes the budget for sceneCount scenes.
func PlanBudget(total, title time.Duration, sceneCount int) (Budget, error) {
	if sceneCount <= 0 {
		return Budget{}, ErrNoScenes
	}
	totalSec := int(total / time.Second)
	titleSec := int(title / time.Second)

	perScene := (totalSec - titleSec) / sceneCount
	if titleSec <= 0 || perScene < 1 {
		return Budget{}, fmt.Errorf("%w: total=%ds title=%ds scenes=%d", ErrBudgetTooSmall, totalSec, titleSec, sceneCount)
	}

	return Budget{
		Title:    titleSec,
		PerScene: perScene,
		Scenes:   sceneCount,
		Target:   totalSec,
	}, nil
}

// Durations returns the segment durations in order, title first.
func (b Budget) Durations() []int {
	d := make([]int, 0, b.Scenes+1)
	d = append(d, b.Title)
	for i := 0; i < b.Scenes; i++ {
		d = append(d, b.PerScene)
	}
	return d
}

// Realised returns the summed segment duration in seconds.
func (b Budget) Realised() int {
	return b.Title + b.Scenes*b.PerScene
}
