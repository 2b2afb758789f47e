package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/compose"
	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// StepFunc performs one stage's work under ctx, the stage deadline, and
// writes its output together with the next status. A non-empty reason
// marks the output as a fallback.
type StepFunc func(ctx context.Context, p *Pipeline, rs *runState) (reason string, err error)

var steps = map[types.PipelineStage]StepFunc{
	types.StageSummarize:  ExecuteSummarize,
	types.StageNarrate:    ExecuteNarrate,
	types.StageIllustrate: ExecuteIllustrate,
	types.StageCompose:    ExecuteCompose,
}

var stageStatus = map[types.PipelineStage]types.StoryStatus{
	types.StageSummarize:  types.StorySummarizing,
	types.StageNarrate:    types.StoryGeneratingAudio,
	types.StageIllustrate: types.StoryGeneratingImages,
	types.StageCompose:    types.StoryCreatingVideo,
}

// GetStageOrder returns the ordered list of pipeline stages
func GetStageOrder() []types.PipelineStage {
	return []types.PipelineStage{
		types.StageSummarize,
		types.StageNarrate,
		types.StageIllustrate,
		types.StageCompose,
	}
}

// GetStepForStage returns the step function for a given stage
func GetStepForStage(stage types.PipelineStage) (StepFunc, error) {
	step, ok := steps[stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
	return step, nil
}

// StatusForStage is the story status written while stage runs.
func StatusForStage(stage types.PipelineStage) types.StoryStatus {
	return stageStatus[stage]
}

// ExecuteSummarize condenses the story text in the narration language.
func ExecuteSummarize(ctx context.Context, p *Pipeline, rs *runState) (string, error) {
	res := p.summarizer.Summarize(ctx, rs.story.Text, rs.inputLang, rs.outputLang)
	rs.summary = res.Value

	next := types.StoryGeneratingAudio
	if err := p.update(rs, types.StoryUpdate{Status: &next, Summary: &rs.summary}); err != nil {
		return "", err
	}
	return fallbackReason(res.Degraded, res.Reason), nil
}

// ExecuteNarrate synthesizes the summary as audio.
func ExecuteNarrate(ctx context.Context, p *Pipeline, rs *runState) (string, error) {
	res := p.narrator.Synthesize(ctx, rs.summary, rs.outputLang)
	rs.audioRef = res.Value

	next := types.StoryGeneratingImages
	if err := p.update(rs, types.StoryUpdate{Status: &next, AudioRef: &rs.audioRef}); err != nil {
		return "", err
	}
	return fallbackReason(res.Degraded, res.Reason), nil
}

// ExecuteIllustrate plans the scenes and stores one image per scene, in
// ordinal order.
func ExecuteIllustrate(ctx context.Context, p *Pipeline, rs *runState) (string, error) {
	plan := p.planner.Plan(ctx, rs.summary, rs.inputLang)

	var reasons []string
	if plan.Degraded {
		reasons = append(reasons, "plan: "+fallbackReason(true, plan.Reason))
	}

	for i, description := range plan.Value {
		ordinal := i + 1
		img := p.images.GenerateImage(ctx, description, rs.inputLang, ordinal)
		if img.Degraded {
			reasons = append(reasons, fmt.Sprintf("scene %d: %s", ordinal, fallbackReason(true, img.Reason)))
		}

		if err := p.store.CreateScene(rs.ctx, store.NewScene(rs.story.ID, ordinal, description, img.Value)); err != nil {
			return "", fmt.Errorf("failed to store scene %d: %w", ordinal, err)
		}
		rs.scenes = append(rs.scenes, compose.SceneInput{ImageRef: img.Value, Description: description})
	}

	rs.log.Info("scenes illustrated", zap.Int("count", len(rs.scenes)))

	next := types.StoryCreatingVideo
	if err := p.update(rs, types.StoryUpdate{Status: &next}); err != nil {
		return "", err
	}
	return strings.Join(reasons, "; "), nil
}

// ExecuteCompose encodes the video and completes the story.
func ExecuteCompose(ctx context.Context, p *Pipeline, rs *runState) (string, error) {
	res, err := p.composer.Compose(ctx, compose.Request{
		Title:    rs.story.Title,
		Scenes:   rs.scenes,
		AudioRef: rs.audioRef,
		Total:    p.cfg.TotalDuration,
	})
	if err != nil {
		return "", err
	}

	meta := res.Value.Metadata
	rs.log.Info("video metadata",
		zap.String("format", meta.Format),
		zap.String("resolution", meta.Resolution),
		zap.Int("duration", meta.Duration),
		zap.Int("scenes", meta.Scenes),
		zap.Int("fps", meta.FPS),
		zap.Bool("has_audio", meta.HasAudio),
		zap.String("preview", res.Value.PreviewRef))

	videoRef := res.Value.Ref
	next := types.StoryCompleted
	if err := p.update(rs, types.StoryUpdate{Status: &next, VideoRef: &videoRef}); err != nil {
		return "", err
	}
	return fallbackReason(res.Degraded, res.Reason), nil
}

func fallbackReason(degraded bool, reason string) string {
	if !degraded {
		return ""
	}
	if reason == "" {
		return "fallback"
	}
	return reason
}
