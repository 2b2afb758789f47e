// Package pipeline drives a story through summarization, narration, scene
// illustration and video composition, persisting progress to the store
// after every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/compose"
	"github.com/zhe.chen/storyweaver/internal/language"
	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/internal/upstream"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// ErrFinished is returned when a run is requested for a story that already
// reached completed or failed.
var ErrFinished = errors.New("story already finished")

// failureWriteTimeout bounds the status write made after a run failed.
const failureWriteTimeout = 10 * time.Second

// ScenePlanner splits a summary into scene descriptions.
type ScenePlanner interface {
	Plan(ctx context.Context, summary, lang string) upstream.Result[[]string]
}

// VideoComposer encodes the final video.
type VideoComposer interface {
	Compose(ctx context.Context, req compose.Request) (upstream.Result[compose.Video], error)
}

// Request starts processing of one story. Empty languages keep the ones
// stored on the story.
type Request struct {
	StoryID        string
	InputLanguage  string
	OutputLanguage string
}

// Pipeline orchestrates the execution of all stages
type Pipeline struct {
	store      store.Store
	summarizer upstream.Summarizer
	narrator   upstream.Narrator
	planner    ScenePlanner
	images     upstream.ImageGenerator
	composer   VideoComposer
	cfg        types.PipelineConfig
	metrics    *pipelineMetrics
	tracer     trace.Tracer
	log        *zap.Logger
}

// NewPipeline creates a new pipeline executor. Instruments come from the
// global meter and tracer providers.
func NewPipeline(
	st store.Store,
	summarizer upstream.Summarizer,
	narrator upstream.Narrator,
	planner ScenePlanner,
	images upstream.ImageGenerator,
	composer VideoComposer,
	cfg types.PipelineConfig,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pipeline")

	metrics, err := newPipelineMetrics(otel.Meter("storyweaver-pipeline"))
	if err != nil {
		log.Warn("metrics disabled", zap.Error(err))
		metrics, _ = newPipelineMetrics(noop.NewMeterProvider().Meter(""))
	}

	return &Pipeline{
		store:      st,
		summarizer: summarizer,
		narrator:   narrator,
		planner:    planner,
		images:     images,
		composer:   composer,
		cfg:        cfg,
		metrics:    metrics,
		tracer:     otel.Tracer("storyweaver-pipeline"),
		log:        log,
	}
}

// runState is what the steps of one run share. ctx is the run's context:
// persistence uses it so output produced under an expired stage deadline
// is still stored.
type runState struct {
	ctx        context.Context
	story      *types.Story
	run        *Run
	inputLang  string
	outputLang string

	summary  string
	audioRef string
	scenes   []compose.SceneInput

	log *zap.Logger
}

// Execute runs every stage for the story in req. It must not be called
// concurrently for the same story id; Runner enforces that.
//
// Upstream outages never fail a run. Any other error stops the run and the
// story is written as failed with the error as its failure reason, keeping
// whatever earlier stages already stored.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Run, error) {
	run := NewRun(req.StoryID)
	log := p.log.With(zap.String("story_id", req.StoryID))

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("story.id", req.StoryID)),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return run, p.fail(ctx, run, "", err, log)
	}

	story, err := p.store.GetStory(ctx, req.StoryID)
	if err != nil {
		span.RecordError(err)
		return run, fmt.Errorf("failed to load story: %w", err)
	}
	if story.Status.IsTerminal() {
		return run, fmt.Errorf("%w: %s is %s", ErrFinished, story.ID, story.Status)
	}

	rs := &runState{
		ctx:        ctx,
		story:      story,
		run:        run,
		inputLang:  language.Normalize(orDefault(req.InputLanguage, story.InputLanguage)),
		outputLang: language.Normalize(orDefault(req.OutputLanguage, story.OutputLanguage)),
		log:        log,
	}
	log.Info("pipeline started",
		zap.String("input_language", rs.inputLang),
		zap.String("output_language", rs.outputLang))

	for _, stage := range GetStageOrder() {
		if err := p.executeStage(ctx, stage, rs); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return run, p.fail(ctx, run, stage, err, log)
		}
	}

	run.Finish()
	p.metrics.recordRun(ctx, outcomeCompleted)
	log.Info("pipeline completed",
		zap.Duration("elapsed", run.CompletedAt.Sub(run.StartedAt)),
		zap.Int("degraded_stages", len(run.DegradedStages())))
	return run, nil
}

// executeStage writes the stage's status, then runs its step under the
// stage timeout.
func (p *Pipeline) executeStage(ctx context.Context, stage types.PipelineStage, rs *runState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stepFunc, err := GetStepForStage(stage)
	if err != nil {
		return err
	}

	if err := p.advance(rs, StatusForStage(stage)); err != nil {
		return err
	}

	rs.run.StartStage(stage)
	rs.log.Info("stage started", zap.String("stage", string(stage)))

	stageCtx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, p.cfg.StageTimeout)
		defer cancel()
	}

	reason, err := safeStep(stageCtx, stepFunc, p, rs)
	if err != nil {
		rs.run.FailStage(stage, err)
		span.RecordError(err)
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	rs.run.CompleteStage(stage, reason)
	state := rs.run.GetStageState(stage)
	p.metrics.recordStage(ctx, stage, state.Duration(), reason != "")

	if reason != "" {
		span.SetAttributes(attribute.Bool("degraded", true))
		rs.log.Warn("stage completed on fallback",
			zap.String("stage", string(stage)),
			zap.String("reason", reason))
	} else {
		rs.log.Info("stage completed",
			zap.String("stage", string(stage)),
			zap.Duration("elapsed", state.Duration()))
	}
	return nil
}

// safeStep turns a panicking step into an error so the run still ends failed.
func safeStep(ctx context.Context, step StepFunc, p *Pipeline, rs *runState) (reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rs.log.Error("stage panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step(ctx, p, rs)
}

// advance writes status unless the story is already there.
func (p *Pipeline) advance(rs *runState, status types.StoryStatus) error {
	if rs.story.Status == status {
		return nil
	}
	return p.update(rs, types.StoryUpdate{Status: &status})
}

// update writes under the run context, never a stage deadline.
func (p *Pipeline) update(rs *runState, update types.StoryUpdate) error {
	story, err := p.store.UpdateStory(rs.ctx, rs.story.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	if update.Status != nil {
		rs.log.Info("status changed",
			zap.String("from", string(rs.story.Status)),
			zap.String("to", string(story.Status)))
	}
	rs.story = story
	return nil
}

// fail records the failure on the story. The write uses a context detached
// from ctx so a canceled run can still be marked failed.
func (p *Pipeline) fail(ctx context.Context, run *Run, stage types.PipelineStage, cause error, log *zap.Logger) error {
	reason := cause.Error()
	outcome := outcomeFailed
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		reason = "canceled"
		outcome = outcomeCanceled
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	failed := types.StoryFailed
	if _, err := p.store.UpdateStory(writeCtx, run.StoryID, types.StoryUpdate{
		Status:        &failed,
		FailureReason: &reason,
	}); err != nil {
		log.Error("failed to record failure", zap.Error(err))
	}

	run.Finish()
	p.metrics.recordRun(writeCtx, outcome)
	log.Error("pipeline failed",
		zap.String("stage", string(stage)),
		zap.String("reason", reason),
		zap.Error(cause))
	return cause
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
