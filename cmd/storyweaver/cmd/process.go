package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhe.chen/storyweaver/internal/pipeline"
	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// drainTimeout bounds how long process waits for runs after it stops polling.
const drainTimeout = 30 * time.Second

func newProcessCmd(s *settings) *cobra.Command {
	var (
		title      string
		file       string
		text       string
		inputLang  string
		outputLang string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Create a story and run it through the pipeline",
		Long: `Create a story from --text or --file ("-" reads stdin), start the pipeline
in the background and poll the story until it is completed or failed.
Interrupting the command cancels the run, which then ends failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readStory(cmd, text, file)
			if err != nil {
				return err
			}
			story, err := store.NewStory(title, body, inputLang, outputLang)
			if err != nil {
				return err
			}

			cfg, err := s.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				defer cancel()
				a.Close(drainCtx)
			}()

			if err := a.store.CreateStory(ctx, story); err != nil {
				return fmt.Errorf("failed to create story: %w", err)
			}
			cmd.Printf("Story %s created\n", story.ID)

			if err := a.runner.Start(pipeline.Request{
				StoryID:        story.ID,
				InputLanguage:  story.InputLanguage,
				OutputLanguage: story.OutputLanguage,
			}); err != nil {
				return fmt.Errorf("failed to start pipeline: %w", err)
			}

			final, err := pipeline.Watch(ctx, a.store, story.ID, cfg.Pipeline.PollInterval, func(st *types.Story) {
				cmd.Printf("  %s  %s\n", time.Now().Format("15:04:05"), st.Status)
			})
			if errors.Is(err, context.Canceled) {
				cmd.Println("Interrupted, canceling run...")
				a.runner.Cancel(story.ID)
				waitCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				defer cancel()
				final, err = pipeline.Poll(waitCtx, a.store, story.ID, cfg.Pipeline.PollInterval)
			}
			if err != nil {
				return err
			}

			scenes, err := a.store.ListScenes(context.Background(), story.ID)
			if err != nil {
				return err
			}
			printStory(cmd, final, scenes)

			if final.Status == types.StoryFailed {
				return fmt.Errorf("story %s failed: %s", final.ID, final.FailureReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "story title (required)")
	cmd.Flags().StringVar(&file, "file", "", `file holding the story text, "-" for stdin`)
	cmd.Flags().StringVar(&text, "text", "", "story text")
	cmd.Flags().StringVar(&inputLang, "input-lang", "en", "language the story is written in")
	cmd.Flags().StringVar(&outputLang, "output-lang", "en", "narration language")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	return cmd
}

func readStory(cmd *cobra.Command, text, file string) (string, error) {
	switch {
	case text != "":
		return text, nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read story file: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("one of --text or --file is required")
	}
}
