package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

func newStatusCmd(s *settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [story_id]",
		Short: "Show a stored story and its scenes",
		Long:  `Read a story from the configured store and print its status (pending, summarizing, generating_audio, generating_images, creating_video, completed, failed), outputs and scenes.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newBaseApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			story, err := a.store.GetStory(ctx, args[0])
			if err != nil {
				return err
			}
			scenes, err := a.store.ListScenes(ctx, story.ID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*types.Story
					Scenes []types.Scene `json:"scenes"`
				}{story, scenes})
			}
			printStory(cmd, story, scenes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the story as JSON")
	return cmd
}

func printStory(cmd *cobra.Command, story *types.Story, scenes []types.Scene) {
	cmd.Printf("Story %s\n", story.ID)
	cmd.Println(strings.Repeat("─", 30))
	cmd.Printf("Title:      %s\n", story.Title)
	cmd.Printf("Status:     %s\n", story.Status)
	cmd.Printf("Languages:  %s -> %s\n", story.InputLanguage, story.OutputLanguage)
	if story.FailureReason != "" {
		cmd.Printf("Failure:    %s\n", story.FailureReason)
	}
	cmd.Printf("Audio:      %s\n", orDash(story.AudioRef))
	cmd.Printf("Video:      %s\n", orDash(story.VideoRef))
	if story.Summary != "" {
		cmd.Printf("Summary:\n  %s\n", strings.ReplaceAll(story.Summary, "\n", "\n  "))
	}
	for _, scene := range scenes {
		cmd.Printf("Scene %d:    %s\n            %s\n", scene.Ordinal, scene.Description, scene.ImageRef)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
