// Package cmd holds the storyweaver cobra commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhe.chen/storyweaver/internal/config"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// Set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

const envPrefix = "STORYWEAVER"

// settings carries flag and environment values shared by every command.
type settings struct {
	v *viper.Viper
}

// NewRootCmd builds a fresh command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	s := &settings{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "storyweaver",
		Short: "Storyweaver turns a written story into a narrated, illustrated video",
		Long: `storyweaver summarizes a story, narrates the summary, illustrates it
scene by scene and encodes everything into one short video.

Every upstream service is optional. Without LLM credentials the summary and
scenes come from templates, without speech credentials the video is silent,
and scene images fall back to procedurally drawn artwork.

Common workflows:

  Process a story and wait for the video:
    storyweaver process --title "The Fox" --file fox.txt --output-lang fr

  Check a stored story:
    storyweaver status <story-id>

  Draw one procedural scene image:
    storyweaver render-scene --description "a fox by the river" --out scene.png

Configuration:
  Settings are read from a YAML file (default ` + config.DefaultPath + `).
  Flags can also be set through the environment:
    STORYWEAVER_CONFIG      Path to the configuration file
    STORYWEAVER_LOG_LEVEL   debug, info, warn or error
    STORYWEAVER_STORE       memory, file or postgres`,
		SilenceUsage: true,
	}

	s.v.SetEnvPrefix(envPrefix)
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "configuration file")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	flags.String("store", "", "store driver override (memory, file, postgres)")
	for _, name := range []string{"config", "log-level", "store"} {
		s.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newProcessCmd(s),
		newStatusCmd(s),
		newRenderSceneCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the configuration file and applies flag overrides.
func (s *settings) loadConfig() (*types.Config, error) {
	config.LoadDotEnv()

	cfg, err := config.Load(s.v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level := s.v.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if driver := s.v.GetString("store"); driver != "" {
		cfg.Store.Driver = driver
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("storyweaver %s\n", version)
		},
	}
}
