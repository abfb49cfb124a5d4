// Command skhctl runs the site's AI features from a terminal and serves them
// locally for front-end development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skh-agent/handler"
	"skh-agent/internal/app"
	"skh-agent/internal/config"
	"skh-agent/internal/prompt"
)

type options struct {
	envFile     string
	provider    string
	model       string
	apiKey      string
	baseURL     string
	promptsPath string
	verbose     bool
	timeout     time.Duration

	logger *zap.Logger
	cfg    config.Config
}

// buildAssistant is replaced in tests.
var buildAssistant = func(ctx context.Context, opts *options) (handler.Assistant, error) {
	var appOpts []app.Option
	if opts.promptsPath != "" {
		p, err := prompt.Load(opts.promptsPath)
		if err != nil {
			return nil, err
		}
		appOpts = append(appOpts, app.WithPrompts(p))
	}
	return app.Build(ctx, opts.cfg, opts.logger, appOpts...)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "skhctl",
		Short:         "Generate plans, demos and chat replies with the SKH assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}

			zcfg := zap.NewProductionConfig()
			if opts.verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = applyFlags(cmd, cfg, opts)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file to load if present")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "Completion provider: gemini or openai (or set SKH_PROVIDER)")
	root.PersistentFlags().StringVar(&opts.model, "model", "", "Model id (or set SKH_MODEL)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "Provider API key (or set API_KEY)")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Override the provider endpoint")
	root.PersistentFlags().StringVar(&opts.promptsPath, "prompts", "", "YAML file overriding the built-in prompts")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Per-request timeout")

	root.AddCommand(newPlanCmd(opts), newDemoCmd(opts), newChatCmd(opts), newServeCmd(opts))
	return root
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg config.Config, opts *options) config.Config {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("api-key") {
		cfg.APIKey = opts.apiKey
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	return cfg
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
