// Package app wires configuration into a ready-to-use assistant service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"skh-agent/internal/config"
	"skh-agent/internal/integrations/gemini"
	"skh-agent/internal/integrations/openai"
	"skh-agent/internal/integrations/paramstore"
	"skh-agent/internal/prompt"
	"skh-agent/internal/repository"
	"skh-agent/internal/retry"
	"skh-agent/internal/usecase"
)

type builder struct {
	loadAWS    func(ctx context.Context) (aws.Config, error)
	awsCfg     *aws.Config
	tokens     paramstore.Getter
	cache      usecase.GenerationCache
	prompts    *prompt.Set
	httpClient *http.Client
}

type Option func(*builder)

// WithAWSConfigLoader replaces the default AWS SDK config chain.
func WithAWSConfigLoader(fn func(ctx context.Context) (aws.Config, error)) Option {
	return func(b *builder) {
		b.loadAWS = fn
	}
}

// WithTokenSource reads the API token from getter instead of SSM.
func WithTokenSource(getter paramstore.Getter) Option {
	return func(b *builder) {
		b.tokens = getter
	}
}

// WithCache uses c instead of a DynamoDB table.
func WithCache(c usecase.GenerationCache) Option {
	return func(b *builder) {
		b.cache = c
	}
}

func WithPrompts(p prompt.Set) Option {
	return func(b *builder) {
		b.prompts = &p
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *builder) {
		b.httpClient = c
	}
}

// Build validates cfg and assembles the service. AWS config is only loaded
// when the token lives in SSM or the generation cache is enabled.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...Option) (*usecase.Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		loadAWS: func(ctx context.Context) (aws.Config, error) {
			return awsconfig.LoadDefaultConfig(ctx)
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	apiKey, err := b.apiKey(ctx, cfg)
	if err != nil {
		return nil, err
	}
	llm, err := b.llm(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}

	svcOpts := []usecase.Option{usecase.WithLogger(log)}
	if b.prompts != nil {
		svcOpts = append(svcOpts, usecase.WithPrompts(*b.prompts))
	}
	cache, err := b.generationCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		svcOpts = append(svcOpts, usecase.WithCache(cache))
	}

	svc, err := usecase.NewService(llm, usecase.Config{
		Model:            cfg.Model,
		MaxIdeaLength:    cfg.MaxIdeaLength,
		MaxMessageLength: cfg.MaxMessageLength,
		MaxHistory:       cfg.MaxHistoryTurns,
		Retry: &retry.Policy{
			Retries:      cfg.RetryCount,
			InitialDelay: cfg.RetryInitialDelay,
			Multiplier:   2,
		},
	}, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: create service: %w", err)
	}
	log.Info("assistant ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Bool("cache", cache != nil))
	return svc, nil
}

func (b *builder) awsConfig(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	awsCfg, err := b.loadAWS(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	b.awsCfg = &awsCfg
	return awsCfg, nil
}

func (b *builder) apiKey(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	getter := b.tokens
	if getter == nil {
		awsCfg, err := b.awsConfig(ctx)
		if err != nil {
			return "", err
		}
		ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return "", fmt.Errorf("app: create SSM client: %w", err)
		}
		getter = ps
	}
	token, err := paramstore.FetchToken(ctx, getter, paramstore.TokenName(cfg.ParamPrefix))
	if err != nil {
		return "", fmt.Errorf("app: fetch API token: %w", err)
	}
	return token, nil
}

func (b *builder) llm(ctx context.Context, cfg config.Config, apiKey string) (usecase.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		var opts []gemini.Option
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		if b.httpClient != nil {
			opts = append(opts, gemini.WithHTTPClient(b.httpClient))
		}
		c, err := gemini.NewClient(ctx, apiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: create gemini client: %w", err)
		}
		return c, nil
	case config.ProviderOpenAI:
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if b.httpClient != nil {
			opts = append(opts, openai.WithHTTPClient(b.httpClient))
		}
		c, err := openai.NewClient(apiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: create openai client: %w", err)
		}
		return c, nil
	default:
		return nil, errors.New("app: unsupported provider " + cfg.Provider)
	}
}

func (b *builder) generationCache(ctx context.Context, cfg config.Config) (usecase.GenerationCache, error) {
	if b.cache != nil {
		return b.cache, nil
	}
	if cfg.CacheTable == "" {
		return nil, nil
	}
	awsCfg, err := b.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	c, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.CacheTable, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("app: create generation cache: %w", err)
	}
	return c, nil
}
