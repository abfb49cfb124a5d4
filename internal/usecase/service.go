package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"skh-agent/internal/domain"
	"skh-agent/internal/prompt"
	"skh-agent/internal/retry"
)

const (
	defaultMaxIdea         = 2000
	defaultMaxMessage      = 1000
	defaultMaxHistory      = 40
	defaultPlanTemperature = float32(0.9)
)

type LLMClient interface {
	Generate(ctx context.Context, req domain.CompletionRequest) (string, error)
}

type GenerationCache interface {
	GetGeneration(ctx context.Context, key, kind string) (domain.Generation, bool, error)
	PutGeneration(ctx context.Context, gen domain.Generation) error
}

type Config struct {
	Model            string
	MaxIdeaLength    int
	MaxMessageLength int
	// MaxHistory caps the chat turns forwarded to the model; older turns are
	// dropped first.
	MaxHistory      int
	PlanTemperature float32
	// Retry bounds every completion call. Nil uses retry.DefaultPolicy; a
	// non-nil zero policy makes a single attempt.
	Retry *retry.Policy
}

// Service is the AI request helper behind the plan, visual demo and chat
// features of the site.
type Service struct {
	llm     LLMClient
	cache   GenerationCache
	prompts prompt.Set
	cfg     Config
	retry   retry.Policy
	log     *zap.Logger
}

type Option func(*Service)

// WithCache enables the generation cache for plans and demos.
func WithCache(c GenerationCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithPrompts(p prompt.Set) Option {
	return func(s *Service) {
		s.prompts = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(llm LLMClient, cfg Config, opts ...Option) (*Service, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if cfg.MaxIdeaLength <= 0 {
		cfg.MaxIdeaLength = defaultMaxIdea
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessage
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	if cfg.PlanTemperature <= 0 {
		cfg.PlanTemperature = defaultPlanTemperature
	}
	policy := retry.DefaultPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	s := &Service{
		llm:     llm,
		prompts: prompt.Default(),
		cfg:     cfg,
		retry:   policy,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Greeting is the opening model turn the chat widget shows.
func (s *Service) Greeting() domain.ChatMessage {
	return domain.ChatMessage{Role: domain.RoleModel, Text: s.prompts.Greeting}
}

func (s *Service) validateIdea(idea string) (string, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return "", newError(ErrorInvalidInput, "empty_idea", nil)
	}
	if utf8.RuneCountInString(idea) > s.cfg.MaxIdeaLength {
		return "", newError(ErrorInvalidInput, "idea_too_long", nil)
	}
	return idea, nil
}

// retryPolicy logs each retry under op before delegating to any hook the
// caller configured.
func (s *Service) retryPolicy(op string) retry.Policy {
	p := s.retry
	next := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.log.Warn("transient completion failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if next != nil {
			next(attempt, delay, err)
		}
	}
	return p
}

// upstreamFailure maps a failed retry run onto the error taxonomy.
func upstreamFailure(op string, err error) *Error {
	switch {
	case retry.IsAuth(err):
		return newError(ErrorAuthRequired, op+"_auth_required", err)
	case retry.IsTransient(err):
		return newError(ErrorOverloaded, op+"_overloaded", err)
	default:
		return newError(ErrorUpstream, op+"_error", err)
	}
}

func cacheKey(model, idea string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(idea), " "))
	sum := sha256.Sum256([]byte(model + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}

func (s *Service) cached(ctx context.Context, key, kind string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, ok, err := s.cache.GetGeneration(ctx, key, kind)
	if err != nil {
		s.log.Warn("generation cache read failed", zap.String("kind", kind), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	s.log.Debug("generation cache hit", zap.String("kind", kind))
	return gen.Output, true
}

func (s *Service) store(ctx context.Context, key, kind, output string) {
	if s.cache == nil {
		return
	}
	err := s.cache.PutGeneration(ctx, domain.Generation{
		Key:    key,
		Kind:   kind,
		Model:  s.cfg.Model,
		Output: output,
	})
	if err != nil {
		s.log.Warn("generation cache write failed", zap.String("kind", kind), zap.Error(err))
	}
}
