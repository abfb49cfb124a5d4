package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"skh-agent/internal/domain"
	"skh-agent/internal/retry"
)

// GeneratePlan returns a markdown project plan for idea.
func (s *Service) GeneratePlan(ctx context.Context, idea string) (string, error) {
	idea, err := s.validateIdea(idea)
	if err != nil {
		return "", err
	}

	key := cacheKey(s.cfg.Model, idea)
	if out, ok := s.cached(ctx, key, domain.KindPlan); ok {
		return out, nil
	}

	temp := s.cfg.PlanTemperature
	text, err := retry.Do(ctx, s.retryPolicy("plan"), func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, domain.CompletionRequest{
			Model:             s.cfg.Model,
			SystemInstruction: s.prompts.Advisor,
			Prompt:            idea,
			Temperature:       &temp,
		})
	})
	if err != nil {
		s.log.Error("plan generation failed", zap.Error(err))
		return "", upstreamFailure("plan", err)
	}

	if strings.TrimSpace(text) == "" {
		return s.prompts.Fallbacks.PlanEmpty, nil
	}
	s.store(ctx, key, domain.KindPlan, text)
	return text, nil
}
