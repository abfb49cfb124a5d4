package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"skh-agent/internal/domain"
	"skh-agent/internal/retry"
)

const fenceMarker = "```"

// GenerateVisualDemo asks the model for a landing-page mockup of idea. Any
// completion or parse failure yields a nil config; only invalid input is
// returned as an error.
func (s *Service) GenerateVisualDemo(ctx context.Context, idea string) (*domain.DemoConfig, error) {
	idea, err := s.validateIdea(idea)
	if err != nil {
		return nil, err
	}

	key := cacheKey(s.cfg.Model, idea)
	if out, ok := s.cached(ctx, key, domain.KindDemo); ok {
		if demo, perr := parseDemo(out); perr == nil {
			return demo, nil
		}
		s.log.Warn("discarding unreadable cached demo")
	}

	raw, err := retry.Do(ctx, s.retryPolicy("demo"), func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, domain.CompletionRequest{
			Model:             s.cfg.Model,
			SystemInstruction: s.prompts.Demo,
			Prompt:            idea,
			JSON:              true,
		})
	})
	if err != nil {
		s.log.Warn("visual demo generation failed", zap.Error(err))
		return nil, nil
	}

	demo, err := parseDemo(raw)
	if err != nil {
		s.log.Warn("visual demo output malformed", zap.Error(err), zap.Int("bytes", len(raw)))
		return nil, nil
	}

	if b, err := json.Marshal(demo); err == nil {
		s.store(ctx, key, domain.KindDemo, string(b))
	}
	return demo, nil
}

// cleanJSONResponse strips code-fence lines from a completion that opens
// with one. Anything else is only trimmed.
func cleanJSONResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, fenceMarker) {
		return cleaned
	}
	lines := strings.Split(cleaned, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// parseDemo decodes a demo completion. An empty completion is an empty
// object; output that cleans down to nothing is malformed.
func parseDemo(raw string) (*domain.DemoConfig, error) {
	if raw == "" {
		raw = "{}"
	}
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return nil, errors.New("usecase: decode demo: empty after cleaning")
	}
	if !strings.HasPrefix(cleaned, "{") {
		return nil, errors.New("usecase: decode demo: not a JSON object")
	}

	var demo domain.DemoConfig
	dec := json.NewDecoder(bytes.NewBufferString(cleaned))
	if err := dec.Decode(&demo); err != nil {
		return nil, fmt.Errorf("usecase: decode demo: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("usecase: decode demo: multiple JSON values")
		}
		return nil, fmt.Errorf("usecase: decode demo trailing data: %w", err)
	}
	demo.Normalize()
	return &demo, nil
}
