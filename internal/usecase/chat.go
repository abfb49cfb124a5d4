package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"skh-agent/internal/domain"
	"skh-agent/internal/retry"
)

// Chat answers message in the context of history, oldest turn first.
// Completion failures are reported to the visitor as a fallback reply, so the
// only errors returned are for invalid input.
func (s *Service) Chat(ctx context.Context, message string, history []domain.ChatMessage) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageLength {
		return "", newError(ErrorInvalidInput, "message_too_long", nil)
	}
	turns, err := s.chatHistory(history)
	if err != nil {
		return "", err
	}

	reply, err := retry.Do(ctx, s.retryPolicy("chat"), func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, domain.CompletionRequest{
			Model:             s.cfg.Model,
			SystemInstruction: s.prompts.Assistant,
			History:           turns,
			Prompt:            message,
		})
	})
	if err != nil {
		if retry.IsAuth(err) {
			s.log.Error("chat completion rejected credentials", zap.Error(err))
			return s.prompts.Fallbacks.ChatAuth, nil
		}
		s.log.Error("chat completion failed", zap.Error(err))
		return s.prompts.Fallbacks.ChatError, nil
	}
	if strings.TrimSpace(reply) == "" {
		s.log.Warn("chat completion returned no text")
		return s.prompts.Fallbacks.ChatError, nil
	}
	return reply, nil
}

// chatHistory validates roles, drops blank turns and keeps the most recent
// MaxHistory turns in their original order.
func (s *Service) chatHistory(history []domain.ChatMessage) ([]domain.ChatMessage, error) {
	turns := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		if !domain.ValidRole(m.Role) {
			return nil, newError(ErrorInvalidInput, "invalid_history_role", nil)
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) > s.cfg.MaxHistory {
		turns = turns[len(turns)-s.cfg.MaxHistory:]
	}
	return turns, nil
}
