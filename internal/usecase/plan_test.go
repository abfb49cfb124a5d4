package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"skh-agent/internal/domain"
)

func TestGeneratePlan_HappyPath(t *testing.T) {
	llm := &fakeLLM{outs: []string{"## System Architecture\n..."}}
	s, _ := newTestService(t, llm)

	out, err := s.GeneratePlan(context.Background(), "  An AI bakery  ")
	require.NoError(t, err)
	require.Equal(t, "## System Architecture\n...", out)

	require.Len(t, llm.reqs, 1)
	req := llm.reqs[0]
	require.Equal(t, "gemini-3-flash-preview", req.Model)
	require.Equal(t, "An AI bakery", req.Prompt)
	require.Contains(t, req.SystemInstruction, "Lead Solutions Architect")
	require.False(t, req.JSON)
	require.NotNil(t, req.Temperature)
	require.InDelta(t, 0.9, *req.Temperature, 0.0001)
}

func TestGeneratePlan_InvalidInputSkipsCompletion(t *testing.T) {
	llm := &fakeLLM{}
	s, _ := newTestService(t, llm)

	_, err := s.GeneratePlan(context.Background(), "   ")
	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, ErrorInvalidInput, ue.Code)
	require.Equal(t, 0, llm.calls())
}

func TestGeneratePlan_EmptyCompletionUsesFallback(t *testing.T) {
	cache := newFakeCache()
	s, _ := newTestService(t, &fakeLLM{outs: []string{"  "}}, WithCache(cache))

	out, err := s.GeneratePlan(context.Background(), "a bakery")
	require.NoError(t, err)
	require.Equal(t, "Synthesis complete.", out)
	require.Equal(t, 0, cache.puts)
}

func TestGeneratePlan_RetriesTransientWithIncreasingDelay(t *testing.T) {
	llm := &fakeLLM{
		outs: []string{"", "", "# Plan"},
		errs: []error{overloaded(), errors.New("429 Too Many Requests: overloaded"), nil},
	}
	s, rec := newTestService(t, llm)

	out, err := s.GeneratePlan(context.Background(), "a bakery")
	require.NoError(t, err)
	require.Equal(t, "# Plan", out)
	require.Equal(t, 3, llm.calls())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestGeneratePlan_TransientExhaustedIsOverloaded(t *testing.T) {
	llm := &fakeLLM{errs: []error{overloaded(), overloaded(), overloaded(), overloaded()}}
	s, rec := newTestService(t, llm)

	_, err := s.GeneratePlan(context.Background(), "a bakery")
	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, ErrorOverloaded, ue.Code)
	require.Equal(t, "plan_overloaded", ue.Reason)
	require.Equal(t, 3, llm.calls())
	require.Len(t, rec.delays, 2)
	require.Less(t, rec.delays[0], rec.delays[1])
}

func TestGeneratePlan_AuthFailureNotRetried(t *testing.T) {
	llm := &fakeLLM{errs: []error{unauthenticated()}}
	s, rec := newTestService(t, llm)

	_, err := s.GeneratePlan(context.Background(), "a bakery")
	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, ErrorAuthRequired, ue.Code)
	require.Equal(t, 1, llm.calls())
	require.Empty(t, rec.delays)
}

func TestGeneratePlan_FatalFailureIsUpstream(t *testing.T) {
	llm := &fakeLLM{errs: []error{&domain.UpstreamError{Provider: "gemini", StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "bad"}}}
	s, _ := newTestService(t, llm)

	_, err := s.GeneratePlan(context.Background(), "a bakery")
	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, ErrorUpstream, ue.Code)
	require.Equal(t, 1, llm.calls())
}

func TestGeneratePlan_CacheHitSkipsCompletion(t *testing.T) {
	cache := newFakeCache()
	llm := &fakeLLM{outs: []string{"# Plan v1", "# Plan v2"}}
	s, _ := newTestService(t, llm, WithCache(cache))

	first, err := s.GeneratePlan(context.Background(), "A bakery")
	require.NoError(t, err)
	second, err := s.GeneratePlan(context.Background(), "a   BAKERY")
	require.NoError(t, err)

	require.Equal(t, "# Plan v1", first)
	require.Equal(t, first, second)
	require.Equal(t, 1, llm.calls())
	require.Equal(t, 1, cache.puts)
}

func TestGeneratePlan_CacheFailuresDoNotFailRequest(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("throttled")
	cache.putErr = errors.New("throttled")
	s, _ := newTestService(t, &fakeLLM{outs: []string{"# Plan"}}, WithCache(cache))

	out, err := s.GeneratePlan(context.Background(), "a bakery")
	require.NoError(t, err)
	require.Equal(t, "# Plan", out)
	require.Equal(t, 1, cache.puts)
}
