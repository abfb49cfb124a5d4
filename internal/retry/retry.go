// Package retry runs completion calls under a bounded exponential backoff,
// retrying only failures the provider signals as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Class is the retry-relevant category of a failure.
type Class int

const (
	ClassFatal Class = iota
	ClassTransient
	ClassAuth
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassAuth:
		return "auth"
	default:
		return "fatal"
	}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type statusNamer interface {
	StatusName() string
}

// Classify inspects err for an HTTP status, a provider status name and the
// well-known message fragments completion services use.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var coder httpStatusCoder
	if errors.As(err, &coder) {
		switch coder.HTTPStatusCode() {
		case 401, 403:
			return ClassAuth
		case 429, 503:
			return ClassTransient
		}
	}

	var namer statusNamer
	if errors.As(err, &namer) {
		switch namer.StatusName() {
		case "UNAUTHENTICATED", "PERMISSION_DENIED":
			return ClassAuth
		case "RESOURCE_EXHAUSTED", "UNAVAILABLE":
			return ClassTransient
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "requested entity was not found"),
		strings.Contains(msg, "api key not valid"):
		return ClassAuth
	case strings.Contains(msg, "overloaded"):
		return ClassTransient
	}
	return ClassFatal
}

// Error is returned by Do for every failed run.
type Error struct {
	Class    Class
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retry: %s failure after %d attempt(s): %v", e.Class, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == ClassAuth
	}
	return Classify(err) == ClassAuth
}

// IsTransient reports whether err is a transient failure, including one that
// exhausted its retries.
func IsTransient(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == ClassTransient
	}
	return Classify(err) == ClassTransient
}

// Policy bounds a retry run. The zero value performs a single attempt.
type Policy struct {
	Retries      int
	InitialDelay time.Duration
	Multiplier   float64

	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy retries twice, after 1s and 2s.
func DefaultPolicy() Policy {
	return Policy{Retries: 2, InitialDelay: time.Second, Multiplier: 2}
}

// Do calls fn until it succeeds, fails with a non-transient error, or the
// policy's retries are used up.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	delay := p.InitialDelay
	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		class := Classify(err)
		if class != ClassTransient || attempt > p.Retries {
			return zero, &Error{Class: class, Attempts: attempt, Err: err}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, &Error{Class: ClassFatal, Attempts: attempt, Err: serr}
		}
		delay = time.Duration(float64(delay) * mult)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
