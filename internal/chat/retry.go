package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dumebi/healthchat/internal/gemini"
	"github.com/dumebi/healthchat/pkg/types"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// RetryEngine wraps an Engine and retries the transient-overload condition
// with exponential backoff. Any other failure passes through untouched after
// a single attempt. With maxRetries=3 and delay=2s the backoff sequence is
// 2s, 4s, 8s and the engine gives up after 4 total attempts.
type RetryEngine struct {
	inner      Engine
	maxRetries int
	delay      time.Duration
	log        *slog.Logger

	// sleep is swapped out in tests to observe the backoff sequence.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryEngine(inner Engine, maxRetries int, initialDelay time.Duration, log *slog.Logger) *RetryEngine {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if initialDelay <= 0 {
		initialDelay = DefaultRetryDelay
	}
	return &RetryEngine{
		inner:      inner,
		maxRetries: maxRetries,
		delay:      initialDelay,
		log:        log,
		sleep:      sleepCtx,
	}
}

func (e *RetryEngine) Complete(ctx context.Context, model, prompt string, history []types.Message) (Stream, Session, error) {
	delay := e.delay
	for attempt := 0; ; attempt++ {
		st, sess, err := e.inner.Complete(ctx, model, prompt, history)
		if err == nil {
			return st, sess, nil
		}
		if !gemini.IsOverloaded(err) {
			return nil, nil, err
		}
		if attempt == e.maxRetries {
			return nil, nil, fmt.Errorf("model overloaded after %d attempts: %w", attempt+1, err)
		}
		e.log.Warn("model overloaded, retrying",
			"delay", delay.String(),
			"attempt", attempt+1,
			"max_retries", e.maxRetries,
		)
		if serr := e.sleep(ctx, delay); serr != nil {
			return nil, nil, serr
		}
		delay *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
