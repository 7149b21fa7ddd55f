package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dumebi/healthchat/internal/gemini"
	"github.com/dumebi/healthchat/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func overloadErr() error {
	return &gemini.APIError{Code: 503, Status: "UNAVAILABLE", Message: "The model is overloaded. Please try again later."}
}

// scriptedEngine fails a fixed number of times before succeeding.
type scriptedEngine struct {
	failures int
	err      error
	calls    int
}

func (e *scriptedEngine) Complete(_ context.Context, _, _ string, _ []types.Message) (Stream, Session, error) {
	e.calls++
	if e.calls <= e.failures {
		return nil, nil, e.err
	}
	return newEchoStream("ok"), struct{}{}, nil
}

func newTestRetryEngine(inner Engine, maxRetries int, delay time.Duration) (*RetryEngine, *[]time.Duration) {
	re := NewRetryEngine(inner, maxRetries, delay, discardLogger())
	var slept []time.Duration
	re.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return re, &slept
}

func TestRetryEngine_BackoffDoubles(t *testing.T) {
	inner := &scriptedEngine{failures: 3, err: overloadErr()}
	re, slept := newTestRetryEngine(inner, 3, 2*time.Second)

	st, sess, err := re.Complete(context.Background(), "m", "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.NotNil(t, sess)
	require.Equal(t, 4, inner.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *slept)
}

func TestRetryEngine_GivesUpAfterCap(t *testing.T) {
	inner := &scriptedEngine{failures: 10, err: overloadErr()}
	re, slept := newTestRetryEngine(inner, 3, 2*time.Second)

	_, _, err := re.Complete(context.Background(), "m", "hi", nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "overloaded after 4 attempts")
	// max_retries+1 total attempts, one backoff per retry
	require.Equal(t, 4, inner.calls)
	require.Len(t, *slept, 3)
}

func TestRetryEngine_RetryCountTracksFailures(t *testing.T) {
	for _, failures := range []int{0, 1, 2, 3} {
		inner := &scriptedEngine{failures: failures, err: overloadErr()}
		re, slept := newTestRetryEngine(inner, 3, 2*time.Second)

		_, _, err := re.Complete(context.Background(), "m", "hi", nil)
		require.NoError(t, err, "failures=%d", failures)
		require.Equal(t, failures, len(*slept), "failures=%d", failures)
		require.Equal(t, failures+1, inner.calls, "failures=%d", failures)
	}
}

func TestRetryEngine_NonOverloadNotRetried(t *testing.T) {
	inner := &scriptedEngine{failures: 10, err: &gemini.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad request"}}
	re, slept := newTestRetryEngine(inner, 3, 2*time.Second)

	_, _, err := re.Complete(context.Background(), "m", "hi", nil)
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)
	require.Empty(t, *slept)
}

func TestRetryEngine_LooseTextMatchStillRetries(t *testing.T) {
	// Errors that lost their structure on the way up still match on text.
	inner := &scriptedEngine{failures: 1, err: errors.New("rpc failed: 503 the model is OVERLOADED")}
	re, slept := newTestRetryEngine(inner, 3, 2*time.Second)

	_, _, err := re.Complete(context.Background(), "m", "hi", nil)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestRetryEngine_SleepAbortsOnContextCancel(t *testing.T) {
	inner := &scriptedEngine{failures: 10, err: overloadErr()}
	re := NewRetryEngine(inner, 3, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := re.Complete(ctx, "m", "hi", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, inner.calls)
}
