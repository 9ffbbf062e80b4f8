package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/soothsayer/internal/common"
)

// scriptedClient replays a fixed sequence of replies.
type scriptedClient struct {
	replies []scriptedReply
	prompts []string
	mu      sync.Mutex
}

type scriptedReply struct {
	err  error
	text string
}

func (c *scriptedClient) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r.text, r.err
}

type countingLimiter struct {
	err   error
	waits int
}

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++
	return l.err
}

func TestGateway_Ask(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{{text: "```json\n{\"k\": 1}\n```"}}}
	limiter := &countingLimiter{}
	g := NewGateway(client, WithLimiter(limiter), WithLogger(common.DiscardLogger()))

	resp, err := g.Ask(context.Background(), "prompt")
	require.NoError(t, err)

	parsed, ok := resp.(*ParsedResponse)
	require.True(t, ok)
	assert.True(t, parsed.Has("k"))
	assert.Equal(t, 1, limiter.waits)
	assert.Equal(t, []string{"prompt"}, client.prompts)
}

func TestGateway_MalformedIsNotAnError(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{{text: "not json"}}}
	g := NewGateway(client)

	resp, err := g.Ask(context.Background(), "prompt")
	require.NoError(t, err)
	_, ok := resp.(*MalformedResponse)
	assert.True(t, ok)
}

func TestGateway_TransportFailureNoRetryByDefault(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		{err: errors.New("connection reset")},
		{text: `{"k": 1}`},
	}}
	limiter := &countingLimiter{}
	g := NewGateway(client, WithLimiter(limiter))

	_, err := g.Ask(context.Background(), "prompt")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, client.prompts, 1)
	assert.Equal(t, 1, limiter.waits)
}

func TestGateway_RetriesWaitOnLimiterEachAttempt(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		{err: &common.RetryableError{Err: errors.New("503"), Retryable: true}},
		{text: `{"k": 1}`},
	}}
	limiter := &countingLimiter{}
	g := NewGateway(client, WithLimiter(limiter), WithRetries(2, time.Millisecond))

	resp, err := g.Ask(context.Background(), "prompt")
	require.NoError(t, err)
	assert.IsType(t, &ParsedResponse{}, resp)
	assert.Len(t, client.prompts, 2)
	assert.Equal(t, 2, limiter.waits)
}

func TestGateway_LimiterErrorIsTransport(t *testing.T) {
	client := &scriptedClient{}
	g := NewGateway(client, WithLimiter(&countingLimiter{err: context.Canceled}), WithRetries(3, time.Millisecond))

	_, err := g.Ask(context.Background(), "prompt")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.prompts)
}

func TestIntervalLimiter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		l := NewIntervalLimiter(0)
		for i := 0; i < 5; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
	})

	t.Run("paces calls", func(t *testing.T) {
		l := NewIntervalLimiter(40 * time.Millisecond)
		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
		assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	})

	t.Run("canceled context", func(t *testing.T) {
		l := NewIntervalLimiter(time.Hour)
		require.NoError(t, l.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, l.Wait(ctx))
	})

	t.Run("unlimited honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Unlimited().Wait(ctx), context.Canceled)
	})
}
