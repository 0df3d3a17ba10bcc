package push

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxbridge/internal/config"
)

type flakySender struct {
	err   error
	calls int
}

func (s *flakySender) SendText(context.Context, string, string) error {
	s.calls++
	return s.err
}

func breakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		Enabled:         true,
		MaxRequests:     1,
		IntervalSeconds: 60,
		TimeoutSeconds:  60,
	}
}

func TestBreakerSenderPassesThrough(t *testing.T) {
	inner := &flakySender{}
	sender := NewBreakerSender(inner, breakerConfig())

	require.NoError(t, sender.SendText(context.Background(), "openid-1", "msg"))
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerSenderOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySender{err: errors.New("platform down")}
	sender := NewBreakerSender(inner, breakerConfig())

	// The default policy trips once 3 requests have failed at a >=50%
	// ratio, so the third failure opens the breaker.
	for i := 0; i < 5; i++ {
		err := sender.SendText(context.Background(), "openid-1", "msg")
		require.Error(t, err)
	}

	assert.Equal(t, 3, inner.calls, "open breaker must not hit the platform")
}
