package push

import (
	"context"
	"time"

	"wxbridge/internal/config"
	"wxbridge/pkg/circuitbreaker"
)

// Sender matches callback.Sender; the decorator stays decoupled from
// the callback package.
type Sender interface {
	SendText(ctx context.Context, openID, text string) error
}

// BreakerSender fails sends fast while the platform API is down. An
// open breaker still surfaces as a push failure, which the callback
// handler maps to a 500 so the remote endpoint may retry later.
type BreakerSender struct {
	inner   Sender
	breaker *circuitbreaker.Wrapper
}

func NewBreakerSender(inner Sender, cfg config.BreakerConfig) *BreakerSender {
	breakerCfg := circuitbreaker.DefaultConfig("wechat-push")
	breakerCfg.MaxRequests = cfg.MaxRequests
	breakerCfg.Interval = cfg.IntervalSeconds * time.Second
	breakerCfg.Timeout = cfg.TimeoutSeconds * time.Second

	return &BreakerSender{
		inner:   inner,
		breaker: circuitbreaker.NewWrapper(breakerCfg),
	}
}

func (s *BreakerSender) SendText(ctx context.Context, openID, text string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.inner.SendText(ctx, openID, text)
	})
	return err
}
