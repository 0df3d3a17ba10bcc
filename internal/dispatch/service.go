// Package dispatch decides what to do with each inbound message:
// answer a platform event, handle a bind/unbind command, or hand the
// message to the forwarder and acknowledge with a placeholder.
package dispatch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"wxbridge/internal/binding"
	"wxbridge/internal/logger"
	"wxbridge/internal/message"
	apperrors "wxbridge/pkg/errors"
	"wxbridge/pkg/logging"
	"wxbridge/pkg/metrics"
)

// Forwarder delivers a message to the bound remote endpoint.
type Forwarder interface {
	Forward(ctx context.Context, msg *message.Message, b *binding.Binding) error
}

type Service struct {
	bindings  binding.Repository
	forwarder Forwarder
	logger    logger.Logger
}

func NewService(bindings binding.Repository, forwarder Forwarder, log logger.Logger) *Service {
	return &Service{
		bindings:  bindings,
		forwarder: forwarder,
		logger:    log,
	}
}

// Dispatch produces exactly one synchronous reply per inbound message,
// as plaintext reply XML ("" means the bare platform ack). The real
// task answer, if any, arrives later through the callback path.
func (s *Service) Dispatch(ctx context.Context, msg *message.Message) (string, error) {
	openID := msg.FromUserName
	toUser := msg.ToUserName
	ctx = logging.WithOpenID(ctx, openID)

	metrics.WebhookMessagesTotal.WithLabelValues(msg.MsgType).Inc()

	if msg.IsEvent() {
		if msg.Event == message.EventSubscribe {
			metrics.DispatchOutcomesTotal.WithLabelValues("welcome").Inc()
			return message.BuildTextReply(openID, toUser, welcomeReply), nil
		}
		metrics.DispatchOutcomesTotal.WithLabelValues("event_ack").Inc()
		return "", nil
	}

	// The store is authoritative; every message re-reads it. Two
	// near-simultaneous binds from the same user race there,
	// last-write-wins.
	b, err := s.bindings.Get(ctx, openID)
	if err != nil {
		return "", err
	}

	if b == nil {
		return s.dispatchUnbound(ctx, msg)
	}
	return s.dispatchBound(ctx, msg, b)
}

func (s *Service) dispatchUnbound(ctx context.Context, msg *message.Message) (string, error) {
	openID := msg.FromUserName
	toUser := msg.ToUserName

	if msg.IsText() {
		if endpoint, token, ok := parseBindCommand(msg.Content); ok {
			if !isValidEndpointURL(endpoint) {
				metrics.DispatchOutcomesTotal.WithLabelValues("bind_invalid_url").Inc()
				return message.BuildTextReply(openID, toUser, invalidURLReply), nil
			}

			b := &binding.Binding{
				UserID:      openID,
				EndpointURL: endpoint,
				Token:       token,
				CreatedAt:   time.Now(),
			}
			if err := s.bindings.Set(ctx, b); err != nil {
				return "", err
			}

			metrics.DispatchOutcomesTotal.WithLabelValues("bind").Inc()
			s.logger.InfowCtx(ctx, "Binding created", "endpoint", endpoint)
			return message.BuildTextReply(openID, toUser, boundReply(endpoint)), nil
		}
	}

	metrics.DispatchOutcomesTotal.WithLabelValues("bind_prompt").Inc()
	return message.BuildTextReply(openID, toUser, bindFirstReply), nil
}

func (s *Service) dispatchBound(ctx context.Context, msg *message.Message, b *binding.Binding) (string, error) {
	openID := msg.FromUserName
	toUser := msg.ToUserName

	if msg.IsText() && strings.EqualFold(strings.TrimSpace(msg.Content), "unbind") {
		if err := s.bindings.Delete(ctx, openID); err != nil {
			return "", err
		}
		metrics.DispatchOutcomesTotal.WithLabelValues("unbind").Inc()
		s.logger.InfowCtx(ctx, "Binding removed")
		return message.BuildTextReply(openID, toUser, unboundReply), nil
	}

	// Fire and forget: the webhook reply must go out within the
	// platform timeout, so the forward runs on its own goroutine with a
	// context detached from the request. There is no cancellation; the
	// forward runs to completion or failure unobserved.
	forwardCtx := logging.WithOpenID(context.WithoutCancel(ctx), openID)
	go func() {
		defer func() {
			if err := apperrors.RecoverPanic(recover()); err != nil {
				s.logger.ErrorwCtx(forwardCtx, "Forward panicked", "error", err)
			}
		}()
		if err := s.forwarder.Forward(forwardCtx, msg, b); err != nil {
			s.logger.ErrorwCtx(forwardCtx, "Forward failed", "error", err, "endpoint", b.EndpointURL)
		}
	}()

	metrics.DispatchOutcomesTotal.WithLabelValues("forward").Inc()
	return message.BuildTextReply(openID, toUser, processingReply), nil
}

// parseBindCommand matches "bind <url> <token>" with a case-insensitive
// keyword and any amount of whitespace between fields.
func parseBindCommand(content string) (endpoint, token string, ok bool) {
	fields := strings.Fields(content)
	if len(fields) != 3 || !strings.EqualFold(fields[0], "bind") {
		return "", "", false
	}
	return fields[1], fields[2], true
}

func isValidEndpointURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
