// Package forward delivers parsed user messages as task requests to
// the user's bound remote endpoint. Delivery is fire-and-forget from
// the dispatcher's point of view: failures are logged and counted,
// never surfaced to the user and never retried.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wxbridge/internal/binding"
	"wxbridge/internal/config"
	"wxbridge/internal/logger"
	"wxbridge/internal/message"
	"wxbridge/pkg/metrics"
)

type Service struct {
	client        *http.Client
	bridgeBaseURL string
	logger        logger.Logger
}

func NewService(cfg config.ForwardConfig, bridgeBaseURL string, log logger.Logger) *Service {
	return &Service{
		client: &http.Client{
			Timeout: cfg.TimeoutSeconds * time.Second,
		},
		bridgeBaseURL: bridgeBaseURL,
		logger:        log,
	}
}

// Forward posts the message as a TaskRequest to the binding's endpoint.
// The remote endpoint answers out of band via the callback URL carried
// in the payload; the HTTP response here is only checked for a 2xx.
// No authentication header is sent: the endpoint is assumed reachable
// only on a private network.
func (s *Service) Forward(ctx context.Context, msg *message.Message, b *binding.Binding) error {
	start := time.Now()

	req := TaskRequest{
		Task:        TaskText(msg),
		CallbackURL: fmt.Sprintf("%s/callback/%s", s.bridgeBaseURL, msg.FromUserName),
		Metadata: Metadata{
			OpenID:    msg.FromUserName,
			MsgType:   msg.MsgType,
			MsgID:     msg.MsgId,
			Timestamp: msg.CreateTime,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		metrics.ForwardRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal task request: %w", err)
	}

	s.logger.InfowCtx(ctx, "Forwarding message to endpoint",
		"endpoint", b.EndpointURL,
		"msg_type", msg.MsgType,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.EndpointURL, bytes.NewReader(body))
	if err != nil {
		metrics.ForwardRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build forward request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		metrics.ForwardRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("deliver task request: %w", err)
	}
	defer resp.Body.Close()

	metrics.ForwardDuration.Observe(float64(time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ForwardRequestsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("endpoint responded with status %d", resp.StatusCode)
	}

	metrics.ForwardRequestsTotal.WithLabelValues("ok").Inc()
	s.logger.InfowCtx(ctx, "Endpoint accepted task", "status", resp.StatusCode)
	return nil
}

// TaskText derives the task string from the message per its type.
func TaskText(msg *message.Message) string {
	switch msg.MsgType {
	case message.TypeText:
		return msg.Content
	case message.TypeVoice:
		if msg.Recognition != "" {
			return msg.Recognition
		}
		return "[语音消息，无法识别]"
	case message.TypeImage:
		return fmt.Sprintf("[图片消息] %s", msg.PicUrl)
	case message.TypeLocation:
		return fmt.Sprintf("[位置消息] 经度: %s, 纬度: %s, %s", msg.LocationY, msg.LocationX, msg.Label)
	case message.TypeLink:
		return fmt.Sprintf("[链接消息] %s\n%s\n%s", msg.Title, msg.Description, msg.Url)
	default:
		return fmt.Sprintf("[%s消息]", msg.MsgType)
	}
}
