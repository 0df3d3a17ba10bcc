// Package callback correlates asynchronous results from remote task
// endpoints back to users, delivering the final answer through the
// out-of-band push channel instead of the long-gone webhook response.
package callback

import (
	"context"
	"fmt"

	"wxbridge/internal/binding"
	"wxbridge/internal/logger"
	apperrors "wxbridge/pkg/errors"
	"wxbridge/pkg/logging"
	"wxbridge/pkg/metrics"
)

const (
	noContentMarker = "✅ 任务已完成（无返回内容）"
	failurePrefix   = "❌ 处理失败："
	unknownError    = "未知错误"
)

// Sender pushes a text message to a user outside the webhook
// request/response cycle.
type Sender interface {
	SendText(ctx context.Context, openID, text string) error
}

type Service struct {
	bindings binding.Repository
	sender   Sender
	logger   logger.Logger
}

func NewService(bindings binding.Repository, sender Sender, log logger.Logger) *Service {
	return &Service{
		bindings: bindings,
		sender:   sender,
		logger:   log,
	}
}

// OnResult delivers a final task result to the user. The binding
// lookup is a liveness check only: a missing binding is logged but the
// send still proceeds, since the remote endpoint may legitimately
// outlive a binding change. A failed push is returned to the caller so
// the remote endpoint can decide whether to retry; the gateway itself
// never retries.
func (s *Service) OnResult(ctx context.Context, openID string, result Result) error {
	ctx = logging.WithOpenID(ctx, openID)

	b, err := s.bindings.Get(ctx, openID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Binding lookup failed during callback", "error", err)
	} else if b == nil {
		s.logger.WarnwCtx(ctx, "Callback received for unbound user")
	}

	text := resultText(result)

	if err := s.sender.SendText(ctx, openID, text); err != nil {
		metrics.CallbackResultsTotal.WithLabelValues("push_failed").Inc()
		return apperrors.ErrPushFailed.WithCause(err)
	}

	if result.Success {
		metrics.CallbackResultsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.CallbackResultsTotal.WithLabelValues("failure").Inc()
	}

	s.logger.InfowCtx(ctx, "Callback result delivered", "success", result.Success)
	return nil
}

// OnStreamChunk handles one streamed chunk. Intermediate chunks are
// acknowledged and discarded; the chunk marked done is pushed verbatim
// as the final message. Earlier chunks are not reassembled.
func (s *Service) OnStreamChunk(ctx context.Context, openID string, chunk StreamChunk) (bool, error) {
	ctx = logging.WithOpenID(ctx, openID)

	if !chunk.Done {
		metrics.CallbackStreamChunksTotal.WithLabelValues("buffered").Inc()
		s.logger.DebugwCtx(ctx, "Stream chunk discarded", "chunk_index", chunk.ChunkIndex)
		return false, nil
	}

	metrics.CallbackStreamChunksTotal.WithLabelValues("final").Inc()

	if err := s.sender.SendText(ctx, openID, chunk.Chunk); err != nil {
		return false, apperrors.ErrPushFailed.WithCause(err)
	}
	return true, nil
}

func resultText(result Result) string {
	var text string
	if result.Success {
		text = result.Result
		if text == "" {
			text = noContentMarker
		}
	} else {
		errText := result.Error
		if errText == "" {
			errText = unknownError
		}
		text = failurePrefix + errText
	}

	if result.Metadata != nil && result.Metadata.ThinkingTimeMs > 0 {
		seconds := float64(result.Metadata.ThinkingTimeMs) / 1000
		text += fmt.Sprintf("\n\n⏱️ 思考用时: %.1fs", seconds)
	}

	return text
}
