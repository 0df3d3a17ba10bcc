package dispatch

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wxbridge/internal/config"
	"wxbridge/internal/envelope"
	"wxbridge/internal/logger"
	"wxbridge/internal/message"
	apperrors "wxbridge/pkg/errors"
)

type Handler struct {
	service *Service
	cfg     config.WeChatConfig
	aesKey  []byte // nil when the account runs plaintext-only
	logger  logger.Logger
}

func NewHandler(service *Service, cfg config.WeChatConfig, log logger.Logger) (*Handler, error) {
	h := &Handler{
		service: service,
		cfg:     cfg,
		logger:  log,
	}

	if cfg.EncodingAESKey != "" {
		key, err := envelope.DecodeAESKey(cfg.EncodingAESKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encoding AES key: %w", err)
		}
		h.aesKey = key
	}

	return h, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/wechat", h.Verify)
	router.POST("/wechat", h.Receive)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Webhook request rejected", "error", err, "path", c.Request.URL.Path)
	c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
}

// Verify answers the platform's server-validation probe by echoing
// echostr once the request signature checks out.
func (h *Handler) Verify(c *gin.Context) {
	signature := c.Query("signature")
	timestamp := c.Query("timestamp")
	nonce := c.Query("nonce")

	if signature == "" || timestamp == "" || nonce == "" {
		h.handleError(c, apperrors.ErrMalformedRequest.WithDetail("message", "missing signature parameters"))
		return
	}

	if !envelope.VerifySignature(h.cfg.Token, signature, timestamp, nonce) {
		h.handleError(c, apperrors.ErrSignatureInvalid)
		return
	}

	c.String(http.StatusOK, c.Query("echostr"))
}

// Receive handles an inbound message webhook. The request signature is
// checked before the body is touched; in encrypted mode the message
// signature is a second, independent gate before decryption.
func (h *Handler) Receive(c *gin.Context) {
	signature := c.Query("signature")
	timestamp := c.Query("timestamp")
	nonce := c.Query("nonce")

	if signature == "" || timestamp == "" || nonce == "" {
		h.handleError(c, apperrors.ErrMalformedRequest.WithDetail("message", "missing signature parameters"))
		return
	}

	if !envelope.VerifySignature(h.cfg.Token, signature, timestamp, nonce) {
		h.handleError(c, apperrors.ErrSignatureInvalid)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.handleError(c, apperrors.ErrMalformedRequest.WithCause(err))
		return
	}

	encrypted := strings.EqualFold(c.Query("encrypt_type"), "aes")

	var msg *message.Message
	if encrypted {
		msg, err = h.decryptAndParse(c, timestamp, nonce, body)
		if err != nil {
			h.handleError(c, err)
			return
		}
	} else {
		msg, err = message.Parse(body)
		if err != nil {
			h.handleError(c, err)
			return
		}
	}

	reply, err := h.service.Dispatch(c.Request.Context(), msg)
	if err != nil {
		h.handleError(c, err)
		return
	}

	// Empty reply is the bare platform ack.
	if reply == "" {
		c.String(http.StatusOK, "")
		return
	}

	if encrypted {
		h.sendEncryptedReply(c, reply)
		return
	}

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(reply))
}

func (h *Handler) decryptAndParse(c *gin.Context, timestamp, nonce string, body []byte) (*message.Message, error) {
	if h.aesKey == nil {
		return nil, apperrors.ErrCryptoConfig
	}

	encryptedPayload, err := message.ExtractEncrypted(body)
	if err != nil {
		return nil, err
	}

	if msgSignature := c.Query("msg_signature"); msgSignature != "" {
		if !envelope.VerifyMsgSignature(h.cfg.Token, timestamp, nonce, encryptedPayload, msgSignature) {
			return nil, apperrors.ErrSignatureInvalid.WithDetail("message", "invalid msg_signature")
		}
	}

	plaintext, err := envelope.Decrypt(encryptedPayload, h.aesKey, h.cfg.AppID)
	if err != nil {
		return nil, err
	}

	return message.Parse([]byte(plaintext))
}

func (h *Handler) sendEncryptedReply(c *gin.Context, plainXML string) {
	encrypted, err := envelope.Encrypt(plainXML, h.aesKey, h.cfg.AppID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	replyTimestamp := fmt.Sprintf("%d", time.Now().Unix())
	replyNonce := uuid.NewString()
	replySignature := envelope.MsgSignature(h.cfg.Token, replyTimestamp, replyNonce, encrypted)

	xml := envelope.BuildEncryptedReply(encrypted, replySignature, replyTimestamp, replyNonce)
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(xml))
}
