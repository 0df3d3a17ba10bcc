// Package push implements the out-of-band send channel: the platform's
// customer-service message API, used to deliver task answers after the
// original webhook response is long gone.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"wxbridge/internal/config"
	"wxbridge/internal/logger"
	"wxbridge/pkg/metrics"
	"wxbridge/pkg/retry"
)

// Error codes the platform returns for a stale access token.
const (
	errcodeInvalidCredential = 40001
	errcodeInvalidToken      = 40014
	errcodeTokenExpired      = 42001
)

// tokenExpirySkew refreshes the cached token a bit before the platform
// would reject it.
const tokenExpirySkew = 60 * time.Second

type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appSecret  string
	logger     logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.WeChatConfig, pushCfg config.PushConfig, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: pushCfg.TimeoutSeconds * time.Second,
		},
		baseURL:   cfg.APIBaseURL,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		logger:    log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

type sendRequest struct {
	ToUser  string      `json:"touser"`
	MsgType string      `json:"msgtype"`
	Text    textPayload `json:"text"`
}

type textPayload struct {
	Content string `json:"content"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendText pushes one text message to the user. The send itself is
// attempted exactly once; only the access-token fetch retries, since
// that gates the gateway's own credential rather than a user delivery.
func (c *Client) SendText(ctx context.Context, openID, text string) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		metrics.PushRequestsTotal.WithLabelValues("token_error").Inc()
		return fmt.Errorf("acquire access token: %w", err)
	}

	payload, err := json.Marshal(sendRequest{
		ToUser:  openID,
		MsgType: "text",
		Text:    textPayload{Content: text},
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/message/custom/send?access_token=%s", c.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PushRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("deliver push message: %w", err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.PushRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("decode push response: %w", err)
	}

	if result.ErrCode != 0 {
		if isTokenError(result.ErrCode) {
			c.invalidateToken()
		}
		metrics.PushRequestsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("platform rejected push: errcode=%d errmsg=%s", result.ErrCode, result.ErrMsg)
	}

	metrics.PushRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.InfowCtx(ctx, "Push message delivered", "openid", openID)
	return nil
}

func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	var token tokenResponse
	fetch := func() error {
		var err error
		token, err = c.fetchAccessToken(ctx)
		return err
	}

	backoffPolicy := retry.ExponentialBackoffWithMaxElapsed(500*time.Millisecond, 5*time.Second, 15*time.Second, 2.0)
	if err := retry.Do(ctx, fetch, backoffPolicy); err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySkew)
	c.logger.Debugw("Access token refreshed", "expires_in", token.ExpiresIn)
	return c.accessToken, nil
}

func (c *Client) fetchAccessToken(ctx context.Context) (tokenResponse, error) {
	endpoint := fmt.Sprintf("%s/cgi-bin/token?grant_type=client_credential&appid=%s&secret=%s",
		c.baseURL, url.QueryEscape(c.appID), url.QueryEscape(c.appSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return tokenResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, err
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return tokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}

	if token.ErrCode != 0 || token.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token request failed: errcode=%d errmsg=%s", token.ErrCode, token.ErrMsg)
	}

	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
}

func isTokenError(errcode int) bool {
	switch errcode {
	case errcodeInvalidCredential, errcodeInvalidToken, errcodeTokenExpired:
		return true
	}
	return false
}
