package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxbridge/internal/config"
	"wxbridge/internal/logger"
)

type fakePlatform struct {
	tokenCalls  atomic.Int64
	sendCalls   atomic.Int64
	failToken   atomic.Int64 // remaining token requests to fail
	sendErrCode int

	lastSend sendRequest
	lastAuth string
}

func (p *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		if p.failToken.Load() > 0 {
			p.failToken.Add(-1)
			json.NewEncoder(w).Encode(map[string]any{"errcode": 40164, "errmsg": "invalid ip"})
			return
		}
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":7200}`, p.tokenCalls.Load())
	})
	mux.HandleFunc("/cgi-bin/message/custom/send", func(w http.ResponseWriter, r *http.Request) {
		p.sendCalls.Add(1)
		p.lastAuth = r.URL.Query().Get("access_token")
		json.NewDecoder(r.Body).Decode(&p.lastSend)
		json.NewEncoder(w).Encode(map[string]any{"errcode": p.sendErrCode, "errmsg": "msg"})
	})
	return mux
}

func newTestClient(t *testing.T, platform *fakePlatform) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(platform.handler())
	t.Cleanup(server.Close)

	client := NewClient(
		config.WeChatConfig{AppID: "wx_push_test", AppSecret: "secret", APIBaseURL: server.URL},
		config.PushConfig{TimeoutSeconds: 5},
		logger.NopLogger(),
	)
	return client, server
}

func TestSendText(t *testing.T) {
	platform := &fakePlatform{}
	client, _ := newTestClient(t, platform)

	err := client.SendText(context.Background(), "openid-1", "hello from the gateway")
	require.NoError(t, err)

	assert.Equal(t, int64(1), platform.tokenCalls.Load())
	assert.Equal(t, int64(1), platform.sendCalls.Load())
	assert.Equal(t, "token-1", platform.lastAuth)
	assert.Equal(t, "openid-1", platform.lastSend.ToUser)
	assert.Equal(t, "text", platform.lastSend.MsgType)
	assert.Equal(t, "hello from the gateway", platform.lastSend.Text.Content)
}

func TestSendTextReusesCachedToken(t *testing.T) {
	platform := &fakePlatform{}
	client, _ := newTestClient(t, platform)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.SendText(context.Background(), "openid-1", "msg"))
	}

	assert.Equal(t, int64(1), platform.tokenCalls.Load(), "token should be fetched once and cached")
	assert.Equal(t, int64(3), platform.sendCalls.Load())
}

func TestSendTextRetriesTokenFetch(t *testing.T) {
	platform := &fakePlatform{}
	platform.failToken.Store(1)
	client, _ := newTestClient(t, platform)

	err := client.SendText(context.Background(), "openid-1", "msg")
	require.NoError(t, err)

	assert.Equal(t, int64(2), platform.tokenCalls.Load())
	assert.Equal(t, int64(1), platform.sendCalls.Load(), "send itself happens exactly once")
}

func TestSendTextRejected(t *testing.T) {
	platform := &fakePlatform{sendErrCode: 45015}
	client, _ := newTestClient(t, platform)

	err := client.SendText(context.Background(), "openid-1", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "45015")

	// A non-token error leaves the cached token alone.
	require.NoError(t, func() error {
		platform.sendErrCode = 0
		return client.SendText(context.Background(), "openid-1", "msg")
	}())
	assert.Equal(t, int64(1), platform.tokenCalls.Load())
}

func TestSendTextTokenErrorInvalidatesCache(t *testing.T) {
	platform := &fakePlatform{sendErrCode: 42001}
	client, _ := newTestClient(t, platform)

	err := client.SendText(context.Background(), "openid-1", "msg")
	require.Error(t, err)

	// Next send must fetch a fresh token.
	platform.sendErrCode = 0
	require.NoError(t, client.SendText(context.Background(), "openid-1", "msg"))
	assert.Equal(t, int64(2), platform.tokenCalls.Load())
	assert.Equal(t, "token-2", platform.lastAuth)
}

func TestIsTokenError(t *testing.T) {
	assert.True(t, isTokenError(40001))
	assert.True(t, isTokenError(40014))
	assert.True(t, isTokenError(42001))
	assert.False(t, isTokenError(0))
	assert.False(t, isTokenError(45015))
}
