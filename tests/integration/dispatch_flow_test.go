package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxbridge/internal/binding"
	"wxbridge/internal/config"
	"wxbridge/internal/dispatch"
	"wxbridge/internal/forward"
	"wxbridge/internal/logger"
	"wxbridge/internal/message"
)

// TestDispatchBindToForwardFlow drives the full conversation flow
// against a real redis: bind, forward a message to an endpoint, unbind.
func TestDispatchBindToForwardFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	repo := binding.NewRepository(infra.RedisClient, 0)
	ctx := context.Background()

	received := make(chan forward.TaskRequest, 1)
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req forward.TaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received <- req
		w.WriteHeader(http.StatusAccepted)
	}))
	defer endpoint.Close()

	forwarder := forward.NewService(config.ForwardConfig{TimeoutSeconds: 5}, "https://bridge.example", logger.NopLogger())
	svc := dispatch.NewService(repo, forwarder, logger.NopLogger())

	// First contact: no binding yet, the user gets the bind prompt.
	reply, err := svc.Dispatch(ctx, textMsg("hello"))
	require.NoError(t, err)
	assert.Contains(t, reply, "请先绑定")

	// Bind against the live endpoint.
	reply, err = svc.Dispatch(ctx, textMsg("bind "+endpoint.URL+" tok1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "绑定成功")

	b, err := repo.Get(ctx, "openid-flow")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, endpoint.URL, b.EndpointURL)

	// A regular message now reaches the endpoint asynchronously.
	reply, err = svc.Dispatch(ctx, textMsg("do the thing"))
	require.NoError(t, err)
	assert.Contains(t, reply, "正在处理中")

	select {
	case task := <-received:
		assert.Equal(t, "do the thing", task.Task)
		assert.Equal(t, "https://bridge.example/callback/openid-flow", task.CallbackURL)
		assert.Equal(t, "openid-flow", task.Metadata.OpenID)
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint never received the forwarded task")
	}

	// Unbind ends the conversation.
	reply, err = svc.Dispatch(ctx, textMsg("unbind"))
	require.NoError(t, err)
	assert.Contains(t, reply, "已解除绑定")

	b, err = repo.Get(ctx, "openid-flow")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func textMsg(content string) *message.Message {
	return &message.Message{
		FromUserName: "openid-flow",
		ToUserName:   "gh_account",
		MsgType:      message.TypeText,
		Content:      content,
		CreateTime:   time.Now().Unix(),
	}
}
