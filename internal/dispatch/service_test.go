package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxbridge/internal/binding"
	"wxbridge/internal/logger"
	"wxbridge/internal/message"
)

type fakeBindingStore struct {
	mu       sync.Mutex
	bindings map[string]*binding.Binding
}

func newFakeBindingStore() *fakeBindingStore {
	return &fakeBindingStore{bindings: make(map[string]*binding.Binding)}
}

func (s *fakeBindingStore) Get(_ context.Context, userID string) (*binding.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings[userID], nil
}

func (s *fakeBindingStore) Set(_ context.Context, b *binding.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[b.UserID] = b
	return nil
}

func (s *fakeBindingStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, userID)
	return nil
}

type recordingForwarder struct {
	forwarded chan *message.Message
}

func newRecordingForwarder() *recordingForwarder {
	return &recordingForwarder{forwarded: make(chan *message.Message, 1)}
}

func (f *recordingForwarder) Forward(_ context.Context, msg *message.Message, _ *binding.Binding) error {
	f.forwarded <- msg
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeBindingStore, *recordingForwarder) {
	t.Helper()
	store := newFakeBindingStore()
	forwarder := newRecordingForwarder()
	svc := NewService(store, forwarder, logger.NopLogger())
	return svc, store, forwarder
}

func textMessage(content string) *message.Message {
	return &message.Message{
		FromUserName: "openid-1",
		ToUserName:   "gh_account",
		MsgType:      message.TypeText,
		Content:      content,
		CreateTime:   1700000000,
	}
}

func TestDispatchSubscribeEvent(t *testing.T) {
	svc, _, _ := newTestService(t)

	reply, err := svc.Dispatch(context.Background(), &message.Message{
		FromUserName: "openid-1",
		ToUserName:   "gh_account",
		MsgType:      message.TypeEvent,
		Event:        message.EventSubscribe,
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "欢迎关注")
	assert.Contains(t, reply, "<ToUserName><![CDATA[openid-1]]></ToUserName>")
}

func TestDispatchOtherEventRepliesEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	reply, err := svc.Dispatch(context.Background(), &message.Message{
		FromUserName: "openid-1",
		ToUserName:   "gh_account",
		MsgType:      message.TypeEvent,
		Event:        "unsubscribe",
	})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestDispatchBindCommand(t *testing.T) {
	svc, store, _ := newTestService(t)

	reply, err := svc.Dispatch(context.Background(), textMessage("bind https://x.example/webhook tok1"))
	require.NoError(t, err)

	b, err := store.Get(context.Background(), "openid-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "https://x.example/webhook", b.EndpointURL)
	assert.Equal(t, "tok1", b.Token)
	assert.Equal(t, "openid-1", b.UserID)

	assert.Contains(t, reply, "绑定成功")
	assert.Contains(t, reply, "https://x.example/webhook")
}

func TestDispatchBindCommandCaseInsensitive(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Dispatch(context.Background(), textMessage("BIND  https://x.example/webhook   tok1"))
	require.NoError(t, err)

	b, err := store.Get(context.Background(), "openid-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "https://x.example/webhook", b.EndpointURL)
}

func TestDispatchBindInvalidURL(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{name: "not a url", command: "bind not-a-url tok1"},
		{name: "missing scheme", command: "bind x.example/webhook tok1"},
		{name: "unsupported scheme", command: "bind ftp://x.example tok1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)

			reply, err := svc.Dispatch(context.Background(), textMessage(tt.command))
			require.NoError(t, err)

			b, err := store.Get(context.Background(), "openid-1")
			require.NoError(t, err)
			assert.Nil(t, b, "no binding should be created")
			assert.Contains(t, reply, "无效的 URL")
		})
	}
}

func TestDispatchUnboundPrompt(t *testing.T) {
	svc, _, forwarder := newTestService(t)

	reply, err := svc.Dispatch(context.Background(), textMessage("hello there"))
	require.NoError(t, err)
	assert.Contains(t, reply, "请先绑定")

	select {
	case <-forwarder.forwarded:
		t.Fatal("unbound message must not be forwarded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchUnbind(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain", content: "unbind"},
		{name: "upper with whitespace", content: "  UNBIND  "},
		{name: "mixed case", content: "UnBind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			require.NoError(t, store.Set(context.Background(), &binding.Binding{
				UserID:      "openid-1",
				EndpointURL: "https://x.example/webhook",
			}))

			reply, err := svc.Dispatch(context.Background(), textMessage(tt.content))
			require.NoError(t, err)

			b, err := store.Get(context.Background(), "openid-1")
			require.NoError(t, err)
			assert.Nil(t, b, "binding should be deleted")
			assert.Contains(t, reply, "已解除绑定")
		})
	}
}

func TestDispatchBoundForwards(t *testing.T) {
	svc, store, forwarder := newTestService(t)
	require.NoError(t, store.Set(context.Background(), &binding.Binding{
		UserID:      "openid-1",
		EndpointURL: "https://x.example/webhook",
	}))

	reply, err := svc.Dispatch(context.Background(), textMessage("what is the weather"))
	require.NoError(t, err)
	assert.Contains(t, reply, "正在处理中")

	select {
	case msg := <-forwarder.forwarded:
		assert.Equal(t, "what is the weather", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("expected message to be forwarded")
	}
}

func TestDispatchBoundNonTextForwards(t *testing.T) {
	svc, store, forwarder := newTestService(t)
	require.NoError(t, store.Set(context.Background(), &binding.Binding{
		UserID:      "openid-1",
		EndpointURL: "https://x.example/webhook",
	}))

	_, err := svc.Dispatch(context.Background(), &message.Message{
		FromUserName: "openid-1",
		ToUserName:   "gh_account",
		MsgType:      message.TypeImage,
		PicUrl:       "https://cdn.example/pic.jpg",
	})
	require.NoError(t, err)

	select {
	case msg := <-forwarder.forwarded:
		assert.Equal(t, message.TypeImage, msg.MsgType)
	case <-time.After(time.Second):
		t.Fatal("expected message to be forwarded")
	}
}

func TestParseBindCommand(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantOK       bool
		wantEndpoint string
		wantToken    string
	}{
		{name: "simple", content: "bind https://a.example t", wantOK: true, wantEndpoint: "https://a.example", wantToken: "t"},
		{name: "extra whitespace", content: " bind   https://a.example \t t ", wantOK: true, wantEndpoint: "https://a.example", wantToken: "t"},
		{name: "keyword case", content: "Bind https://a.example t", wantOK: true, wantEndpoint: "https://a.example", wantToken: "t"},
		{name: "missing token", content: "bind https://a.example", wantOK: false},
		{name: "too many fields", content: "bind https://a.example t extra", wantOK: false},
		{name: "wrong keyword", content: "bindx https://a.example t", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, token, ok := parseBindCommand(tt.content)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantEndpoint, endpoint)
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}
