package callback

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxbridge/internal/logger"
)

func newTestRouter(t *testing.T, sender *fakeSender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newCallbackService(sender, nil)
	handler := NewHandler(svc, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPostResultOK(t *testing.T) {
	sender := &fakeSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1", `{"success":true,"result":"all done"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "all done", sender.sent[0])
	assert.Equal(t, "openid-1", sender.users[0])
}

func TestPostResultFailurePayload(t *testing.T) {
	sender := &fakeSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1", `{"success":false,"error":"model overloaded"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "❌ 处理失败：model overloaded", sender.sent[0])
}

func TestPostResultMalformedJSON(t *testing.T) {
	router := newTestRouter(t, &fakeSender{})

	w := postJSON(router, "/callback/openid-1", `{"success":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostResultPushFailureReturns500(t *testing.T) {
	sender := &fakeSender{fail: errors.New("api rejected")}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1", `{"success":true,"result":"answer"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"failed to send message"}`, w.Body.String())
}

func TestPostStreamChunkIntermediate(t *testing.T) {
	sender := &fakeSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1/stream", `{"chunk":"partial text","done":false,"chunk_index":0}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"buffered":true}`, w.Body.String())
	assert.Empty(t, sender.sent)
}

func TestPostStreamChunkFinal(t *testing.T) {
	sender := &fakeSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1/stream", `{"chunk":"final text","done":true,"chunk_index":3}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "final text", sender.sent[0])
}

func TestPostStreamChunkFinalPushFails(t *testing.T) {
	sender := &fakeSender{fail: errors.New("api rejected")}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/callback/openid-1/stream", `{"chunk":"final text","done":true}`)

	// The chunk was accepted even though the push failed; the endpoint
	// learns about the miss through ok=false.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":false}`, w.Body.String())
}
