package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/service"
)

func TestDisplayHandler_LivePushesRevisions(t *testing.T) {
	notifier := service.NewNotifier()
	h := NewDisplayHandler(&mockDisplayService{revision: 5}, notifier, zap.NewNop())

	r := gin.New()
	r.GET("/ws/display", h.Live)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/display"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("连接 WebSocket 失败: %v", err)
	}
	defer conn.Close()

	read := func() revisionMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg revisionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("读取推送失败: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != "revision" || msg.Revision != 5 {
		t.Errorf("首条推送应为当前版本 5，实际=%+v", msg)
	}

	notifier.Publish(6)
	if msg := read(); msg.Revision != 6 {
		t.Errorf("期望推送版本 6，实际=%+v", msg)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for notifier.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("连接关闭后订阅未释放")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
