package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/service"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 看板是公开只读页面，部署在任意来源的电视浏览器上
	CheckOrigin: func(r *http.Request) bool { return true },
}

// revisionMessage 推送给看板的变更通知
type revisionMessage struct {
	Type     string `json:"type"`
	Revision int64  `json:"revision"`
}

// DisplayHandler 看板 HTTP / WebSocket 处理器
type DisplayHandler struct {
	displaySvc service.DisplayService
	notifier   *service.Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewDisplayHandler 创建 DisplayHandler
func NewDisplayHandler(displaySvc service.DisplayService, notifier *service.Notifier, logger *zap.Logger) *DisplayHandler {
	return &DisplayHandler{displaySvc: displaySvc, notifier: notifier, logger: logger, now: time.Now}
}

// Board 看板当前页数据
// GET /api/v1/display/board?turno=&data=&page=
func (h *DisplayHandler) Board(c *gin.Context) {
	var q dto.BoardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	board, err := h.displaySvc.Board(c.Request.Context(), h.now(), &q)
	if err != nil {
		if errors.Is(err, service.ErrBoardInvalidQuery) {
			response.BadRequest(c, 10001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, board)
}

// Revision 当前数据版本，看板轮询时比较版本号决定是否刷新
// GET /api/v1/display/revision
func (h *DisplayHandler) Revision(c *gin.Context) {
	rev, err := h.displaySvc.Revision(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.RevisionResponse{Revision: rev})
}

// Live 订阅数据变更
// GET /ws/display
//
// 连接建立后先推送当前版本，之后每次课表或公告变更推送最新版本号。
func (h *DisplayHandler) Live(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	updates, cancel := h.notifier.Subscribe()
	closed := make(chan struct{})
	go h.readPump(conn, closed)

	current, err := h.displaySvc.Revision(c.Request.Context())
	if err != nil {
		h.logger.Warn("读取数据版本失败", zap.Error(err))
	}
	h.writePump(conn, current, updates, closed)
	cancel()
}

// readPump 只处理 pong 与关闭帧，连接断开时关闭 closed
func (h *DisplayHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("看板连接异常关闭", zap.Error(err))
			}
			return
		}
	}
}

func (h *DisplayHandler) writePump(conn *websocket.Conn, current int64, updates <-chan int64, closed <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if err := h.writeRevision(conn, current); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case rev := <-updates:
			if err := h.writeRevision(conn, rev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *DisplayHandler) writeRevision(conn *websocket.Conn, rev int64) error {
	payload, err := json.Marshal(revisionMessage{Type: "revision", Revision: rev})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Debug("推送看板变更失败", zap.Error(err))
		return err
	}
	return nil
}
