package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/api/handler"
	"github.com/davimluiz/painelalunosvercel/internal/api/middleware"
	"github.com/davimluiz/painelalunosvercel/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, auth middleware.TokenAuthenticator, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/api/v1/display/board", "/api/v1/display/revision"))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 看板实时通知 ──
	r.GET("/ws/display", h.Display.Live)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 看板（公开）
		display := v1.Group("/display")
		{
			display.GET("/board", h.Display.Board)
			display.GET("/revision", h.Display.Revision)
		}
		v1.GET("/announcements", h.Announcement.ListAnnouncements)
		v1.GET("/sessions", h.Session.ListSessions)
		v1.GET("/sessions/:id", h.Session.GetSession)

		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, time.Minute, logger), h.Auth.Login)

		// 需要管理员认证的路由
		admin := v1.Group("")
		admin.Use(middleware.JWTAuth(auth))
		{
			admin.POST("/auth/logout", h.Auth.Logout)

			// 课程场次模块
			sessions := admin.Group("/sessions")
			{
				sessions.POST("", h.Session.CreateSession)
				sessions.PUT("/:id", h.Session.UpdateSession)
				sessions.DELETE("/:id", h.Session.DeleteSession)
				sessions.DELETE("", h.Session.ClearSessions)
				sessions.POST("/import", h.Import.ImportFile)
				sessions.POST("/sync", h.Import.Sync)
				sessions.GET("/import/status", h.Import.Status)
			}

			// 公告模块
			announcements := admin.Group("/announcements")
			{
				announcements.POST("", h.Announcement.CreateAnnouncement)
				announcements.DELETE("/:id", h.Announcement.DeleteAnnouncement)
			}

			// 导出模块
			export := admin.Group("/export")
			{
				export.GET("/sessions.xlsx", h.Export.ExportXLSX)
				export.GET("/sessions.ics", h.Export.ExportICS)
			}
		}
	}

	return r
}
