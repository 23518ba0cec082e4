package handler

import (
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Session      *SessionHandler
	Import       *ImportHandler
	Announcement *AnnouncementHandler
	Display      *DisplayHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Session:      NewSessionHandler(svc.Session),
		Import:       NewImportHandler(svc.Import),
		Announcement: NewAnnouncementHandler(svc.Announcement),
		Display:      NewDisplayHandler(svc.Display, svc.Notifier, logger),
		Export:       NewExportHandler(svc.Export),
	}
}
