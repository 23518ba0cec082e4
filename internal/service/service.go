package service

import (
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
	"github.com/davimluiz/painelalunosvercel/pkg/jwt"
	"github.com/davimluiz/painelalunosvercel/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Session      SessionService
	Import       ImportService
	Announcement AnnouncementService
	Display      DisplayService
	Export       ExportService
	Auth         AuthService
	Notifier     *Notifier
}

// NewService 创建 Service 聚合；rdb 为 nil 时关闭导入锁、导入缓存与 Token 黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	// nil 指针不能直接赋给接口，否则接口值非 nil
	var (
		lock      ImportLock
		cache     ImportCache
		blacklist TokenBlacklist
	)
	if rdb != nil {
		lock, cache, blacklist = rdb, rdb, rdb
	}

	notifier := NewNotifier()
	fetcher := ingest.NewFetcher(cfg.Ingest.FetchTimeout, cfg.Ingest.MaxFileBytes)

	return &Service{
		Session:      NewSessionService(repo, notifier, logger),
		Import:       NewImportService(cfg.Ingest, repo, fetcher, lock, cache, notifier, logger),
		Announcement: NewAnnouncementService(repo, cfg.Display.MaxAnnouncements, notifier, logger),
		Display:      NewDisplayService(repo, cfg, logger),
		Export:       NewExportService(repo, logger),
		Auth:         NewAuthService(cfg.Auth, jwtMgr, blacklist, logger),
		Notifier:     notifier,
	}
}
