package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// ── 公告模块业务错误 ──

var (
	ErrAnnouncementNotFound = errors.New("公告不存在")
	ErrAnnouncementLimit    = errors.New("公告数量已达上限")
	ErrAnnouncementInvalid  = errors.New("公告内容无效")
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".ogg":  {},
	".ogv":  {},
	".mov":  {},
	".m4v":  {},
}

// AnnouncementService 看板轮播公告
type AnnouncementService interface {
	List(ctx context.Context) ([]model.Announcement, error)
	// Create 新增公告，超过 display.max_announcements 时返回 ErrAnnouncementLimit
	Create(ctx context.Context, req *dto.CreateAnnouncementRequest) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type announcementService struct {
	repo     *repository.Repository
	limit    int
	notifier *Notifier
	logger   *zap.Logger
}

// NewAnnouncementService 创建 AnnouncementService 实例
func NewAnnouncementService(repo *repository.Repository, limit int, notifier *Notifier, logger *zap.Logger) AnnouncementService {
	return &announcementService{repo: repo, limit: limit, notifier: notifier, logger: logger}
}

func (s *announcementService) List(ctx context.Context) ([]model.Announcement, error) {
	list, err := s.repo.Announcement.List(ctx)
	if err != nil {
		s.logger.Error("查询公告失败", zap.Error(err))
		return nil, err
	}
	if list == nil {
		list = []model.Announcement{}
	}
	return list, nil
}

func (s *announcementService) Create(ctx context.Context, req *dto.CreateAnnouncementRequest) (*model.Announcement, error) {
	src := strings.TrimSpace(req.Src)
	if src == "" {
		return nil, fmt.Errorf("%w: src 不能为空", ErrAnnouncementInvalid)
	}

	count, err := s.repo.Announcement.Count(ctx)
	if err != nil {
		s.logger.Error("统计公告数量失败", zap.Error(err))
		return nil, err
	}
	if s.limit > 0 && count >= int64(s.limit) {
		return nil, fmt.Errorf("%w（最多 %d 条）", ErrAnnouncementLimit, s.limit)
	}

	typ := model.AnnouncementType(req.Type)
	if typ == "" {
		typ = InferAnnouncementType(src)
	}

	a := &model.Announcement{Type: typ, Src: src}
	if err := s.repo.Announcement.Create(ctx, a); err != nil {
		s.logger.Error("创建公告失败", zap.Error(err))
		return nil, err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)
	return a, nil
}

func (s *announcementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Announcement.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnnouncementNotFound
		}
		s.logger.Error("删除公告失败", zap.String("id", id), zap.Error(err))
		return err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)
	return nil
}

// InferAnnouncementType 按 data URI 的 MIME 或文件扩展名推断媒体类型，默认图片
func InferAnnouncementType(src string) model.AnnouncementType {
	lower := strings.ToLower(strings.TrimSpace(src))
	if strings.HasPrefix(lower, "data:") {
		if strings.HasPrefix(lower, "data:video/") {
			return model.AnnouncementVideo
		}
		return model.AnnouncementImage
	}

	p := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		p = u.Path
	}
	if _, ok := videoExtensions[path.Ext(p)]; ok {
		return model.AnnouncementVideo
	}
	return model.AnnouncementImage
}
