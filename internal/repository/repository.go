package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

// SessionRepository 课程场次存储接口
//
// 所有写操作成功后数据版本（Revision）递增；ReplaceAll 为原子操作，
// 失败时原有数据保持不变。记录不存在时返回 gorm.ErrRecordNotFound。
type SessionRepository interface {
	// List 按 ordem 升序返回全部场次
	List(ctx context.Context) ([]model.ClassSession, error)
	// ListByDateRange 返回 [from, to] 日期范围内（含）的场次，data 非法的记录不参与
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.ClassSession, error)
	// ListByDateAndShift 看板查询：ServiceDate 为 day 当天且属于指定时段，按 ordem 升序
	ListByDateAndShift(ctx context.Context, day time.Time, shift model.Shift) ([]model.ClassSession, error)
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	// Create 分配 ID，ordem 取当前最大值 +1（追加到末尾，空表为 0）
	Create(ctx context.Context, session *model.ClassSession) error
	// Update 按列名部分更新
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	// ReplaceAll 整体替换，为未设置 ID 的记录原地分配 ID
	ReplaceAll(ctx context.Context, sessions []model.ClassSession) error
	Revision(ctx context.Context) (int64, error)
}

// AnnouncementRepository 公告存储接口
type AnnouncementRepository interface {
	List(ctx context.Context) ([]model.Announcement, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, a *model.Announcement) error
	Delete(ctx context.Context, id string) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Session      SessionRepository
	Announcement AnnouncementRepository
}

// NewRepository 创建基于 PostgreSQL 的 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Session:      NewSessionRepo(db),
		Announcement: NewAnnouncementRepo(db),
	}
}

// NewMemoryRepository 创建基于内存（可选 JSON 文件持久化）的 Repository 聚合
func NewMemoryRepository(path string) (*Repository, error) {
	store, err := NewMemoryStore(path)
	if err != nil {
		return nil, err
	}
	return &Repository{
		Session:      store.Sessions(),
		Announcement: store.Announcements(),
	}, nil
}

// sessionColumns Update 允许的列
var sessionColumns = map[string]struct{}{
	"date":        {},
	"room":        {},
	"class_group": {},
	"instructor":  {},
	"course_unit": {},
	"start_time":  {},
	"end_time":    {},
	"shift":       {},
	"sort_order":  {},
	"title":       {},
	"description": {},
	"active":      {},
}
