package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/model"
	pkgerrors "github.com/davimluiz/painelalunosvercel/pkg/errors"
)

type announcementRepo struct {
	db *gorm.DB
}

// NewAnnouncementRepo 创建基于 gorm 的 AnnouncementRepository 实例
func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) List(ctx context.Context) ([]model.Announcement, error) {
	var list []model.Announcement
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *announcementRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Announcement{}).Count(&count).Error
	return count, err
}

func (r *announcementRepo) Create(ctx context.Context, a *model.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
		}
		return bumpRevision(tx)
	})
}

func (r *announcementRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Announcement{})
		if result.Error != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpRevision(tx)
	})
}
