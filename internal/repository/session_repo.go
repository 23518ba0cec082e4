package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/model"
	pkgerrors "github.com/davimluiz/painelalunosvercel/pkg/errors"
)

// ErrInvalidField 更新了不允许的列
var ErrInvalidField = errors.New("不支持更新的字段")

// 批量插入分批大小
const insertBatchSize = 490

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建基于 gorm 的 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) List(ctx context.Context) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("service_date BETWEEN ? AND ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("service_date ASC, start_time ASC, sort_order ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByDateAndShift(ctx context.Context, day time.Time, shift model.Shift) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("service_date = ? AND shift = ?", day.Format("2006-01-02"), shift).
		Order("sort_order ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var s model.ClassSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, session *model.ClassSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先更新版本行：并发写入在该行锁上排队，之后读到的 MAX 已包含先提交的记录
		if err := bumpRevision(tx); err != nil {
			return err
		}
		var next int
		if err := tx.Model(&model.ClassSession{}).
			Select("COALESCE(MAX(sort_order) + 1, 0)").
			Scan(&next).Error; err != nil {
			return err
		}
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		session.Order = next
		session.SyncServiceDate()
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
		}
		return nil
	})
}

func (r *sessionRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if _, err := uuid.Parse(id); err != nil {
		return gorm.ErrRecordNotFound
	}
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		if _, ok := sessionColumns[k]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidField, k)
		}
		updates[k] = v
	}
	if date, ok := updates["date"].(string); ok {
		s := model.ClassSession{Date: date}
		s.SyncServiceDate()
		updates["service_date"] = s.ServiceDate
	}
	updates["updated_at"] = time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ClassSession{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpRevision(tx)
	})
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.ClassSession{})
		if result.Error != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpRevision(tx)
	})
}

func (r *sessionRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&model.ClassSession{}).Error; err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
		}
		return bumpRevision(tx)
	})
}

func (r *sessionRepo) ReplaceAll(ctx context.Context, sessions []model.ClassSession) error {
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		sessions[i].SyncServiceDate()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先清空再批量插入，任一步失败整体回滚
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&model.ClassSession{}).Error; err != nil {
			return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
		}
		if len(sessions) > 0 {
			if err := tx.CreateInBatches(&sessions, insertBatchSize).Error; err != nil {
				return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
			}
		}
		return bumpRevision(tx)
	})
}

func (r *sessionRepo) Revision(ctx context.Context) (int64, error) {
	return readRevision(r.db.WithContext(ctx))
}

// ────────────────────── 数据版本 ──────────────────────

// bumpRevision 在当前事务内递增数据版本
func bumpRevision(tx *gorm.DB) error {
	err := tx.Model(&model.StoreRevision{}).
		Where("singleton = ?", true).
		Updates(map[string]interface{}{
			"revision":   gorm.Expr("revision + 1"),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("%w: 更新数据版本失败: %v", pkgerrors.ErrStoreWrite, err)
	}
	return nil
}

func readRevision(db *gorm.DB) (int64, error) {
	var rev model.StoreRevision
	err := db.Where("singleton = ?", true).First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rev.Revision, nil
}
