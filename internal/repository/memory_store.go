package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/model"
	pkgerrors "github.com/davimluiz/painelalunosvercel/pkg/errors"
)

// memoryData 内存快照，同时也是持久化文件（db.json）的格式
type memoryData struct {
	Sessions      []model.ClassSession `json:"aulas"`
	Announcements []model.Announcement `json:"anuncios"`
	Revision      int64                `json:"revision"`
}

func (d *memoryData) clone() memoryData {
	return memoryData{
		Sessions:      append([]model.ClassSession(nil), d.Sessions...),
		Announcements: append([]model.Announcement(nil), d.Announcements...),
		Revision:      d.Revision,
	}
}

// MemoryStore 内存存储，单实例部署使用
//
// 每次写操作在副本上修改，持久化成功后整体替换快照；
// 持久化失败时内存状态保持不变。path 为空时不落盘。
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData
	path string
	now  func() time.Time
}

// NewMemoryStore 创建内存存储，path 指向的文件存在时从中加载
func NewMemoryStore(path string) (*MemoryStore, error) {
	s := &MemoryStore{path: path, now: time.Now}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStoreCorrupt, err)
	}
	for i := range s.data.Sessions {
		s.data.Sessions[i].SyncServiceDate()
	}
	return s, nil
}

// Sessions 课程场次视图
func (s *MemoryStore) Sessions() SessionRepository { return &memorySessions{store: s} }

// Announcements 公告视图
func (s *MemoryStore) Announcements() AnnouncementRepository {
	return &memoryAnnouncements{store: s}
}

func (s *MemoryStore) snapshot() memoryData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

// mutate 在副本上执行 fn，持久化成功后替换快照并递增版本
func (s *MemoryStore) mutate(fn func(d *memoryData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.Revision++
	if err := s.persist(&next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// persist 写临时文件后 rename，避免写到一半的文件被读取
func (s *MemoryStore) persist(d *memoryData) error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".painel-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreWrite, err)
	}
	return nil
}

// ────────────────────── 课程场次 ──────────────────────

type memorySessions struct {
	store *MemoryStore
}

func (r *memorySessions) List(_ context.Context) ([]model.ClassSession, error) {
	sessions := r.store.snapshot().Sessions
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Order < sessions[j].Order })
	return sessions, nil
}

func (r *memorySessions) ListByDateRange(_ context.Context, from, to time.Time) ([]model.ClassSession, error) {
	from = truncateDay(from)
	to = truncateDay(to)

	var out []model.ClassSession
	for _, s := range r.store.snapshot().Sessions {
		if s.ServiceDate == nil || s.ServiceDate.Before(from) || s.ServiceDate.After(to) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ServiceDate.Equal(*b.ServiceDate) {
			return a.ServiceDate.Before(*b.ServiceDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Order < b.Order
	})
	return out, nil
}

func (r *memorySessions) ListByDateAndShift(_ context.Context, day time.Time, shift model.Shift) ([]model.ClassSession, error) {
	day = truncateDay(day)
	var out []model.ClassSession
	for _, s := range r.store.snapshot().Sessions {
		if s.ServiceDate != nil && s.ServiceDate.Equal(day) && s.Shift == shift {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *memorySessions) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	for _, s := range r.store.snapshot().Sessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memorySessions) Create(_ context.Context, session *model.ClassSession) error {
	now := r.store.now()
	created := *session
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	created.SyncServiceDate()

	err := r.store.mutate(func(d *memoryData) error {
		created.Order = nextOrder(d.Sessions)
		d.Sessions = append(d.Sessions, created)
		return nil
	})
	if err != nil {
		return err
	}
	*session = created
	return nil
}

func (r *memorySessions) Update(_ context.Context, id string, fields map[string]interface{}) error {
	now := r.store.now()
	return r.store.mutate(func(d *memoryData) error {
		for i := range d.Sessions {
			if d.Sessions[i].ID != id {
				continue
			}
			updated := d.Sessions[i]
			if err := applySessionFields(&updated, fields); err != nil {
				return err
			}
			updated.UpdatedAt = now
			updated.SyncServiceDate()
			d.Sessions[i] = updated
			return nil
		}
		return gorm.ErrRecordNotFound
	})
}

func (r *memorySessions) Delete(_ context.Context, id string) error {
	return r.store.mutate(func(d *memoryData) error {
		for i := range d.Sessions {
			if d.Sessions[i].ID == id {
				d.Sessions = append(d.Sessions[:i], d.Sessions[i+1:]...)
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
}

func (r *memorySessions) DeleteAll(_ context.Context) error {
	return r.store.mutate(func(d *memoryData) error {
		d.Sessions = nil
		return nil
	})
}

func (r *memorySessions) ReplaceAll(_ context.Context, sessions []model.ClassSession) error {
	now := r.store.now()
	next := make([]model.ClassSession, len(sessions))
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		sessions[i].CreatedAt = now
		sessions[i].UpdatedAt = now
		sessions[i].SyncServiceDate()
		next[i] = sessions[i]
	}
	return r.store.mutate(func(d *memoryData) error {
		d.Sessions = next
		return nil
	})
}

func (r *memorySessions) Revision(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.data.Revision, nil
}

// applySessionFields 按列名将部分更新应用到内存记录
func applySessionFields(s *model.ClassSession, fields map[string]interface{}) error {
	for k, v := range fields {
		if _, ok := sessionColumns[k]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidField, k)
		}
		var ok bool
		switch k {
		case "date":
			s.Date, ok = v.(string)
		case "room":
			s.Room, ok = v.(string)
		case "class_group":
			s.ClassGroup, ok = v.(string)
		case "instructor":
			s.Instructor, ok = v.(string)
		case "course_unit":
			s.CourseUnit, ok = v.(string)
		case "start_time":
			s.StartTime, ok = v.(string)
		case "end_time":
			s.EndTime, ok = v.(string)
		case "shift":
			switch shift := v.(type) {
			case model.Shift:
				s.Shift, ok = shift, true
			case string:
				s.Shift, ok = model.Shift(shift), true
			}
		case "sort_order":
			s.Order, ok = v.(int)
		case "title":
			s.Title, ok = v.(string)
		case "description":
			s.Description, ok = v.(string)
		case "active":
			s.Active, ok = v.(bool)
		}
		if !ok {
			return fmt.Errorf("%w: %s 类型错误", ErrInvalidField, k)
		}
	}
	return nil
}

// nextOrder 当前最大 ordem +1，空集合为 0
func nextOrder(sessions []model.ClassSession) int {
	next := 0
	for _, s := range sessions {
		if s.Order >= next {
			next = s.Order + 1
		}
	}
	return next
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ────────────────────── 公告 ──────────────────────

type memoryAnnouncements struct {
	store *MemoryStore
}

func (r *memoryAnnouncements) List(_ context.Context) ([]model.Announcement, error) {
	return r.store.snapshot().Announcements, nil
}

func (r *memoryAnnouncements) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.data.Announcements)), nil
}

func (r *memoryAnnouncements) Create(_ context.Context, a *model.Announcement) error {
	now := r.store.now()
	created := *a
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	err := r.store.mutate(func(d *memoryData) error {
		d.Announcements = append(d.Announcements, created)
		return nil
	})
	if err != nil {
		return err
	}
	*a = created
	return nil
}

func (r *memoryAnnouncements) Delete(_ context.Context, id string) error {
	return r.store.mutate(func(d *memoryData) error {
		for i := range d.Announcements {
			if d.Announcements[i].ID == id {
				d.Announcements = append(d.Announcements[:i], d.Announcements[i+1:]...)
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
}
