package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	mu         sync.Mutex
	sessions   []model.ClassSession
	revision   int64
	nextID     int
	replaceErr error
	replaced   int // ReplaceAll 调用次数
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{}
}

func (m *mockSessionRepo) assignID(s *model.ClassSession) {
	if s.ID == "" {
		m.nextID++
		s.ID = fmt.Sprintf("sess-%d", m.nextID)
	}
}

func (m *mockSessionRepo) List(_ context.Context) ([]model.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.ClassSession(nil), m.sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockSessionRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ClassSession
	for _, s := range m.sessions {
		d, ok := model.ParseDate(s.Date)
		if !ok || d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessionRepo) ListByDateAndShift(_ context.Context, day time.Time, shift model.Shift) ([]model.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ClassSession
	for _, s := range m.sessions {
		d, ok := model.ParseDate(s.Date)
		if ok && d.Equal(day) && s.Shift == shift {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.ClassSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignID(s)
	s.Order = len(m.sessions)
	m.sessions = append(m.sessions, *s)
	m.revision++
	return nil
}

func (m *mockSessionRepo) Update(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID != id {
			continue
		}
		s := &m.sessions[i]
		for k, v := range fields {
			switch k {
			case "date":
				s.Date = v.(string)
			case "room":
				s.Room = v.(string)
			case "class_group":
				s.ClassGroup = v.(string)
			case "instructor":
				s.Instructor = v.(string)
			case "course_unit":
				s.CourseUnit = v.(string)
			case "start_time":
				s.StartTime = v.(string)
			case "end_time":
				s.EndTime = v.(string)
			case "shift":
				s.Shift = v.(model.Shift)
			case "title":
				s.Title = v.(string)
			case "description":
				s.Description = v.(string)
			case "active":
				s.Active = v.(bool)
			default:
				return repository.ErrInvalidField
			}
		}
		m.revision++
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			m.revision++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	m.revision++
	return nil
}

func (m *mockSessionRepo) ReplaceAll(_ context.Context, sessions []model.ClassSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	for i := range sessions {
		m.assignID(&sessions[i])
	}
	m.sessions = append([]model.ClassSession(nil), sessions...)
	m.revision++
	m.replaced++
	return nil
}

func (m *mockSessionRepo) Revision(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision, nil
}

// ── Mock AnnouncementRepository ──

type mockAnnouncementRepo struct {
	items  []model.Announcement
	nextID int
}

func newMockAnnouncementRepo() *mockAnnouncementRepo {
	return &mockAnnouncementRepo{}
}

func (m *mockAnnouncementRepo) List(_ context.Context) ([]model.Announcement, error) {
	return append([]model.Announcement(nil), m.items...), nil
}

func (m *mockAnnouncementRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.items)), nil
}

func (m *mockAnnouncementRepo) Create(_ context.Context, a *model.Announcement) error {
	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("ann-%d", m.nextID)
	}
	m.items = append(m.items, *a)
	return nil
}

func (m *mockAnnouncementRepo) Delete(_ context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock 外部依赖 ──

type mockFetcher struct {
	src   *ingest.Source
	err   error
	calls int
	// block 非 nil 时 Fetch 阻塞直到关闭，用于模拟长时间导入
	block chan struct{}
}

func (m *mockFetcher) Fetch(ctx context.Context, _ string) (*ingest.Source, error) {
	m.calls++
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.src, nil
}

type mockLock struct {
	held     bool
	err      error
	released int
}

func (m *mockLock) AcquireLock(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	if m.held {
		return "", false, nil
	}
	m.held = true
	return "token-1", true, nil
}

func (m *mockLock) ReleaseLock(_ context.Context, _ string, token string) error {
	if token == "token-1" {
		m.held = false
		m.released++
	}
	return nil
}

type mockCache struct {
	payload []byte
	saves   int
}

func (m *mockCache) SaveLastImport(_ context.Context, payload []byte) error {
	m.payload = payload
	m.saves++
	return nil
}

func (m *mockCache) LoadLastImport(_ context.Context) ([]byte, error) {
	return m.payload, nil
}

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.tokens[jti]
	return ok, nil
}

// ── 测试辅助 ──

func newMockRepository() (*repository.Repository, *mockSessionRepo, *mockAnnouncementRepo) {
	sessions := newMockSessionRepo()
	anns := newMockAnnouncementRepo()
	return &repository.Repository{Session: sessions, Announcement: anns}, sessions, anns
}
