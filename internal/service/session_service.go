package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// ── 课程场次模块业务错误 ──

var (
	ErrSessionNotFound = errors.New("课程场次不存在")
	ErrSessionInvalid  = errors.New("课程场次数据无效")
)

// SessionService 课程场次管理（后台手工维护）
type SessionService interface {
	// List 全部场次，或 [start, end] 日期区间内的场次；按日期、开始时间排序
	List(ctx context.Context, q *dto.ListSessionsQuery) (*dto.SessionListResponse, error)
	Get(ctx context.Context, id string) (*model.ClassSession, error)
	// Create 新增场次；turno 缺失或无法识别时按开始时间计算
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*model.ClassSession, error)
	// Update 部分更新；修改 inicio 且未指定 turno 时重新计算时段
	Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*model.ClassSession, error)
	Delete(ctx context.Context, id string) error
	// Clear 清空全部场次
	Clear(ctx context.Context) error
}

type sessionService struct {
	repo     *repository.Repository
	notifier *Notifier
	logger   *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, notifier *Notifier, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, notifier: notifier, logger: logger}
}

func (s *sessionService) List(ctx context.Context, q *dto.ListSessionsQuery) (*dto.SessionListResponse, error) {
	from, to, ranged, err := q.Range()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	var sessions []model.ClassSession
	if ranged {
		sessions, err = s.repo.Session.ListByDateRange(ctx, from, to)
	} else {
		sessions, err = s.repo.Session.List(ctx)
	}
	if err != nil {
		s.logger.Error("查询课程场次失败", zap.Error(err))
		return nil, err
	}
	sortByDateAndStart(sessions)

	rev, err := s.repo.Session.Revision(ctx)
	if err != nil {
		s.logger.Error("读取数据版本失败", zap.Error(err))
		return nil, err
	}

	if sessions == nil {
		sessions = []model.ClassSession{}
	}
	return &dto.SessionListResponse{Sessions: sessions, Total: len(sessions), Revision: rev}, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*model.ClassSession, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课程场次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*model.ClassSession, error) {
	date, err := normalizeSessionDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, ok := ingest.NormalizeClock(req.StartTime)
	if !ok {
		return nil, fmt.Errorf("%w: inicio 格式应为 HH:MM", ErrSessionInvalid)
	}
	end := ""
	if strings.TrimSpace(req.EndTime) != "" {
		if end, ok = ingest.NormalizeClock(req.EndTime); !ok {
			return nil, fmt.Errorf("%w: fim 格式应为 HH:MM", ErrSessionInvalid)
		}
	}
	group := strings.TrimSpace(req.ClassGroup)
	if group == "" {
		return nil, fmt.Errorf("%w: turma 不能为空", ErrSessionInvalid)
	}

	shift, ok := ingest.NormalizeShift(req.Shift)
	if !ok {
		shift = ingest.ClassifyShift(start)
	}

	session := &model.ClassSession{
		Date:        date,
		Room:        strings.TrimSpace(req.Room),
		ClassGroup:  group,
		Instructor:  strings.TrimSpace(req.Instructor),
		CourseUnit:  strings.TrimSpace(req.CourseUnit),
		StartTime:   start,
		EndTime:     end,
		Shift:       shift,
		Title:       defaultString(strings.TrimSpace(req.Title), group),
		Description: defaultString(strings.TrimSpace(req.Description), strings.TrimSpace(req.CourseUnit)),
		Active:      req.Active == nil || *req.Active,
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.logger.Error("创建课程场次失败", zap.Error(err))
		return nil, err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)

	s.logger.Info("新增课程场次",
		zap.String("id", session.ID),
		zap.String("data", session.Date),
		zap.String("turma", session.ClassGroup),
	)
	return session, nil
}

func (s *sessionService) Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*model.ClassSession, error) {
	fields := make(map[string]interface{})

	if req.Date != nil {
		date, err := normalizeSessionDate(*req.Date)
		if err != nil {
			return nil, err
		}
		fields["date"] = date
	}
	if req.ClassGroup != nil {
		group := strings.TrimSpace(*req.ClassGroup)
		if group == "" {
			return nil, fmt.Errorf("%w: turma 不能为空", ErrSessionInvalid)
		}
		fields["class_group"] = group
	}
	if req.StartTime != nil {
		start, ok := ingest.NormalizeClock(*req.StartTime)
		if !ok {
			return nil, fmt.Errorf("%w: inicio 格式应为 HH:MM", ErrSessionInvalid)
		}
		fields["start_time"] = start
		if req.Shift == nil {
			fields["shift"] = ingest.ClassifyShift(start)
		}
	}
	if req.EndTime != nil {
		end := strings.TrimSpace(*req.EndTime)
		if end != "" {
			var ok bool
			if end, ok = ingest.NormalizeClock(end); !ok {
				return nil, fmt.Errorf("%w: fim 格式应为 HH:MM", ErrSessionInvalid)
			}
		}
		fields["end_time"] = end
	}
	if req.Shift != nil {
		shift, ok := ingest.NormalizeShift(*req.Shift)
		if !ok {
			return nil, fmt.Errorf("%w: turno 无法识别: %q", ErrSessionInvalid, *req.Shift)
		}
		fields["shift"] = shift
	}
	setTrimmed(fields, "room", req.Room)
	setTrimmed(fields, "instructor", req.Instructor)
	setTrimmed(fields, "course_unit", req.CourseUnit)
	setTrimmed(fields, "title", req.Title)
	setTrimmed(fields, "description", req.Description)
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.repo.Session.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("更新课程场次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)

	return s.Get(ctx, id)
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Session.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("删除课程场次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)
	return nil
}

func (s *sessionService) Clear(ctx context.Context) error {
	if err := s.repo.Session.DeleteAll(ctx); err != nil {
		s.logger.Error("清空课程场次失败", zap.Error(err))
		return err
	}
	publishRevision(ctx, s.repo, s.notifier, s.logger)
	s.logger.Info("已清空全部课程场次")
	return nil
}

// ── 辅助函数 ──

// normalizeSessionDate 接受 DD/MM/YYYY 或 YYYY-MM-DD（后台日期控件），统一为 DD/MM/YYYY
func normalizeSessionDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dto.QueryDateLayout, raw); err == nil {
		return t.Format(model.DateLayout), nil
	}
	if t, ok := model.ParseDate(raw); ok {
		return t.Format(model.DateLayout), nil
	}
	return "", fmt.Errorf("%w: data 格式应为 DD/MM/YYYY", ErrSessionInvalid)
}

// sortByDateAndStart 按日期、开始时间排序，日期非法的排在最后
func sortByDateAndStart(sessions []model.ClassSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		di, okI := model.ParseDate(sessions[i].Date)
		dj, okJ := model.ParseDate(sessions[j].Date)
		if okI != okJ {
			return okI
		}
		if okI && !di.Equal(dj) {
			return di.Before(dj)
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})
}

func setTrimmed(fields map[string]interface{}, column string, v *string) {
	if v != nil {
		fields[column] = strings.TrimSpace(*v)
	}
}

func defaultString(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
