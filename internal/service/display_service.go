package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/config"
	"github.com/davimluiz/painelalunosvercel/internal/dto"
	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

// ErrBoardInvalidQuery 看板查询参数无效
var ErrBoardInvalidQuery = errors.New("看板查询参数无效")

// shiftWindows 看板上展示的各时段上课时间
var shiftWindows = map[model.Shift]string{
	model.ShiftMatutino:   "7:00 as 11:30",
	model.ShiftVespertino: "13:00 as 17:30",
	model.ShiftNoturno:    "18:00 as 22:00",
}

// ShiftWindow 时段的展示文案
func ShiftWindow(s model.Shift) string {
	return shiftWindows[s]
}

// DisplayService 看板数据
type DisplayService interface {
	// Board 指定日期（默认今天）与时段（默认按 now 计算）的分页课程卡片
	Board(ctx context.Context, now time.Time, q *dto.BoardQuery) (*dto.BoardResponse, error)
	Revision(ctx context.Context) (int64, error)
}

type displayService struct {
	repo         *repository.Repository
	itemsPerPage int
	roomPrefixRe *regexp.Regexp
	logger       *zap.Logger
}

// NewDisplayService 创建 DisplayService 实例
func NewDisplayService(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) DisplayService {
	perPage := cfg.Display.ItemsPerPage
	if perPage <= 0 {
		perPage = 8
	}
	return &displayService{
		repo:         repo,
		itemsPerPage: perPage,
		roomPrefixRe: roomPrefixPattern(cfg.Ingest.RoomPrefix),
		logger:       logger,
	}
}

func (s *displayService) Board(ctx context.Context, now time.Time, q *dto.BoardQuery) (*dto.BoardResponse, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if q.Date != "" {
		t, ok := model.ParseDate(q.Date)
		if !ok {
			return nil, fmt.Errorf("%w: data 格式应为 DD/MM/YYYY", ErrBoardInvalidQuery)
		}
		day = t
	}
	date := day.Format(model.DateLayout)

	shift := ingest.ClassifyMinutes(now.Hour()*60 + now.Minute())
	if q.Shift != "" {
		var ok bool
		if shift, ok = ingest.NormalizeShift(q.Shift); !ok {
			return nil, fmt.Errorf("%w: turno 无法识别: %q", ErrBoardInvalidQuery, q.Shift)
		}
	}

	sessions, err := s.repo.Session.ListByDateAndShift(ctx, day, shift)
	if err != nil {
		s.logger.Error("查询看板课程失败", zap.String("data", date), zap.String("turno", string(shift)), zap.Error(err))
		return nil, err
	}

	active := sessions[:0]
	for _, sess := range sessions {
		if sess.Active {
			active = append(active, sess)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].StartTime != active[j].StartTime {
			return active[i].StartTime < active[j].StartTime
		}
		return active[i].Order < active[j].Order
	})

	page := response.NewPagination(len(active), q.Page, s.itemsPerPage)
	start, end := page.Bounds()
	cards := make([]dto.BoardCard, 0, end-start)
	for _, sess := range active[start:end] {
		cards = append(cards, dto.BoardCard{
			ID:         sess.ID,
			Room:       sess.Room,
			RoomShort:  s.abbreviateRoom(sess.Room),
			ClassGroup: sess.ClassGroup,
			Instructor: sess.Instructor,
			CourseUnit: sess.CourseUnit,
			StartTime:  sess.StartTime,
			EndTime:    sess.EndTime,
		})
	}

	announcements, err := s.repo.Announcement.List(ctx)
	if err != nil {
		s.logger.Error("查询公告失败", zap.Error(err))
		return nil, err
	}
	if announcements == nil {
		announcements = []model.Announcement{}
	}

	rev, err := s.repo.Session.Revision(ctx)
	if err != nil {
		s.logger.Error("读取数据版本失败", zap.Error(err))
		return nil, err
	}

	return &dto.BoardResponse{
		Date:          date,
		Shift:         shift,
		ShiftLabel:    ShiftWindow(shift),
		Cards:         cards,
		Pagination:    page,
		Announcements: announcements,
		Revision:      rev,
		GeneratedAt:   now,
	}, nil
}

func (s *displayService) Revision(ctx context.Context) (int64, error) {
	return s.repo.Session.Revision(ctx)
}

// abbreviateRoom 去掉教室编码前缀："VTRIA-05-Lab Redes" → "Lab Redes"
func (s *displayService) abbreviateRoom(room string) string {
	if s.roomPrefixRe == nil {
		return room
	}
	short := strings.TrimSpace(s.roomPrefixRe.ReplaceAllString(room, ""))
	if short == "" {
		return room
	}
	return short
}

func roomPrefixPattern(prefix string) *regexp.Regexp {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `\d+-`)
}
