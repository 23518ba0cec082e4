package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/davimluiz/painelalunosvercel/internal/ingest"
	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("暂无课程数据可导出")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// exportHeader 与导入识别的表头一致，导出文件可直接重新导入
var exportHeader = []string{"Data", "Ambiente", "Turma", "Instrutor", "Unidade Curricular", "Inicio", "Fim", "Turno"}

// 无结束时间的场次在日历中的默认时长
const defaultEventDuration = time.Hour

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportXLSX 导出全部场次为 Excel
	ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportICS 导出全部场次为 iCalendar，日期或时间非法的场次跳过
	ExportICS(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: time.Local, now: time.Now, logger: logger}
}

func (s *exportService) load(ctx context.Context) ([]model.ClassSession, error) {
	sessions, err := s.repo.Session.List(ctx)
	if err != nil {
		s.logger.Error("查询课程场次失败", zap.Error(err))
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrExportEmpty
	}
	sortByDateAndStart(sessions)
	return sessions, nil
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Aulas"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	widths := []float64{12, 24, 28, 24, 36, 8, 8, 12}
	for i, w := range widths {
		col := colName(i)
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#004A8D"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		s.logger.Error("写入表头失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	_ = f.SetCellStyle(sheetName, "A1", cell(colName(len(exportHeader)-1), 1), headerStyle)

	for i, sess := range sessions {
		row := []interface{}{
			sess.Date, sess.Room, sess.ClassGroup, sess.Instructor,
			sess.CourseUnit, sess.StartTime, sess.EndTime, string(sess.Shift),
		}
		if err := f.SetSheetRow(sheetName, cell("A", i+2), &row); err != nil {
			s.logger.Error("写入数据行失败", zap.Int("row", i+2), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("aulas_%s.xlsx", s.now().Format("2006-01-02"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context) (*bytes.Buffer, string, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//painel-aulas//agenda//PT")

	stamp := s.now()
	added := 0
	for _, sess := range sessions {
		start, end, ok := s.sessionBounds(sess)
		if !ok {
			continue
		}
		ev := cal.AddEvent(sess.ID + "@painel-aulas")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(eventSummary(sess))
		if sess.Room != "" {
			ev.SetLocation(sess.Room)
		}
		if sess.Instructor != "" {
			ev.SetDescription("Instrutor: " + sess.Instructor)
		}
		added++
	}
	if added == 0 {
		return nil, "", ErrExportEmpty
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("aulas_%s.ics", s.now().Format("2006-01-02"))
	return buf, filename, nil
}

// sessionBounds 将 data + inicio/fim 转为本地时间；fim 缺失或早于 inicio 时取默认时长
func (s *exportService) sessionBounds(sess model.ClassSession) (time.Time, time.Time, bool) {
	day, ok := model.ParseDate(sess.Date)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, ok := clockOn(day, sess.StartTime, s.loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := clockOn(day, sess.EndTime, s.loc)
	if !ok || !end.After(start) {
		end = start.Add(defaultEventDuration)
	}
	return start, end, true
}

func clockOn(day time.Time, hhmm string, loc *time.Location) (time.Time, bool) {
	norm, ok := ingest.NormalizeClock(hhmm)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", norm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

func eventSummary(sess model.ClassSession) string {
	if sess.CourseUnit == "" {
		return sess.ClassGroup
	}
	return sess.ClassGroup + " - " + sess.CourseUnit
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
