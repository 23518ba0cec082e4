package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

// DefaultRoomPrefix 教室编码前缀（如 "VTRIA-05-Lab"）
const DefaultRoomPrefix = "VTRIA-"

// 电子表格日期序列号以 1899-12-30 为零点（兼容 1900 闰年 bug）
var spreadsheetEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// 序列号上限：9999-12-31
const maxSpreadsheetSerial = 2958465

var (
	bracketedRe   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	workloadRe    = regexp.MustCompile(`(?i)[\s\-|,;:]*\bch\s*:.*$`)
	clockTimeRe   = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	trailingSepRe = regexp.MustCompile(`[\s\-|,;:]+$`)
)

// Normalizer 将单行原始数据转为 0~N 条课程场次草稿
type Normalizer struct {
	roomPrefix string
}

// NewNormalizer 创建行规范化器，roomPrefix 为空时不做 sala/instrutor 纠正
func NewNormalizer(roomPrefix string) *Normalizer {
	return &Normalizer{roomPrefix: strings.ToUpper(strings.TrimSpace(roomPrefix))}
}

// NormalizeRow 规范化一行数据
//
// 返回的草稿未设置 ID 与 Order；缺少 Data/Inicio/Turma 的草稿被直接丢弃。
func (n *Normalizer) NormalizeRow(row []string, cols Columns) []model.ClassSession {
	cell := func(r Role) string {
		idx := cols.Index(r)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return cleanCell(row[idx])
	}

	date := formatDateCell(cell(RoleDate))
	room := cell(RoleRoom)
	group := cell(RoleClassGroup)
	instructor := cell(RoleInstructor)
	unit := CleanCourseUnit(cell(RoleCourseUnit))

	// 源数据偶发 sala 与 instrutor 两列互换
	if n.roomPrefix != "" && !n.hasRoomPrefix(room) && n.hasRoomPrefix(instructor) {
		room, instructor = instructor, room
	}

	if date == "" || group == "" {
		return nil
	}

	starts := splitTimes(cell(RoleStart))
	ends := splitTimes(cell(RoleEnd))
	if len(starts) == 0 {
		return nil
	}

	var labeled model.Shift
	if cols.Has(RoleShift) {
		if s, ok := NormalizeShift(cell(RoleShift)); ok {
			labeled = s
		}
	}

	draft := func(start, end string) model.ClassSession {
		shift := labeled
		if shift == "" {
			shift = ClassifyShift(start)
		}
		return model.ClassSession{
			Date:        date,
			Room:        room,
			ClassGroup:  group,
			Instructor:  instructor,
			CourseUnit:  unit,
			StartTime:   start,
			EndTime:     end,
			Shift:       shift,
			Title:       group,
			Description: unit,
			Active:      true,
		}
	}

	if len(starts) > 1 && len(starts) == len(ends) {
		out := make([]model.ClassSession, 0, len(starts))
		for i := range starts {
			out = append(out, draft(starts[i], ends[i]))
		}
		return out
	}

	end := ""
	if len(ends) > 0 {
		end = ends[0]
	}
	return []model.ClassSession{draft(starts[0], end)}
}

func (n *Normalizer) hasRoomPrefix(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), n.roomPrefix)
}

// CleanCourseUnit 去除课程单元中的课时标注，如 "Redes (CH: 40h)"、"Redes - CH: 40h"
func CleanCourseUnit(s string) string {
	s = bracketedRe.ReplaceAllString(s, " ")
	s = workloadRe.ReplaceAllString(s, "")
	s = collapseSpaces(s)
	return trailingSepRe.ReplaceAllString(s, "")
}

// splitTimes 按空白拆分多时段并统一为 HH:MM
func splitTimes(s string) []string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = formatTimeCell(f)
	}
	return fields
}

// formatDateCell 数字单元格按电子表格序列号转为 DD/MM/YYYY（UTC），其余原样返回
func formatDateCell(s string) string {
	if s == "" || strings.Contains(s, "/") {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v <= 0 || v > maxSpreadsheetSerial {
		return s
	}
	ms := math.Round(v * 86400 * 1000)
	t := spreadsheetEpoch.Add(time.Duration(ms) * time.Millisecond)
	return t.Format("02/01/2006")
}

// NormalizeClock 将 "8:00"、"08:00:00" 统一为 "08:00"；不是合法时钟时间时 ok=false
func NormalizeClock(s string) (string, bool) {
	m := clockTimeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, mm), true
}

// formatTimeCell 统一时间写法："8:00" → "08:00"，"08:00:00" → "08:00"，
// 电子表格时间小数（0.3333）→ "08:00"；无法识别的内容原样返回
func formatTimeCell(s string) string {
	if m := clockTimeRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:%s", h, m[2])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v >= 1 {
		return s
	}
	total := int(math.Round(v*24*60)) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
