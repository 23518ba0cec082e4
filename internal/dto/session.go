package dto

import (
	"fmt"
	"time"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

// ── 课程场次 ──

// QueryDateLayout 查询参数日期格式
const QueryDateLayout = "2006-01-02"

// ListSessionsQuery 场次列表查询（后台日期区间筛选，均可选）
type ListSessionsQuery struct {
	Start string `form:"start"` // YYYY-MM-DD
	End   string `form:"end"`   // YYYY-MM-DD
}

// Range 解析日期区间；只给一端时另一端取同一天
func (q *ListSessionsQuery) Range() (from, to time.Time, ok bool, err error) {
	if q.Start == "" && q.End == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	start, end := q.Start, q.End
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}
	if from, err = time.Parse(QueryDateLayout, start); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("start 格式应为 YYYY-MM-DD")
	}
	if to, err = time.Parse(QueryDateLayout, end); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("end 格式应为 YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("end 不能早于 start")
	}
	return from, to, true, nil
}

// CreateSessionRequest 手动新增场次
type CreateSessionRequest struct {
	Date        string `json:"data"               binding:"required"`
	Room        string `json:"sala"               binding:"max=200"`
	ClassGroup  string `json:"turma"              binding:"required,max=200"`
	Instructor  string `json:"instrutor"          binding:"max=200"`
	CourseUnit  string `json:"unidade_curricular" binding:"max=300"`
	StartTime   string `json:"inicio"             binding:"required"`
	EndTime     string `json:"fim"`
	Shift       string `json:"turno"`
	Title       string `json:"titulo"             binding:"max=200"`
	Description string `json:"descricao"          binding:"max=300"`
	Active      *bool  `json:"ativa"`
}

// UpdateSessionRequest 部分更新场次，未提供的字段保持不变
type UpdateSessionRequest struct {
	Date        *string `json:"data"`
	Room        *string `json:"sala"               binding:"omitempty,max=200"`
	ClassGroup  *string `json:"turma"              binding:"omitempty,max=200"`
	Instructor  *string `json:"instrutor"          binding:"omitempty,max=200"`
	CourseUnit  *string `json:"unidade_curricular" binding:"omitempty,max=300"`
	StartTime   *string `json:"inicio"`
	EndTime     *string `json:"fim"`
	Shift       *string `json:"turno"`
	Title       *string `json:"titulo"             binding:"omitempty,max=200"`
	Description *string `json:"descricao"          binding:"omitempty,max=300"`
	Active      *bool   `json:"ativa"`
}

// SessionListResponse 场次列表
type SessionListResponse struct {
	Sessions []model.ClassSession `json:"aulas"`
	Total    int                  `json:"total"`
	Revision int64                `json:"revision"`
}
