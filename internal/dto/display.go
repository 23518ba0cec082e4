package dto

import (
	"time"

	"github.com/davimluiz/painelalunosvercel/internal/model"
	"github.com/davimluiz/painelalunosvercel/pkg/response"
)

// ── 看板 ──

// BoardQuery 看板查询，参数均可选
type BoardQuery struct {
	Shift string `form:"turno"` // 为空时按当前时间计算
	Date  string `form:"data"`  // DD/MM/YYYY，为空时取今天
	Page  int    `form:"page"`
}

// BoardCard 看板上的一张课程卡片
type BoardCard struct {
	ID         string `json:"id"`
	Room       string `json:"sala"`
	RoomShort  string `json:"sala_curta"`
	ClassGroup string `json:"turma"`
	Instructor string `json:"instrutor"`
	CourseUnit string `json:"unidade_curricular"`
	StartTime  string `json:"inicio"`
	EndTime    string `json:"fim"`
}

// BoardResponse 看板数据
type BoardResponse struct {
	Date          string               `json:"data"`
	Shift         model.Shift          `json:"turno"`
	ShiftLabel    string               `json:"horario_turno"`
	Cards         []BoardCard          `json:"aulas"`
	Pagination    response.Pagination  `json:"pagination"`
	Announcements []model.Announcement `json:"anuncios"`
	Revision      int64                `json:"revision"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// RevisionResponse 数据版本
type RevisionResponse struct {
	Revision int64 `json:"revision"`
}
