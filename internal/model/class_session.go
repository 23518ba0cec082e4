package model

import (
	"strings"
	"time"
)

// Shift 上课时段（turno）
type Shift string

const (
	ShiftMatutino   Shift = "Matutino"
	ShiftVespertino Shift = "Vespertino"
	ShiftNoturno    Shift = "Noturno"
)

// Shifts 全部时段，按一天中的先后排列
var Shifts = []Shift{ShiftMatutino, ShiftVespertino, ShiftNoturno}

// Valid 是否为三个合法时段之一
func (s Shift) Valid() bool {
	switch s {
	case ShiftMatutino, ShiftVespertino, ShiftNoturno:
		return true
	}
	return false
}

// ClassSession 课程场次表，对应 class_sessions
// JSON 字段名沿用看板前端既有约定（data/sala/turma/...）
type ClassSession struct {
	ID          string `gorm:"type:uuid;primaryKey"       json:"id"`
	Date        string `gorm:"type:text;not null"         json:"data"` // DD/MM/YYYY，导入时原样保存
	Room        string `gorm:"type:text;not null"         json:"sala"`
	ClassGroup  string `gorm:"type:text;not null"         json:"turma"`
	Instructor  string `gorm:"type:text;not null"         json:"instrutor"`
	CourseUnit  string `gorm:"type:text;not null"         json:"unidade_curricular"`
	StartTime   string `gorm:"type:text;not null"         json:"inicio"` // HH:MM
	EndTime     string `gorm:"type:text;not null"         json:"fim"`
	Shift       Shift  `gorm:"type:varchar(12);not null"  json:"turno"`
	Order       int    `gorm:"column:sort_order;not null" json:"ordem"`
	Title       string `gorm:"type:text"                  json:"titulo,omitempty"`
	Description string `gorm:"type:text"                  json:"descricao,omitempty"`
	Active      bool   `gorm:"not null;default:true"      json:"ativa"`

	// ServiceDate 由 Date 解析得到，仅用于按日期区间查询；Date 非法时为空
	ServiceDate *time.Time `gorm:"type:date;index" json:"-"`
	BaseModel
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }

// DateLayout data 字段格式（pt-BR）
const DateLayout = "02/01/2006"

// 解析时日、月允许一位数字（1/3/2024）
const parseDateLayout = "2/1/2006"

// ParseDate 解析 DD/MM/YYYY（日、月可不补零），失败时 ok=false
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(parseDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SyncServiceDate 根据 Date 重新计算 ServiceDate
func (s *ClassSession) SyncServiceDate() {
	if t, ok := ParseDate(s.Date); ok {
		s.ServiceDate = &t
		return
	}
	s.ServiceDate = nil
}
