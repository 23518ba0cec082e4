package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Role 源表中的列角色
type Role int

const (
	RoleDate Role = iota
	RoleRoom
	RoleClassGroup
	RoleInstructor
	RoleCourseUnit
	RoleStart
	RoleEnd
	RoleShift

	roleCount
)

var roleLabels = [roleCount]string{
	RoleDate:       "Data",
	RoleRoom:       "Ambiente",
	RoleClassGroup: "Turma",
	RoleInstructor: "Instrutor",
	RoleCourseUnit: "Unidade Curricular",
	RoleStart:      "Inicio",
	RoleEnd:        "Fim",
	RoleShift:      "Turno",
}

// String 返回该角色在源表中的常见列名
func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleLabels[r]
}

// Roles 全部列角色
func Roles() []Role {
	out := make([]Role, roleCount)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

// requiredRoles 缺失任一即终止整个导入
var requiredRoles = []Role{RoleDate, RoleStart, RoleClassGroup}

// headerRule 列识别规则：表头（已归一化）包含 include 中任一关键字且不包含 exclude 中任何关键字
type headerRule struct {
	role    Role
	include []string
	exclude []string
}

// headerRules 按角色顺序评估；新增同义词只需在此追加
var headerRules = []headerRule{
	{role: RoleDate, include: []string{"data"}},
	{role: RoleRoom, include: []string{"ambiente", "sala"}, exclude: []string{"instrutor"}},
	{role: RoleClassGroup, include: []string{"turma", "tipo"}},
	{role: RoleInstructor, include: []string{"instrutor", "professor", "docente"}},
	{role: RoleCourseUnit, include: []string{"unidade", "curricular", "solicitante", "disciplina"}},
	{role: RoleStart, include: []string{"inicio", "entrada"}},
	{role: RoleEnd, include: []string{"fim", "termino", "saida"}},
	{role: RoleShift, include: []string{"turno", "periodo"}},
}

func (r headerRule) match(header string) bool {
	for _, ex := range r.exclude {
		if strings.Contains(header, ex) {
			return false
		}
	}
	for _, in := range r.include {
		if strings.Contains(header, in) {
			return true
		}
	}
	return false
}

// Columns 角色 → 列索引（0 起），未识别为 -1
type Columns [roleCount]int

// Index 返回角色对应列索引
func (c Columns) Index(r Role) int {
	if r < 0 || r >= roleCount {
		return -1
	}
	return c[r]
}

// Has 该角色是否已识别
func (c Columns) Has(r Role) bool { return c.Index(r) >= 0 }

// ErrHeaderResolution 表头缺少必要列
var ErrHeaderResolution = errors.New("表头缺少必要列")

// HeaderResolutionError 携带缺失角色与原始表头，便于提示用户修正文件
type HeaderResolutionError struct {
	Missing []Role
	Headers []string
}

func (e *HeaderResolutionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = r.String()
	}
	return fmt.Sprintf("%s: %s（文件表头: %s）",
		ErrHeaderResolution.Error(), strings.Join(names, ", "), strings.Join(e.Headers, " | "))
}

// Is 支持 errors.Is(err, ErrHeaderResolution)
func (e *HeaderResolutionError) Is(target error) bool {
	return target == ErrHeaderResolution
}

// ResolveHeader 根据首行表头识别各列角色
// 每个角色取第一个命中的列；必要列（Data/Inicio/Turma）缺失时返回 *HeaderResolutionError
func ResolveHeader(header []string) (Columns, error) {
	var cols Columns
	for i := range cols {
		cols[i] = -1
	}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = foldText(h)
	}

	for _, rule := range headerRules {
		for i, h := range normalized {
			if h != "" && rule.match(h) {
				cols[rule.role] = i
				break
			}
		}
	}

	var missing []Role
	for _, r := range requiredRoles {
		if !cols.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		raw := make([]string, len(header))
		copy(raw, header)
		return cols, &HeaderResolutionError{Missing: missing, Headers: raw}
	}
	return cols, nil
}
