package ingest

import (
	"strconv"
	"strings"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

// 时段边界（一天中的分钟数，闭区间）
const (
	matutinoStart = 6 * 60     // 06:00
	matutinoEnd   = 11*60 + 30 // 11:30
	vespertinoEnd = 17*60 + 30 // 17:30
	noturnoEnd    = 22 * 60    // 22:00

	vespertinoStart = matutinoEnd + 1
	noturnoStart    = vespertinoEnd + 1
)

// ClassifyShift 按开始时间（H:MM / HH:MM）计算时段
//
// 区间：[06:00,11:30] 早班，[11:31,17:30] 下午班，[17:31,22:00] 晚班；
// 06:00 之前归早班，22:00 之后归晚班。无法解析的输入一律归早班。
func ClassifyShift(hhmm string) model.Shift {
	minutes, ok := minutesOfDay(hhmm)
	if !ok {
		return model.ShiftMatutino
	}
	return ClassifyMinutes(minutes)
}

// ClassifyMinutes 按一天中的分钟数计算时段
func ClassifyMinutes(minutes int) model.Shift {
	switch {
	case minutes >= matutinoStart && minutes <= matutinoEnd:
		return model.ShiftMatutino
	case minutes >= vespertinoStart && minutes <= vespertinoEnd:
		return model.ShiftVespertino
	case minutes >= noturnoStart && minutes <= noturnoEnd:
		return model.ShiftNoturno
	case minutes < matutinoStart:
		return model.ShiftMatutino
	default:
		return model.ShiftNoturno
	}
}

// minutesOfDay 解析 "H:MM"，分钟部分无法解析时按 0 处理
func minutesOfDay(hhmm string) (int, bool) {
	s := strings.TrimSpace(hhmm)
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hours < 0 {
		return 0, false
	}
	mins, err := strconv.Atoi(leadingDigits(m))
	if err != nil {
		mins = 0
	}
	return hours*60 + mins, true
}

// leadingDigits 截取开头的数字部分（"30:00" → "30"，"4Sh" → "4"）
func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// shiftSynonyms 数据源中已标注的时段写法 → 标准时段
var shiftSynonyms = map[string]model.Shift{
	"matutino":   model.ShiftMatutino,
	"manha":      model.ShiftMatutino,
	"matinal":    model.ShiftMatutino,
	"m":          model.ShiftMatutino,
	"vespertino": model.ShiftVespertino,
	"tarde":      model.ShiftVespertino,
	"v":          model.ShiftVespertino,
	"t":          model.ShiftVespertino,
	"noturno":    model.ShiftNoturno,
	"noite":      model.ShiftNoturno,
	"n":          model.ShiftNoturno,
}

// NormalizeShift 将已标注的时段文本（manhã/tarde/noite/matutino...）映射为标准时段
// 无法识别时 ok=false
func NormalizeShift(label string) (model.Shift, bool) {
	key := foldText(label)
	if key == "" {
		return "", false
	}
	if s, ok := shiftSynonyms[key]; ok {
		return s, true
	}
	// "Turno da manhã"、"Noite (EAD)" 等带修饰的写法
	for _, word := range strings.FieldsFunc(key, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if len(word) < 4 {
			continue
		}
		if s, ok := shiftSynonyms[word]; ok {
			return s, true
		}
	}
	return "", false
}

// ParseShiftOrDefault 同 NormalizeShift，无法识别时返回早班
func ParseShiftOrDefault(label string) model.Shift {
	if s, ok := NormalizeShift(label); ok {
		return s
	}
	return model.ShiftMatutino
}
