package ingest

import (
	"testing"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

func TestClassifyShift_Boundaries(t *testing.T) {
	cases := []struct {
		in   string
		want model.Shift
	}{
		{"05:59", model.ShiftMatutino},
		{"06:00", model.ShiftMatutino},
		{"11:30", model.ShiftMatutino},
		{"11:31", model.ShiftVespertino},
		{"17:30", model.ShiftVespertino},
		{"17:31", model.ShiftNoturno},
		{"22:00", model.ShiftNoturno},
		{"22:01", model.ShiftNoturno},
		{"8:00", model.ShiftMatutino},
		{"13:00", model.ShiftVespertino},
		{"00:00", model.ShiftMatutino},
	}
	for _, tc := range cases {
		if got := ClassifyShift(tc.in); got != tc.want {
			t.Errorf("ClassifyShift(%q) 期望=%s，实际=%s", tc.in, tc.want, got)
		}
	}
}

func TestClassifyShift_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "xx:10", "-1:00"} {
		if got := ClassifyShift(in); got != model.ShiftMatutino {
			t.Errorf("ClassifyShift(%q) 期望默认 Matutino，实际=%s", in, got)
		}
	}
	// 分钟无法解析时按 0 处理
	if got := ClassifyShift("18:xx"); got != model.ShiftNoturno {
		t.Errorf("ClassifyShift(18:xx) 期望 Noturno，实际=%s", got)
	}
	if got := ClassifyShift("11:"); got != model.ShiftMatutino {
		t.Errorf("ClassifyShift(11:) 期望 Matutino，实际=%s", got)
	}
}

func TestClassifyMinutes_Total(t *testing.T) {
	for m := 0; m < 24*60; m++ {
		if s := ClassifyMinutes(m); !s.Valid() {
			t.Fatalf("分钟 %d 得到非法时段 %q", m, s)
		}
	}
}

func TestNormalizeShift(t *testing.T) {
	cases := map[string]model.Shift{
		"Manhã":          model.ShiftMatutino,
		"MANHA":          model.ShiftMatutino,
		"matutino":       model.ShiftMatutino,
		"Tarde":          model.ShiftVespertino,
		" Vespertino ":   model.ShiftVespertino,
		"noite":          model.ShiftNoturno,
		"\"Noturno\"":    model.ShiftNoturno,
		"Turno da manhã": model.ShiftMatutino,
	}
	for in, want := range cases {
		got, ok := NormalizeShift(in)
		if !ok || got != want {
			t.Errorf("NormalizeShift(%q) 期望=%s，实际=%s ok=%v", in, want, got, ok)
		}
	}

	if _, ok := NormalizeShift("integral"); ok {
		t.Error("未知时段不应识别成功")
	}
	if got := ParseShiftOrDefault("integral"); got != model.ShiftMatutino {
		t.Errorf("未知时段应默认 Matutino，实际=%s", got)
	}
}
