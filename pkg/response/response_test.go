package response

import "testing"

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total, page, size   int
		wantPage, wantPages int
		wantStart, wantEnd  int
	}{
		{total: 0, page: 1, size: 8, wantPage: 1, wantPages: 0, wantStart: 0, wantEnd: 0},
		{total: 8, page: 1, size: 8, wantPage: 1, wantPages: 1, wantStart: 0, wantEnd: 8},
		{total: 9, page: 2, size: 8, wantPage: 2, wantPages: 2, wantStart: 8, wantEnd: 9},
		{total: 20, page: 9, size: 8, wantPage: 3, wantPages: 3, wantStart: 16, wantEnd: 20},
		{total: 5, page: 0, size: 8, wantPage: 1, wantPages: 1, wantStart: 0, wantEnd: 5},
	}
	for _, tt := range tests {
		p := NewPagination(tt.total, tt.page, tt.size)
		if p.Page != tt.wantPage || p.TotalPages != tt.wantPages {
			t.Errorf("NewPagination(%d,%d,%d) 期望 page=%d pages=%d，实际 page=%d pages=%d",
				tt.total, tt.page, tt.size, tt.wantPage, tt.wantPages, p.Page, p.TotalPages)
		}
		start, end := p.Bounds()
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("Bounds 期望 [%d,%d)，实际 [%d,%d)", tt.wantStart, tt.wantEnd, start, end)
		}
	}
}
