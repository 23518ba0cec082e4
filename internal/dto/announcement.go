package dto

// ── 公告 ──

// CreateAnnouncementRequest 新增公告；type 为空时按 src 扩展名推断
type CreateAnnouncementRequest struct {
	Src  string `json:"src"  binding:"required"`
	Type string `json:"type" binding:"omitempty,oneof=image video"`
}
