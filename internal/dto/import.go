package dto

import (
	"time"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

// ── 课表导入 ──

// ImportResponse 导入结果
type ImportResponse struct {
	ImportedCount int                  `json:"imported_count"`
	Source        string               `json:"source"`
	Sessions      []model.ClassSession `json:"aulas"`
	// Restored 数据源不可用时从缓存恢复了上一次导入结果
	Restored bool   `json:"restored,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// ImportStatusResponse 导入状态
type ImportStatusResponse struct {
	Running       bool       `json:"running"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastSource    string     `json:"last_source,omitempty"`
	LastCount     int        `json:"last_count"`
	LastError     string     `json:"last_error,omitempty"`
	SourceURL     string     `json:"source_url,omitempty"`
	SyncInterval  string     `json:"sync_interval,omitempty"`
	NextSyncAfter *time.Time `json:"next_sync_after,omitempty"`
}
