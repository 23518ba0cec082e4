package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"criada_em"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"atualizada_em"`
}

// StoreRevision 数据版本表，对应 store_revisions（单行计数器）
// 每次课表或公告写入时在同一事务内递增，展示端据此判断是否需要刷新
type StoreRevision struct {
	Singleton bool      `gorm:"primaryKey;default:true"            json:"-"`
	Revision  int64     `gorm:"not null;default:0"                 json:"revision"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (StoreRevision) TableName() string { return "store_revisions" }
