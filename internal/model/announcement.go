package model

// AnnouncementType 公告媒体类型
type AnnouncementType string

const (
	AnnouncementImage AnnouncementType = "image"
	AnnouncementVideo AnnouncementType = "video"
)

// Announcement 看板轮播公告表，对应 announcements
type Announcement struct {
	ID   string           `gorm:"type:uuid;primaryKey"      json:"id"`
	Type AnnouncementType `gorm:"type:varchar(8);not null"  json:"type"`
	Src  string           `gorm:"type:text;not null"        json:"src"`
	BaseModel
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }
