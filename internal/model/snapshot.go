package model

import "time"

// CachedSnapshot 本地持久化的最近一次已知完整状态
// 远端不可达时作为回退数据源，跨进程重启保留
type CachedSnapshot struct {
	ClassroomID string    `gorm:"primaryKey;size:32" json:"classroomId"`
	Payload     string    `gorm:"type:text" json:"payload"` // ClassroomState 的JSON序列化
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (CachedSnapshot) TableName() string {
	return "cached_snapshots"
}
