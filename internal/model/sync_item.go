package model

import "encoding/json"

// SyncItemType 离线队列条目类型，取值沿用原始线格式
type SyncItemType string

const (
	SyncItemReflection SyncItemType = "REFLECTION"
	SyncItemGoal       SyncItemType = "GOAL"
	SyncItemUser       SyncItemType = "USER"
)

// SyncQueueItem 离线变更队列条目
// 主键是自增序号：入队时间戳只作为合并排序的元数据保留，
// 同一毫秒入队的两条记录不会共享出队键
type SyncQueueItem struct {
	Seq         uint64          `gorm:"primaryKey;autoIncrement" json:"seq"`
	Type        SyncItemType    `gorm:"size:16;index" json:"type"`
	ClassroomID string          `gorm:"size:32;index" json:"classroomId"`
	Payload     json.RawMessage `gorm:"type:text" json:"payload"`
	Timestamp   int64           `json:"timestamp"` // 入队时间，毫秒
}

func (SyncQueueItem) TableName() string {
	return "sync_queue"
}

// ReflectionPayload REFLECTION 类型条目的负载
type ReflectionPayload struct {
	GoalID     string          `json:"goalId"`
	Reflection ReflectionEntry `json:"reflection"`
}
