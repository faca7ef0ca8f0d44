package model

import "time"

// RecentClassroom 最近打开过的班级码列表
type RecentClassroom struct {
	Code       string    `gorm:"primaryKey;size:32" json:"code"`
	LastOpened time.Time `json:"lastOpened"`
}

func (RecentClassroom) TableName() string {
	return "recent_classrooms"
}

// AppSetting 简单KV设置表，目前只存当前班级码
type AppSetting struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (AppSetting) TableName() string {
	return "app_settings"
}

// SettingCurrentClassroom 当前班级码的设置键
const SettingCurrentClassroom = "current_classroom_id"
