package model

import (
	"fmt"
	"strconv"
	"time"
)

// ReflectionEntry 学生对某个学习目标的自评反思
// 从学生视角只追加不修改；Timestamp 是合并时同ID冲突的唯一裁决依据
type ReflectionEntry struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Timestamp    int64  `json:"timestamp"` // 创建时间，毫秒
	Content      string `json:"content"`
	MasteryLevel int    `json:"masteryLevel"` // 掌握程度 1-4
	PhotoBase64  string `json:"photoBase64,omitempty"`
	AISuggestion string `json:"aiSuggestion,omitempty"`
}

// NewEntityID 实体ID采用毫秒时间戳字符串，近似唯一
func NewEntityID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// NewReflectionID 反思ID由创建时间和作者ID拼成，同一作者同一毫秒内唯一
func NewReflectionID(userID string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), userID)
}
