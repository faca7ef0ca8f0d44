package model

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ClassroomState 单个班级的完整状态快照
// 远端 KV 存储与本地缓存均以该结构整体序列化传输，不做增量同步
type ClassroomState struct {
	Goals       []LearningGoal `json:"goals"`
	Users       []User         `json:"users"`
	LastUpdated int64          `json:"lastUpdated"` // 毫秒时间戳，单写者视角单调递增
}

// Clone 深拷贝，合并引擎不得共享输入切片
func (s *ClassroomState) Clone() *ClassroomState {
	if s == nil {
		return nil
	}
	out := &ClassroomState{
		Goals:       make([]LearningGoal, len(s.Goals)),
		Users:       make([]User, len(s.Users)),
		LastUpdated: s.LastUpdated,
	}
	copy(out.Users, s.Users)
	for i, g := range s.Goals {
		out.Goals[i] = g.Clone()
	}
	return out
}

// FindGoal 按ID查找，未找到返回nil
func (s *ClassroomState) FindGoal(goalID string) *LearningGoal {
	for i := range s.Goals {
		if s.Goals[i].ID == goalID {
			return &s.Goals[i]
		}
	}
	return nil
}

func (s *ClassroomState) FindUser(userID string) *User {
	for i := range s.Users {
		if s.Users[i].ID == userID {
			return &s.Users[i]
		}
	}
	return nil
}

// DefaultState 班级从未同步过时的引导状态：预置学习目标，无学生
func DefaultState() *ClassroomState {
	return &ClassroomState{
		Goals: []LearningGoal{
			{
				ID:          "1",
				Subject:     SubjectGeography,
				Title:       "De loop van een rivier",
				Description: "Ik kan uitleggen hoe een rivier van de bergen naar de zee stroomt.",
				Reflections: []ReflectionEntry{},
			},
			{
				ID:          "2",
				Subject:     SubjectHistory,
				Title:       "De Romeinen in Nederland",
				Description: "Ik weet waarom de Romeinen naar Nederland kwamen en wat de Limes zijn.",
				Reflections: []ReflectionEntry{},
			},
		},
		Users:       []User{},
		LastUpdated: time.Now().UnixMilli(),
	}
}

// NormalizeClassroomCode 班级码统一大写去空白
func NormalizeClassroomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewClassroomCode 首次启动时生成 KLAS-XXXX 形式的班级码
func NewClassroomCode() string {
	return fmt.Sprintf("KLAS-%04d", 1000+rand.Intn(9000))
}
