package service

import (
	"reflection_sync_backend/internal/model"
	"reflection_sync_backend/internal/repository"
	"reflection_sync_backend/pkg/logger"

	"go.uber.org/zap"
)

// ClassroomService 班级码的簿记：当前班级和最近打开的班级列表
// 不碰同步状态，只管本地记录
type ClassroomService struct {
	repo *repository.ClassroomRepository
}

func NewClassroomService(repo *repository.ClassroomRepository) *ClassroomService {
	return &ClassroomService{repo: repo}
}

// Current 读取当前班级码，首次启动时生成一个新的 KLAS 码并落库
func (s *ClassroomService) Current() (string, error) {
	code, err := s.repo.CurrentCode()
	if err != nil {
		return "", err
	}
	if code != "" {
		return code, nil
	}

	code = model.NewClassroomCode()
	if err := s.SetCurrent(code); err != nil {
		return "", err
	}
	logger.Log.Info("Generated new classroom code", zap.String("code", code))
	return code, nil
}

// SetCurrent 切换当前班级，同时记入最近列表
func (s *ClassroomService) SetCurrent(code string) error {
	code = model.NormalizeClassroomCode(code)
	if code == "" {
		return repository.ErrEmptyClassroomCode
	}
	if err := s.repo.SetCurrentCode(code); err != nil {
		return err
	}
	return s.repo.TouchRecent(code)
}

func (s *ClassroomService) Recent() ([]model.RecentClassroom, error) {
	return s.repo.ListRecent()
}
