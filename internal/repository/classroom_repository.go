package repository

import (
	"errors"
	"time"

	"reflection_sync_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyClassroomCode 班级码归一化后为空
var ErrEmptyClassroomCode = errors.New("classroom code is empty")

// ClassroomRepository 班级码的本地记录：当前班级和最近打开列表
type ClassroomRepository struct {
	DB *gorm.DB
}

func NewClassroomRepository(db *gorm.DB) *ClassroomRepository {
	return &ClassroomRepository{DB: db}
}

// CurrentCode 读取当前班级码，不存在返回空串
func (r *ClassroomRepository) CurrentCode() (string, error) {
	var row model.AppSetting
	err := r.DB.First(&row, "key = ?", model.SettingCurrentClassroom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Value, nil
}

func (r *ClassroomRepository) SetCurrentCode(code string) error {
	row := model.AppSetting{Key: model.SettingCurrentClassroom, Value: code}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

// TouchRecent 记录一次打开，按最近时间排序，最多保留10条
func (r *ClassroomRepository) TouchRecent(code string) error {
	row := model.RecentClassroom{Code: code, LastOpened: time.Now()}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_opened"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	var stale []model.RecentClassroom
	if err := r.DB.Order("last_opened desc").Offset(10).Find(&stale).Error; err != nil {
		return err
	}
	for _, s := range stale {
		if err := r.DB.Delete(&model.RecentClassroom{}, "code = ?", s.Code).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *ClassroomRepository) ListRecent() ([]model.RecentClassroom, error) {
	var rows []model.RecentClassroom
	err := r.DB.Order("last_opened desc").Limit(10).Find(&rows).Error
	return rows, err
}
