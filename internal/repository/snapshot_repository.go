package repository

import (
	"encoding/json"
	"errors"
	"time"

	"reflection_sync_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCacheMiss 本地没有该班级的快照缓存
var ErrCacheMiss = errors.New("no cached snapshot for classroom")

// SnapshotRepository 本地快照缓存，远端不可达时的回退数据源
type SnapshotRepository struct {
	DB *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

func (r *SnapshotRepository) Read(classroomID string) (*model.ClassroomState, error) {
	var row model.CachedSnapshot
	err := r.DB.First(&row, "classroom_id = ?", classroomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var state model.ClassroomState
	if err := json.Unmarshal([]byte(row.Payload), &state); err != nil {
		// 缓存损坏按未命中处理，下次成功同步会覆盖
		return nil, ErrCacheMiss
	}
	return &state, nil
}

func (r *SnapshotRepository) Write(classroomID string, state *model.ClassroomState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	row := model.CachedSnapshot{
		ClassroomID: classroomID,
		Payload:     string(payload),
		UpdatedAt:   time.Now(),
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "classroom_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}
