package repository

import (
	"encoding/json"
	"time"

	"reflection_sync_backend/internal/model"

	"gorm.io/gorm"
)

// SyncQueueRepository 离线变更队列
// 条目只在成功并入一次已落盘推送的快照后才会移除
type SyncQueueRepository struct {
	DB *gorm.DB
}

func NewSyncQueueRepository(db *gorm.DB) *SyncQueueRepository {
	return &SyncQueueRepository{DB: db}
}

// Enqueue 负载整体序列化入库，Seq 由自增主键分配
func (r *SyncQueueRepository) Enqueue(itemType model.SyncItemType, classroomID string, payload interface{}) (*model.SyncQueueItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	item := model.SyncQueueItem{
		Type:        itemType,
		ClassroomID: classroomID,
		Payload:     raw,
		Timestamp:   time.Now().UnixMilli(),
	}
	if err := r.DB.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List 按入队顺序返回某班级的全部待处理条目
func (r *SyncQueueRepository) List(classroomID string) ([]model.SyncQueueItem, error) {
	var items []model.SyncQueueItem
	err := r.DB.Where("classroom_id = ?", classroomID).Order("seq").Find(&items).Error
	return items, err
}

func (r *SyncQueueRepository) Remove(seq uint64) error {
	return r.DB.Delete(&model.SyncQueueItem{}, "seq = ?", seq).Error
}

func (r *SyncQueueRepository) Len(classroomID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SyncQueueItem{}).Where("classroom_id = ?", classroomID).Count(&count).Error
	return count, err
}
