package database

import (
	"log"
	"os"
	"path/filepath"

	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 打开本地 SQLite 库并迁移三张本地表
// 本地库只承担设备侧职责：快照缓存、离线队列、班级码记录
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dir := filepath.Dir(cfg.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.CachedSnapshot{},
		&model.SyncQueueItem{},
		&model.RecentClassroom{},
		&model.AppSetting{},
	)
	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
