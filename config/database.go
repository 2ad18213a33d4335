package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/GrainArc/TinFlow/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// OpenDatabase 按配置打开缓存数据库（sqlite、postgres 或 mysql）
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch cfg.DBType {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	case "", "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
			// 确保目录存在
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				log.Printf("创建存储目录失败: %v", err)
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(cfg.DBPath), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

// InitDatabase 初始化缓存数据库并迁移表结构
func InitDatabase(cfg Config) (*gorm.DB, error) {
	log.Printf("数据库: %s %s", cfg.DBType, cfg.DBPath)

	db, err := OpenDatabase(cfg)
	if err != nil {
		log.Printf("连接数据库失败: %v", err)
		return nil, err
	}

	// 自动迁移，创建表结构
	if err := db.AutoMigrate(&models.MeshRecord{}, &models.FlowRun{}); err != nil {
		log.Printf("数据库迁移失败: %v", err)
		return nil, err
	}

	DB = db
	log.Println("数据库初始化成功")
	return db, nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}
