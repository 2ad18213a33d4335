package models

import (
	"time"

	"gorm.io/datatypes"
)

// 缓存阶段
const (
	StageRaw      = "raw"
	StageEnriched = "enriched"
)

// MeshRecord 地块三角网缓存：原始三角网与富化网格各一行
type MeshRecord struct {
	ID        uint           `gorm:"primary_key"`
	ParcelID  string         `gorm:"type:varchar(64);uniqueIndex:idx_parcel_stage"`
	Stage     string         `gorm:"type:varchar(16);uniqueIndex:idx_parcel_stage"`
	Data      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FlowRun 一次汇流计算的记录
type FlowRun struct {
	ID              string    `gorm:"type:varchar(36);primary_key" json:"id"`
	ParcelID        string    `gorm:"type:varchar(64);index" json:"parcel_id"`
	Points          int       `json:"points"`
	Triangles       int       `json:"triangles"`
	BoundarySinks   int       `json:"boundary_sinks"`
	InteriorPits    int       `json:"interior_pits"`
	Cycles          int       `json:"cycles"`
	MaxAccumulation float64   `json:"max_accumulation"`
	OutputDir       string    `gorm:"type:varchar(255)" json:"output_dir"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}
