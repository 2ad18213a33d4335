package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MeshCacheService 地块三角网缓存服务
type MeshCacheService struct {
	db *gorm.DB
}

// NewMeshCacheService 创建缓存服务，表结构由 config.InitDatabase 迁移
func NewMeshCacheService(db *gorm.DB) *MeshCacheService {
	return &MeshCacheService{db: db}
}

// get 读取缓存并反序列化
// 返回: found, error
func (s *MeshCacheService) get(parcelID, stage string, out interface{}) (bool, error) {
	var record models.MeshRecord
	result := s.db.Where("parcel_id = ? AND stage = ?", parcelID, stage).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, result.Error
	}
	if err := json.Unmarshal(record.Data, out); err != nil {
		return false, fmt.Errorf("decode cached %s mesh for %s: %w", stage, parcelID, err)
	}
	return true, nil
}

// set 写入缓存，冲突时更新数据
func (s *MeshCacheService) set(parcelID, stage string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	record := models.MeshRecord{
		ParcelID: parcelID,
		Stage:    stage,
		Data:     datatypes.JSON(data),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parcel_id"}, {Name: "stage"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&record).Error
}

// GetRaw 读取原始三角网
func (s *MeshCacheService) GetRaw(parcelID string) (*Tin.RawGeometry, bool, error) {
	var raw Tin.RawGeometry
	found, err := s.get(parcelID, models.StageRaw, &raw)
	if !found || err != nil {
		return nil, false, err
	}
	return &raw, true, nil
}

// SetRaw 写入原始三角网
func (s *MeshCacheService) SetRaw(parcelID string, raw *Tin.RawGeometry) error {
	return s.set(parcelID, models.StageRaw, raw)
}

// GetMesh 读取富化网格
func (s *MeshCacheService) GetMesh(parcelID string) (*Tin.Mesh, bool, error) {
	var mesh Tin.Mesh
	found, err := s.get(parcelID, models.StageEnriched, &mesh)
	if !found || err != nil {
		return nil, false, err
	}
	return &mesh, true, nil
}

// SetMesh 写入富化网格
func (s *MeshCacheService) SetMesh(parcelID string, mesh *Tin.Mesh) error {
	return s.set(parcelID, models.StageEnriched, mesh)
}

// Invalidate 删除地块的全部缓存
func (s *MeshCacheService) Invalidate(parcelID string) error {
	return s.db.Where("parcel_id = ?", parcelID).Delete(&models.MeshRecord{}).Error
}

// SaveRun 记录一次计算
func (s *MeshCacheService) SaveRun(run *models.FlowRun) error {
	return s.db.Create(run).Error
}

// ListRuns 按时间倒序列出计算记录，parcelID 为空时列出全部
func (s *MeshCacheService) ListRuns(parcelID string, limit int) ([]models.FlowRun, error) {
	var runs []models.FlowRun
	query := s.db.Order("created_at DESC")
	if parcelID != "" {
		query = query.Where("parcel_id = ?", parcelID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
