package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/Transformer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FileParcelService 从本地边界文件（GeoJSON、KML、shapefile）按编号查找地块
type FileParcelService struct {
	Path    string
	IDField string
	CRS     string

	once sync.Once
	fc   *geojson.FeatureCollection
	err  error
}

// NewFileParcelService 创建本地文件地块服务，文件在首次查询时读取
func NewFileParcelService(path, idField, crs string) *FileParcelService {
	return &FileParcelService{Path: path, IDField: idField, CRS: crs}
}

func (s *FileParcelService) load() (*geojson.FeatureCollection, error) {
	s.once.Do(func() {
		s.fc, s.err = Transformer.LoadParcelFile(s.Path, s.CRS)
		if s.err == nil {
			log.Printf("读取地块文件 %s: %d 个要素", s.Path, len(s.fc.Features))
		}
	})
	return s.fc, s.err
}

// FetchPolygon 返回属性 IDField 等于 parcelID 的第一个面
func (s *FileParcelService) FetchPolygon(ctx context.Context, parcelID string) (orb.Polygon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, feature := range fc.Features {
		value, ok := feature.Properties[s.IDField]
		if !ok || propertyString(value) != parcelID {
			continue
		}
		if polygon, err := Tin.PolygonFromGeometry(feature.Geometry); err == nil {
			return polygon, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrParcelNotFound, parcelID)
}

// propertyString 数值编号按十进制整数形式比较
func propertyString(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
