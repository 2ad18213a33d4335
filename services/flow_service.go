package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GrainArc/TinFlow/ImgHandler"
	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/Transformer"
	"github.com/GrainArc/TinFlow/config"
	"github.com/GrainArc/TinFlow/methods"
	"github.com/GrainArc/TinFlow/metrics"
	"github.com/GrainArc/TinFlow/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 输出文件名
const (
	FileFlowLines    = "flow_lines.geojson"
	FileFlowNetwork  = "flow_network.geojson"
	FileAccumulation = "accumulation.geojson"
	FileSamplePoints = "points.geojson"
	FileNetworkDXF   = "flow_network.dxf"
	FilePreview      = "accumulation.png"
	FileReport       = "report.docx"
)

// surveyMaxEdge 测量点三角网不过滤长边
const surveyMaxEdge = 1e6

var ErrNoHeightSource = errors.New("no elevation source configured")

// prefetcher 可预先并发读取整块范围的高程源
type prefetcher interface {
	Prefetch(ctx context.Context, b orb.Bound, workers int) error
}

// PolygonFetcher 按地块编号获取边界
type PolygonFetcher interface {
	FetchPolygon(ctx context.Context, parcelID string) (orb.Polygon, error)
}

// RunRequest 地块流程请求
type RunRequest struct {
	ParcelID string
	Dem      string // 覆盖配置中的 DEM
	Refresh  bool   // 忽略缓存重新计算
}

// RunResult 地块流程结果
type RunResult struct {
	Run          models.FlowRun
	Mesh         *Tin.Mesh
	Paths        []Tin.PathResult
	Accumulation Tin.Accumulation
	Sample       *SampleResult
	RawCached    bool
	MeshCached   bool
	Files        []string
	Archive      string
}

// FlowService 地块汇流流程：边界 -> 采样 -> 三角网 -> 富化 -> 流径与汇流 -> 输出
type FlowService struct {
	cfg     config.Config
	cache   *MeshCacheService
	parcels PolygonFetcher
	metrics *metrics.Registry
}

// NewFlowService 创建流程服务；reg 为空时使用全局指标
func NewFlowService(cfg config.Config, cache *MeshCacheService, parcels PolygonFetcher, reg *metrics.Registry) *FlowService {
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &FlowService{cfg: cfg, cache: cache, parcels: parcels, metrics: reg}
}

// Cache 缓存服务
func (s *FlowService) Cache() *MeshCacheService {
	return s.cache
}

// Run 执行完整流程
func (s *FlowService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	result, err := s.run(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordPipelineRun(status, time.Since(start))
	if err != nil {
		return nil, err
	}

	result.Run.DurationMs = time.Since(start).Milliseconds()
	if err := s.cache.SaveRun(&result.Run); err != nil {
		log.Printf("保存计算记录失败: %v", err)
	}
	return result, nil
}

func (s *FlowService) run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.ParcelID == "" {
		return nil, fmt.Errorf("parcel id is required")
	}
	outDir := filepath.Join(s.cfg.WorkDir, methods.SafeDirName(req.ParcelID))
	if req.Refresh {
		if err := s.cache.Invalidate(req.ParcelID); err != nil {
			return nil, err
		}
		if err := methods.DeleteFiles(outDir); err != nil {
			return nil, err
		}
	}
	result := &RunResult{}

	raw, cached, err := s.cache.GetRaw(req.ParcelID)
	if err != nil {
		return nil, err
	}
	s.recordLookup(models.StageRaw, cached)
	if cached {
		log.Printf("地块 %s 原始三角网已缓存，跳过构建", req.ParcelID)
		result.RawCached = true
	} else {
		raw, result.Sample, err = s.BuildRaw(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetRaw(req.ParcelID, raw); err != nil {
			return nil, err
		}
	}

	mesh, cached, err := s.cache.GetMesh(req.ParcelID)
	if err != nil {
		return nil, err
	}
	s.recordLookup(models.StageEnriched, cached)
	if cached {
		result.MeshCached = true
	} else {
		mesh, err = s.Enrich(raw)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetMesh(req.ParcelID, mesh); err != nil {
			return nil, err
		}
	}
	result.Mesh = mesh

	result.Paths = s.TraceAll(mesh)
	result.Accumulation = s.Accumulate(mesh)

	run := models.FlowRun{
		ID:        uuid.New().String(),
		ParcelID:  req.ParcelID,
		Points:    len(mesh.Points),
		Triangles: mesh.Len(),
		OutputDir: outDir,
	}
	for _, p := range result.Paths {
		switch p.Outcome {
		case Tin.BoundarySink:
			run.BoundarySinks++
		case Tin.InteriorPit:
			run.InteriorPits++
		case Tin.CycleDetected:
			run.Cycles++
		}
	}
	_, run.MaxAccumulation = result.Accumulation.Max()
	result.Run = run

	if err := s.writeOutputs(outDir, req.ParcelID, result, raw); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FlowService) recordLookup(stage string, hit bool) {
	if hit {
		s.metrics.RecordCacheLookup(stage, "hit")
	} else {
		s.metrics.RecordCacheLookup(stage, "miss")
	}
}

// BuildRaw 获取地块边界，采样高程并三角剖分
func (s *FlowService) BuildRaw(ctx context.Context, req RunRequest) (*Tin.RawGeometry, *SampleResult, error) {
	polygon, err := s.parcels.FetchPolygon(ctx, req.ParcelID)
	if err != nil {
		return nil, nil, err
	}

	src, name, closeFn, err := s.heightSource(req)
	if err != nil {
		return nil, nil, err
	}
	defer closeFn()

	if p, ok := src.(prefetcher); ok {
		if err := p.Prefetch(ctx, polygon.Bound(), s.cfg.Workers); err != nil {
			return nil, nil, err
		}
	}

	sample, err := SampleGrid(ctx, polygon, src, SampleOptions{
		Step:      s.cfg.GridStep,
		Radius:    s.cfg.SampleRadius,
		PixelSize: s.cfg.PixelSize,
	})
	if err != nil {
		return nil, nil, err
	}

	raw, err := Tin.Triangulate(sample.Points, Tin.TriangulateOptions{
		MaxEdge:       s.cfg.MaxEdge,
		CRS:           s.cfg.CRS,
		VerticalScale: s.cfg.VerticalScale,
		Source:        name,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("三角网: %d 点, %d/%d 个三角形保留", raw.Metadata.PointCount, raw.Metadata.FilteredTriangles, raw.Metadata.OriginalTriangles)
	return raw, sample, nil
}

// heightSource 优先使用测量点，否则使用 DEM 瓦片
func (s *FlowService) heightSource(req RunRequest) (HeightSource, string, func(), error) {
	noop := func() {}

	if req.Dem == "" && s.cfg.SurveyPoints != "" {
		path := s.cfg.SurveyPoints
		if methods.IsArchive(path) {
			dir, err := methods.Unpack(path, s.cfg.WorkDir)
			if err != nil {
				return nil, "", noop, err
			}
			path = dir
		}
		points, err := Transformer.LoadSurveyPoints(path)
		if err != nil {
			return nil, "", noop, err
		}
		src, err := NewTinSource(points, surveyMaxEdge)
		if err != nil {
			return nil, "", noop, err
		}
		return src, s.cfg.SurveyPoints, noop, nil
	}

	dem := req.Dem
	if dem == "" {
		dem = s.cfg.Dem
	}
	if dem == "" {
		return nil, "", noop, ErrNoHeightSource
	}
	open := OpenMBTiles
	if strings.HasPrefix(dem, "http://") || strings.HasPrefix(dem, "https://") {
		open = OpenRemoteTiles
	}
	src, err := open(dem, s.cfg.DemZoom, s.cfg.CRS)
	if err != nil {
		return nil, "", noop, err
	}
	return src, dem, func() { src.Close() }, nil
}

// Enrich 富化并记录指标
func (s *FlowService) Enrich(raw *Tin.RawGeometry) (*Tin.Mesh, error) {
	start := time.Now()
	mesh, err := Tin.Enrich(raw)
	if err != nil {
		s.metrics.RecordEnrichment("error", 0, time.Since(start))
		return nil, err
	}
	s.metrics.RecordEnrichment("success", mesh.Len(), time.Since(start))
	return mesh, nil
}

// TraceAll 追踪全部流径并记录结果类型
func (s *FlowService) TraceAll(mesh *Tin.Mesh) []Tin.PathResult {
	paths := mesh.TraceAll(s.cfg.Workers)
	for _, p := range paths {
		s.metrics.RecordPathOutcome(p.Outcome.String())
	}
	return paths
}

// Accumulate 汇流计算并记录耗时
func (s *FlowService) Accumulate(mesh *Tin.Mesh) Tin.Accumulation {
	start := time.Now()
	acc := mesh.FlowAccumulation()
	s.metrics.RecordAccumulation(time.Since(start))
	return acc
}

// WorkDir 输出根目录
func (s *FlowService) WorkDir() string {
	return s.cfg.WorkDir
}

// StreamThreshold 配置的河道阈值
func (s *FlowService) StreamThreshold() float64 {
	return s.cfg.StreamThreshold
}

func (s *FlowService) writeOutputs(outDir, parcelID string, result *RunResult, raw *Tin.RawGeometry) error {
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return err
	}
	crs := result.Mesh.Metadata.CRS
	network := methods.FlowNetwork(result.Mesh, result.Paths, crs)

	layers := []struct {
		name string
		fc   *geojson.FeatureCollection
	}{
		{FileFlowLines, methods.FlowLines(result.Mesh, crs)},
		{FileFlowNetwork, network},
		{FileAccumulation, methods.AccumulationLayer(result.Mesh, result.Accumulation, s.cfg.StreamThreshold, crs)},
		{FileSamplePoints, Transformer.PointsToGeoJSON(raw.Points)},
	}
	for _, layer := range layers {
		path := filepath.Join(outDir, layer.name)
		if err := methods.WriteGeoJSON(path, layer.fc); err != nil {
			return fmt.Errorf("write %s: %w", layer.name, err)
		}
		result.Files = append(result.Files, path)
		log.Printf("完成: %s", path)
	}

	if s.cfg.ExportDXF {
		path := filepath.Join(outDir, FileNetworkDXF)
		if err := methods.ConvertFlowToDXF(network, path); err != nil {
			return fmt.Errorf("write dxf: %w", err)
		}
		result.Files = append(result.Files, path)
	}

	var preview []byte
	if s.cfg.ExportPNG {
		path := filepath.Join(outDir, FilePreview)
		data, err := ImgHandler.RenderAccumulation(result.Mesh, result.Accumulation, ImgHandler.DefaultPreviewOptions())
		if err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		preview = data
		result.Files = append(result.Files, path)
	}

	if s.cfg.ExportReport {
		path := filepath.Join(outDir, FileReport)
		err := WriteReport(path, ReportData{
			Run:     result.Run,
			Stats:   result.Mesh.Stats(),
			Sample:  result.Sample,
			Preview: preview,
		})
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		result.Files = append(result.Files, path)
	}

	if s.cfg.ExportZip {
		archive := filepath.Join(outDir, parcelID+".zip")
		if err := methods.PackOutputs(result.Files, archive); err != nil {
			return fmt.Errorf("pack outputs: %w", err)
		}
		result.Archive = archive
	}
	return nil
}
