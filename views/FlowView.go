package views

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/GrainArc/TinFlow/ImgHandler"
	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/methods"
	"github.com/GrainArc/TinFlow/models"
	"github.com/GrainArc/TinFlow/services"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

// FlowController 三角网汇流接口
type FlowController struct {
	flow *services.FlowService
}

func NewFlowController(flow *services.FlowService) *FlowController {
	return &FlowController{flow: flow}
}

// rawFromRequest 请求几何转为原始三角网；未给出三角形时先做三角剖分
func rawFromRequest(data models.GeometryData) (*Tin.RawGeometry, error) {
	points, err := Tin.CoordsToPoints(data.Points)
	if err != nil {
		return nil, err
	}
	if len(data.Triangles) > 0 {
		return &Tin.RawGeometry{Metadata: data.Metadata, Points: points, Triangles: data.Triangles}, nil
	}

	opts := Tin.DefaultTriangulateOptions()
	if data.MaxEdge > 0 {
		opts.MaxEdge = data.MaxEdge
	}
	if data.Metadata.CRS != "" {
		opts.CRS = data.Metadata.CRS
	}
	opts.Source = data.Metadata.Source
	return Tin.Triangulate(points, opts)
}

func (fc *FlowController) meshFromRequest(data models.GeometryData) (*Tin.Mesh, error) {
	raw, err := rawFromRequest(data)
	if err != nil {
		return nil, err
	}
	return fc.flow.Enrich(raw)
}

// bindMesh 绑定请求并构建网格，失败时已写出 400
func (fc *FlowController) bindMesh(c *gin.Context, data *models.GeometryData) (*Tin.Mesh, bool) {
	if err := c.ShouldBindJSON(data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	mesh, err := fc.meshFromRequest(*data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return mesh, true
}

// bindTriangle 绑定单三角形请求
func (fc *FlowController) bindTriangle(c *gin.Context) (*Tin.Mesh, Tin.TriangleID, bool) {
	var data models.TriangleData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	mesh, err := fc.meshFromRequest(data.GeometryData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	id, err := Tin.ParseTriangleKey(data.Triangle)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	if _, ok := mesh.Triangle(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown triangle " + data.Triangle})
		return nil, 0, false
	}
	return mesh, id, true
}

// Enrich 富化原始几何，返回网格与统计
func (fc *FlowController) Enrich(c *gin.Context) {
	var data models.GeometryData
	mesh, ok := fc.bindMesh(c, &data)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mesh":  mesh,
		"stats": mesh.Stats(),
	})
}

// Downhill 单个三角形的最陡下降邻居
func (fc *FlowController) Downhill(c *gin.Context) {
	mesh, id, ok := fc.bindTriangle(c)
	if !ok {
		return
	}
	resp := gin.H{
		"triangle": Tin.TriangleKey(id),
		"height":   mesh.Triangles[id].Height,
		"downhill": nil,
	}
	if next, found := mesh.Downhill(id); found {
		resp["downhill"] = Tin.TriangleKey(next)
		resp["downhill_height"] = mesh.Triangles[next].Height
	}
	c.JSON(http.StatusOK, resp)
}

// Path 单个三角形的流径
func (fc *FlowController) Path(c *gin.Context) {
	mesh, id, ok := fc.bindTriangle(c)
	if !ok {
		return
	}
	res, err := mesh.TracePath(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"triangle": Tin.TriangleKey(id),
		"path":     res.Keys(),
		"outcome":  res.Outcome.String(),
		"sink":     !res.Reached(),
	})
}

// Accumulation 全网汇流量
func (fc *FlowController) Accumulation(c *gin.Context) {
	var data models.GeometryData
	mesh, ok := fc.bindMesh(c, &data)
	if !ok {
		return
	}
	acc := fc.flow.Accumulate(mesh)

	values := make(map[string]float64, len(acc))
	for i, v := range acc {
		values[Tin.TriangleKey(Tin.TriangleID(i))] = v
	}
	maxID, maxValue := acc.Max()
	c.JSON(http.StatusOK, gin.H{
		"accumulation":   values,
		"total":          acc.Total(),
		"terminal_total": mesh.TerminalTotal(acc),
		"max_triangle":   Tin.TriangleKey(maxID),
		"max":            maxValue,
	})
}

// Layer 输出 flow_lines / flow_network / accumulation 图层
func (fc *FlowController) Layer(c *gin.Context) {
	var data models.GeometryData
	mesh, ok := fc.bindMesh(c, &data)
	if !ok {
		return
	}
	crs := mesh.Metadata.CRS

	var layer *geojson.FeatureCollection
	switch c.Param("layer") {
	case "flow_lines":
		layer = methods.FlowLines(mesh, crs)
	case "flow_network":
		layer = methods.FlowNetwork(mesh, fc.flow.TraceAll(mesh), crs)
	case "accumulation":
		layer = methods.AccumulationLayer(mesh, fc.flow.Accumulate(mesh), fc.flow.StreamThreshold(), crs)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown layer " + c.Param("layer")})
		return
	}
	c.JSON(http.StatusOK, layer)
}

// Run 执行地块流程
func (fc *FlowController) Run(c *gin.Context) {
	var data models.RunData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := fc.flow.Run(c.Request.Context(), services.RunRequest{
		ParcelID: data.ParcelID,
		Dem:      data.Dem,
		Refresh:  data.Refresh,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrParcelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNoHeightSource), errors.Is(err, services.ErrNoElevation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	resp := gin.H{
		"run":         result.Run,
		"files":       result.Files,
		"archive":     result.Archive,
		"raw_cached":  result.RawCached,
		"mesh_cached": result.MeshCached,
	}
	if result.Sample != nil {
		resp["max_variation"] = result.Sample.MaxVariation
		resp["flat"] = result.Sample.Flat
	}
	c.JSON(http.StatusOK, resp)
}

// Runs 计算记录
func (fc *FlowController) Runs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	runs, err := fc.flow.Cache().ListRuns(c.Query("parcel"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Preview 汇流量着色预览图
func (fc *FlowController) Preview(c *gin.Context) {
	var data models.GeometryData
	mesh, ok := fc.bindMesh(c, &data)
	if !ok {
		return
	}
	opts := ImgHandler.DefaultPreviewOptions()
	if w, err := strconv.Atoi(c.DefaultQuery("width", "800")); err == nil && w > 0 && w <= 4096 {
		opts.Width = w
	}
	opts.Legend = c.DefaultQuery("legend", "true") != "false"

	png, err := ImgHandler.RenderAccumulation(mesh, fc.flow.Accumulate(mesh), opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
