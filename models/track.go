package models

import (
	"github.com/GrainArc/TinFlow/Tin"
)

// GeometryData 接口提交的原始几何
type GeometryData struct {
	Metadata  Tin.Metadata `json:"metadata"`
	Points    [][]float64  `json:"points" binding:"required,min=3"`
	Triangles [][3]int     `json:"triangles"`
	MaxEdge   float64      `json:"max_edge"` // triangles 为空时按此参数三角剖分
}

// TriangleData 单个三角形查询
type TriangleData struct {
	GeometryData
	Triangle string `json:"triangle" binding:"required"`
}

// RunData 地块流程请求
type RunData struct {
	ParcelID string `json:"parcel_id" binding:"required"`
	Dem      string `json:"dem"`
	Refresh  bool   `json:"refresh"`
}

// TraceRequest websocket 客户端消息
type TraceRequest struct {
	Type     string           `json:"type"` // "mesh" 或 "trace"
	Geometry *Tin.RawGeometry `json:"geometry,omitempty"`
	Triangle int              `json:"triangle"`
}

// TraceResponse websocket 服务端消息
type TraceResponse struct {
	Type     string   `json:"type"` // "ready", "path" 或 "error"
	Triangle int      `json:"triangle,omitempty"`
	Path     []string `json:"path,omitempty"`
	Outcome  string   `json:"outcome,omitempty"`
	Sink     bool     `json:"sink"`
	Message  string   `json:"message,omitempty"`
}
