package Transformer

import (
	"fmt"
	"log"
	"os"

	"github.com/rpaloschi/dxf-go/document"
	"github.com/rpaloschi/dxf-go/entities"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func GbkToUtf8(s string) string {
	gbkDecoder := simplifiedchinese.GBK.NewDecoder()
	utf8String, _, err := transform.String(gbkDecoder, s)
	if err != nil {
		// 解码失败时返回原始字符串
		return s
	}
	return utf8String
}

// detectEncoding 检测文本编码，失败时返回空串
func detectEncoding(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil {
		log.Printf("编码检测失败: %v", err)
		return ""
	}
	return result.Charset
}

// DXFToPoints 读取 DXF 中三维多段线的顶点作为测量点（等高线、断裂线）
func DXFToPoints(dxfFilePath string) ([][3]float64, error) {
	file, err := os.Open(dxfFilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc, err := document.DxfDocumentFromStream(file)
	if err != nil {
		return nil, fmt.Errorf("read dxf %s: %w", dxfFilePath, err)
	}

	var points [][3]float64
	for _, entity := range doc.Entities.Entities {
		polyline, ok := entity.(*entities.Polyline)
		if !ok {
			continue
		}
		for _, vertex := range polyline.Vertices {
			points = append(points, [3]float64{vertex.Location.X, vertex.Location.Y, vertex.Location.Z})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSurveyPoints, dxfFilePath)
	}
	return points, nil
}
