package services

import (
	"fmt"
	"time"

	"gitee.com/gooffice/gooffice/color"
	"gitee.com/gooffice/gooffice/common"
	"gitee.com/gooffice/gooffice/document"
	"gitee.com/gooffice/gooffice/measurement"
	"gitee.com/gooffice/gooffice/schema/soo/wml"
	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/models"
)

// ReportData 报告内容
type ReportData struct {
	Run     models.FlowRun
	Stats   Tin.MeshStats
	Sample  *SampleResult
	Preview []byte // 汇流预览 PNG，可为空
}

// DocumentBuilder Word文档构建器
type DocumentBuilder struct {
	doc *document.Document
}

// NewDocumentBuilder 创建空白文档
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{doc: document.New()}
}

// GetDocument 获取底层文档对象
func (db *DocumentBuilder) GetDocument() *document.Document {
	return db.doc
}

// AddHeading 插入标题
func (db *DocumentBuilder) AddHeading(text string, level int) *DocumentBuilder {
	para := db.doc.AddParagraph()
	para.Properties().SetHeadingLevel(level)
	para.Properties().SetAlignment(wml.ST_JcCenter)

	run := para.AddRun()
	run.Properties().SetBold(true)
	run.Properties().SetSize(measurement.Distance(20 - 2*level))
	run.AddText(text)
	return db
}

// AddParagraph 插入正文段落
func (db *DocumentBuilder) AddParagraph(text string) *DocumentBuilder {
	para := db.doc.AddParagraph()
	run := para.AddRun()
	run.Properties().SetSize(12)
	run.AddText(text)
	return db
}

// AddTable 插入两列表格，首行为表头
func (db *DocumentBuilder) AddTable(caption string, header [2]string, rows [][2]string) {
	if caption != "" {
		captionPara := db.doc.AddParagraph()
		captionPara.Properties().SetAlignment(wml.ST_JcCenter)
		captionRun := captionPara.AddRun()
		captionRun.Properties().SetBold(true)
		captionRun.AddText(caption)
	}

	table := db.doc.AddTable()
	table.Properties().SetAlignment(wml.ST_JcTableCenter)
	table.Properties().SetWidthPercent(100)
	borders := table.Properties().Borders()
	borders.SetAll(wml.ST_BorderSingle, color.Auto, 1*measurement.Point)

	addRow := func(cells [2]string, bold bool) {
		row := table.AddRow()
		for _, text := range cells {
			para := row.AddCell().AddParagraph()
			para.Properties().SetAlignment(wml.ST_JcCenter)
			run := para.AddRun()
			run.Properties().SetBold(bold)
			run.Properties().SetSize(12)
			run.AddText(text)
		}
	}
	addRow(header, true)
	for _, r := range rows {
		addRow(r, false)
	}
	db.doc.AddParagraph()
}

// AddImage 插入图片，宽度单位为英寸，高度按比例
func (db *DocumentBuilder) AddImage(img []byte, widthInch float64) error {
	fImg, err := common.ImageFromBytes(img)
	if err != nil {
		return fmt.Errorf("读取图片失败: %w", err)
	}
	imgRef, err := db.doc.AddImage(fImg)
	if err != nil {
		return fmt.Errorf("添加图片到文档失败: %w", err)
	}

	para := db.doc.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	inlineImg, err := para.AddRun().AddDrawingInline(imgRef)
	if err != nil {
		return fmt.Errorf("插入图片失败: %w", err)
	}

	imgSize := imgRef.Size()
	aspectRatio := float64(imgSize.Y) / float64(imgSize.X)
	inlineImg.SetSize(measurement.Distance(widthInch)*measurement.Inch,
		measurement.Distance(widthInch*aspectRatio)*measurement.Inch)

	db.doc.AddParagraph()
	return nil
}

// Save 保存文档
func (db *DocumentBuilder) Save(filename string) error {
	return db.doc.SaveToFile(filename)
}

// Close 关闭文档
func (db *DocumentBuilder) Close() error {
	if db.doc != nil {
		return db.doc.Close()
	}
	return nil
}

// reportRows 汇流结果摘要
func reportRows(data ReportData) [][2]string {
	run := data.Run
	rows := [][2]string{
		{"Points", fmt.Sprint(run.Points)},
		{"Triangles", fmt.Sprint(run.Triangles)},
		{"Boundary triangles", fmt.Sprint(data.Stats.Boundary)},
		{"Elevation range (m)", fmt.Sprintf("%.2f - %.2f", data.Stats.MinElevation, data.Stats.MaxElevation)},
		{"Surface area (m²)", fmt.Sprintf("%.1f", data.Stats.SurfaceArea)},
		{"Boundary sinks", fmt.Sprint(run.BoundarySinks)},
		{"Interior pits", fmt.Sprint(run.InteriorPits)},
		{"Cycles", fmt.Sprint(run.Cycles)},
		{"Max accumulation", fmt.Sprintf("%.2f", run.MaxAccumulation)},
	}
	if data.Sample != nil {
		flat := "no"
		if data.Sample.Flat {
			flat = "yes"
		}
		rows = append(rows,
			[2]string{"Sample cells", fmt.Sprint(data.Sample.Cells)},
			[2]string{"Max variation (m)", fmt.Sprintf("%.2f", data.Sample.MaxVariation)},
			[2]string{"Flat terrain", flat},
		)
	}
	return rows
}

// WriteReport 生成地块汇流报告 docx
func WriteReport(path string, data ReportData) error {
	db := NewDocumentBuilder()
	defer db.Close()

	db.AddHeading(fmt.Sprintf("Parcel %s surface flow", data.Run.ParcelID), 1)
	db.AddParagraph(fmt.Sprintf("Run %s, %s", data.Run.ID, time.Now().Format("2006-01-02 15:04")))
	db.AddTable("Summary", [2]string{"Item", "Value"}, reportRows(data))

	if len(data.Preview) > 0 {
		db.AddHeading("Flow accumulation", 2)
		if err := db.AddImage(data.Preview, 6); err != nil {
			return err
		}
	}
	return db.Save(path)
}
