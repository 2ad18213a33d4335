package ImgHandler

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

type LegendItem struct {
	Label string
	Color color.RGBA
}

func loadFont() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
}

func drawText(img *image.RGBA, x, y int, text string, fontSize float64, fontColor color.Color, ttfFont *truetype.Font) error {
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(ttfFont)
	c.SetFontSize(fontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(fontColor))
	c.SetHinting(font.HintingFull)

	pt := freetype.Pt(x, y)
	_, err := c.DrawString(text, pt)
	return err
}

// drawPolygonSymbol 面状符号：填充色 + 边框
func drawPolygonSymbol(img *image.RGBA, xPos, yPos, width, height int, fillColor color.Color, borderColor color.Color) {
	rect := image.Rect(xPos, yPos, xPos+width, yPos+height)
	draw.Draw(img, rect, &image.Uniform{fillColor}, image.Point{}, draw.Src)

	for x := xPos; x < xPos+width; x++ {
		img.Set(x, yPos, borderColor)
		img.Set(x, yPos+height-1, borderColor)
	}
	for y := yPos; y < yPos+height; y++ {
		img.Set(xPos, y, borderColor)
		img.Set(xPos+width-1, y, borderColor)
	}
}

// CreateLegend 绘制图例，宽度不小于 minWidth
func CreateLegend(items []LegendItem, minWidth int) (*image.RGBA, error) {
	ttfFont, err := loadFont()
	if err != nil {
		return nil, err
	}

	// 图例参数
	itemHeight := 30
	symbolWidth := 40
	symbolHeight := 18
	textOffsetX := 50
	padding := 10
	fontSize := 13.0

	itemWidth := 110
	for _, item := range items {
		if w := textOffsetX + calculateTextWidth(item.Label, fontSize, ttfFont) + 15; w > itemWidth {
			itemWidth = w
		}
	}

	numCols := calculateOptimalColumns(len(items), itemWidth, minWidth-padding*2)
	numRows := (len(items) + numCols - 1) / numCols

	width := numCols*itemWidth + padding*2
	if width < minWidth {
		width = minWidth
	}
	height := numRows*itemHeight + padding*2

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	for i, item := range items {
		row := i / numCols
		col := i % numCols
		xPos := padding + col*itemWidth
		yPos := padding + row*itemHeight

		drawPolygonSymbol(img, xPos, yPos+(itemHeight-symbolHeight)/2, symbolWidth, symbolHeight, item.Color, color.Gray{Y: 96})
		if err := drawText(img, xPos+textOffsetX, yPos+itemHeight/2+5, item.Label, fontSize, color.Black, ttfFont); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func calculateTextWidth(text string, fontSize float64, ttfFont *truetype.Font) int {
	face := truetype.NewFace(ttfFont, &truetype.Options{Size: fontSize, DPI: 72})
	defer face.Close()

	width := 0
	for _, r := range text {
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			width += int(fontSize)
			continue
		}
		width += advance.Round()
	}
	return width
}

// calculateOptimalColumns 一行放得下的列数
func calculateOptimalColumns(numItems, itemWidth, maxWidth int) int {
	if numItems == 0 || itemWidth <= 0 {
		return 1
	}
	cols := maxWidth / itemWidth
	cols = int(math.Max(1, math.Min(float64(cols), float64(numItems))))
	return cols
}
