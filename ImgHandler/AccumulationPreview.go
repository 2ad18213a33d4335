package ImgHandler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/GrainArc/TinFlow/Tin"
)

var ErrEmptyMesh = errors.New("mesh has no triangles")

// 汇流量分级色带，由浅到深
var accumulationRamp = []color.RGBA{
	{255, 255, 204, 255},
	{199, 233, 180, 255},
	{127, 205, 187, 255},
	{65, 182, 196, 255},
	{29, 145, 192, 255},
	{34, 94, 168, 255},
	{12, 44, 132, 255},
}

// PreviewOptions 预览图参数
type PreviewOptions struct {
	Width  int // 地图部分像素宽度，高度按范围比例计算
	Legend bool
}

func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{Width: 800, Legend: true}
}

// AccumulationClasses 按对数等分 [1, max] 的分级下界
func AccumulationClasses(maxValue float64) []float64 {
	n := len(accumulationRamp)
	breaks := make([]float64, n)
	if maxValue <= 1 {
		for i := range breaks {
			breaks[i] = 1
		}
		return breaks
	}
	step := math.Log(maxValue) / float64(n)
	for i := range breaks {
		breaks[i] = math.Exp(step * float64(i))
	}
	return breaks
}

func classColor(breaks []float64, v float64) color.RGBA {
	idx := 0
	for i, b := range breaks {
		if v >= b {
			idx = i
		}
	}
	return accumulationRamp[idx]
}

// RenderAccumulation 将每个三角形按汇流量着色，输出 PNG
func RenderAccumulation(m *Tin.Mesh, acc Tin.Accumulation, opts PreviewOptions) ([]byte, error) {
	if m.Len() == 0 {
		return nil, ErrEmptyMesh
	}
	if len(acc) != m.Len() {
		return nil, fmt.Errorf("accumulation has %d values for %d triangles", len(acc), m.Len())
	}
	if opts.Width <= 0 {
		opts.Width = DefaultPreviewOptions().Width
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range m.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	spanX, spanY := maxX-minX, maxY-minY
	if spanX <= 0 || spanY <= 0 {
		return nil, fmt.Errorf("mesh extent is degenerate")
	}
	scale := float64(opts.Width-1) / spanX
	height := int(math.Ceil(spanY*scale)) + 1

	mapImg := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	draw.Draw(mapImg, mapImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	toPixel := func(p Tin.Point3D) (float64, float64) {
		return (p.X - minX) * scale, (maxY - p.Y) * scale
	}

	_, maxValue := acc.Max()
	breaks := AccumulationClasses(maxValue)
	for i := range m.Triangles {
		t := &m.Triangles[i]
		var xs, ys [3]float64
		for k := 0; k < 3; k++ {
			xs[k], ys[k] = toPixel(m.Vertex(t, k))
		}
		fillTriangle(mapImg, xs, ys, classColor(breaks, acc[i]))
	}

	out := image.Image(mapImg)
	if opts.Legend {
		legend, err := CreateLegend(legendItems(breaks), opts.Width)
		if err != nil {
			return nil, err
		}
		out = stack(mapImg, legend)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func legendItems(breaks []float64) []LegendItem {
	items := make([]LegendItem, len(breaks))
	for i, b := range breaks {
		items[i] = LegendItem{Label: fmt.Sprintf(">= %.1f", b), Color: accumulationRamp[i]}
	}
	return items
}

// fillTriangle 扫描包围盒，像素中心落在三角形内（含边）即着色
func fillTriangle(img *image.RGBA, xs, ys [3]float64, c color.RGBA) {
	b := img.Bounds()
	x0 := int(math.Max(math.Floor(math.Min(xs[0], math.Min(xs[1], xs[2]))), float64(b.Min.X)))
	x1 := int(math.Min(math.Ceil(math.Max(xs[0], math.Max(xs[1], xs[2]))), float64(b.Max.X-1)))
	y0 := int(math.Max(math.Floor(math.Min(ys[0], math.Min(ys[1], ys[2]))), float64(b.Min.Y)))
	y1 := int(math.Min(math.Ceil(math.Max(ys[0], math.Max(ys[1], ys[2]))), float64(b.Max.Y-1)))

	area := edge(xs[0], ys[0], xs[1], ys[1], xs[2], ys[2])
	if area == 0 {
		return
	}
	const eps = 1e-9
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px, py := float64(x), float64(y)
			w0 := edge(xs[1], ys[1], xs[2], ys[2], px, py) / area
			w1 := edge(xs[2], ys[2], xs[0], ys[0], px, py) / area
			w2 := edge(xs[0], ys[0], xs[1], ys[1], px, py) / area
			if w0 >= -eps && w1 >= -eps && w2 >= -eps {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// stack 上下拼接两张图
func stack(top, bottom image.Image) *image.RGBA {
	tb, bb := top.Bounds(), bottom.Bounds()
	width := tb.Dx()
	if bb.Dx() > width {
		width = bb.Dx()
	}
	out := image.NewRGBA(image.Rect(0, 0, width, tb.Dy()+bb.Dy()))
	draw.Draw(out, out.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, tb.Dx(), tb.Dy()), top, tb.Min, draw.Src)
	draw.Draw(out, image.Rect(0, tb.Dy(), bb.Dx(), tb.Dy()+bb.Dy()), bottom, bb.Min, draw.Src)
	return out
}
