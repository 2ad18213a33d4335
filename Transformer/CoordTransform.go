package Transformer

import (
	"fmt"
	"math"
	"strings"
)

// GRS80 椭球与 ETRS-TM35FIN 投影参数
const (
	grs80A         = 6378137.0
	grs80F         = 1 / 298.257222101
	tm35Scale      = 0.9996
	tm35Meridian   = 27.0
	tm35FalseEast  = 500000.0
	tm35FalseNorth = 0.0
)

var (
	e2  = grs80F * (2 - grs80F)
	ep2 = e2 / (1 - e2)
)

// meridianArc 赤道到纬度 phi 的子午线弧长
func meridianArc(phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return grs80A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// LonLatToTM35FIN 经纬度（ETRS89）转 EPSG:3067
func LonLatToTM35FIN(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180
	sin, cos, tan := math.Sin(phi), math.Cos(phi), math.Tan(phi)

	n := grs80A / math.Sqrt(1-e2*sin*sin)
	t := tan * tan
	c := ep2 * cos * cos
	a := (lon - tm35Meridian) * math.Pi / 180 * cos

	x = tm35FalseEast + tm35Scale*n*(a+
		(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(a, 5)/120)
	y = tm35FalseNorth + tm35Scale*(meridianArc(phi)+n*tan*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(a, 6)/720))
	return x, y
}

// TM35FINToLonLat EPSG:3067 转经纬度（ETRS89）
func TM35FINToLonLat(x, y float64) (lon, lat float64) {
	e4 := e2 * e2
	e6 := e4 * e2
	m := (y - tm35FalseNorth) / tm35Scale
	mu := m / (grs80A * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin, cos, tan := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
	c1 := ep2 * cos * cos
	t1 := tan * tan
	n1 := grs80A / math.Sqrt(1-e2*sin*sin)
	r1 := grs80A * (1 - e2) / math.Pow(1-e2*sin*sin, 1.5)
	d := (x - tm35FalseEast) / (n1 * tm35Scale)

	phi := phi1 - (n1*tan/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := (d - (1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120) / cos

	return tm35Meridian + lam*180/math.Pi, phi * 180 / math.Pi
}

// ProjectionToLonLat 按坐标系名称返回到经纬度的转换函数
func ProjectionToLonLat(crs string) (func(x, y float64) (float64, float64), error) {
	switch strings.ToUpper(strings.TrimSpace(crs)) {
	case "EPSG:3067", "3067":
		return TM35FINToLonLat, nil
	case "EPSG:4326", "4326", "EPSG:4258", "4258":
		return func(x, y float64) (float64, float64) { return x, y }, nil
	default:
		return nil, fmt.Errorf("unsupported coordinate system %q", crs)
	}
}

// LonLatToProjection 按坐标系名称返回经纬度到投影坐标的转换函数
func LonLatToProjection(crs string) (func(lon, lat float64) (float64, float64), error) {
	switch strings.ToUpper(strings.TrimSpace(crs)) {
	case "EPSG:3067", "3067":
		return LonLatToTM35FIN, nil
	case "EPSG:4326", "4326", "EPSG:4258", "4258":
		return func(lon, lat float64) (float64, float64) { return lon, lat }, nil
	default:
		return nil, fmt.Errorf("unsupported coordinate system %q", crs)
	}
}
