package Transformer

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// DatToSurveyPoints 读取 CASS 格式 dat：点名,编码,X,Y,H
func DatToSurveyPoints(FilePath string) ([]SurveyPoint, error) {
	file, err := os.Open(FilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var points []SurveyPoint
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		Coord := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(Coord) < 5 {
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(Coord[2]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(Coord[3]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(Coord[4]), 64)
		if errX != nil || errY != nil || errZ != nil {
			log.Printf("跳过无效行: %s", scanner.Text())
			continue
		}
		points = append(points, SurveyPoint{Name: GbkToUtf8(Coord[0]), X: x, Y: y, Z: z})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSurveyPoints, FilePath)
	}
	return points, nil
}
