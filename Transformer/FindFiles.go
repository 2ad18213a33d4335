package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func FindFiles(root string, Exc string) []string {
	var files []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), "."+Exc) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// LoadSurveyPoints 按扩展名读取测量点文件；目录则读取其中全部 txt/csv/xyz/dat/dxf 文件
func LoadSurveyPoints(path string) ([][3]float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return loadSurveyFile(path)
	}

	var files []string
	for _, ext := range []string{"txt", "csv", "xyz", "dat", "dxf"} {
		files = append(files, FindFiles(path, ext)...)
	}
	sort.Strings(files)

	var points [][3]float64
	for _, f := range files {
		pts, err := loadSurveyFile(f)
		if err != nil {
			return nil, err
		}
		points = append(points, pts...)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSurveyPoints, path)
	}
	return points, nil
}

func loadSurveyFile(path string) ([][3]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		return DXFToPoints(path)
	case ".dat":
		survey, err := DatToSurveyPoints(path)
		if err != nil {
			return nil, err
		}
		return surveyCoords(survey), nil
	default:
		return TxtToPoints(path)
	}
}
