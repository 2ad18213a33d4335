package config

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

var MainConfig Config

type Config struct {
	XMLName    xml.Name `xml:"config"`
	MainRouter string   `xml:"MainRouter" validate:"required"`
	WorkDir    string   `xml:"workdir" validate:"required"`

	// 缓存数据库：sqlite 文件、postgres 或 mysql
	DBType   string `xml:"dbtype" validate:"oneof=sqlite postgres mysql"`
	DBPath   string `xml:"dbpath" validate:"required_if=DBType sqlite"`
	Dbname   string `xml:"dbname" validate:"required_if=DBType postgres,required_if=DBType mysql"`
	Host     string `xml:"host" validate:"required_if=DBType postgres,required_if=DBType mysql"`
	Port     string `xml:"port"`
	Username string `xml:"user"`
	Password string `xml:"password"`

	// 三角网
	CRS           string  `xml:"crs" validate:"required"`
	MaxEdge       float64 `xml:"maxedge" validate:"gt=0"`
	VerticalScale float64 `xml:"verticalscale" validate:"gte=0"`

	// 高程采样
	Dem          string  `xml:"dem"`
	DemZoom      int64   `xml:"demzoom" validate:"gte=0,lte=22"`
	SurveyPoints string  `xml:"surveypoints"`
	GridStep     float64 `xml:"gridstep" validate:"gt=0"`
	SampleRadius float64 `xml:"sampleradius" validate:"gte=0"`
	PixelSize    float64 `xml:"pixelsize" validate:"gte=0"`

	// 地块 WFS 服务
	WfsURL     string `xml:"wfsurl" validate:"omitempty,url"`
	WfsLayer   string `xml:"wfslayer"`
	WfsIDField string `xml:"wfsidfield"`
	// 本地地块边界文件，设置后替代 WFS
	ParcelFile string `xml:"parcelfile"`

	// 输出
	StreamThreshold float64 `xml:"streamthreshold" validate:"gte=0"`
	ExportDXF       bool    `xml:"exportdxf"`
	ExportZip       bool    `xml:"exportzip"`
	ExportPNG       bool    `xml:"exportpng"`
	ExportReport    bool    `xml:"exportreport"`
	Workers         int     `xml:"workers" validate:"gte=0"`
}

// Default 与原始脚本一致的默认值
func Default() Config {
	return Config{
		MainRouter:      ":8426",
		WorkDir:         "PL",
		DBType:          "sqlite",
		DBPath:          "PL/tinflow.db",
		Port:            "5432",
		CRS:             "EPSG:3067",
		MaxEdge:         15.0,
		VerticalScale:   0.2,
		DemZoom:         15,
		GridStep:        10,
		SampleRadius:    5,
		WfsURL:          "https://inspire.ruokavirasto-awsa.com/geoserver/wfs",
		WfsLayer:        "inspire:LC.LandCoverSurfaces.LPIS.2024",
		WfsIDField:      "PERUSLOHKOTUNNUS",
		StreamThreshold: 50,
		ExportDXF:       true,
		ExportZip:       true,
		ExportPNG:       true,
		ExportReport:    true,
		Workers:         8,
	}
}

// LoadConfig 读取 XML 配置，未填写的字段使用默认值
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	xmlFile, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	defer xmlFile.Close()

	if err := xml.NewDecoder(xmlFile).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 按结构体标签校验
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DSN 数据库连接串
func (c Config) DSN() string {
	if c.DBType == "mysql" {
		port := c.Port
		if port == "" || port == "5432" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", c.Username, c.Password, c.Host, port, c.Dbname)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", c.Host, c.Username, c.Password, c.Dbname, c.Port)
}
