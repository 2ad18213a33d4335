package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrParcelNotFound = errors.New("parcel not found")

// ParcelService 通过 WFS 2.0 获取地块边界
type ParcelService struct {
	URL     string
	Layer   string
	IDField string
	client  *http.Client
}

// NewParcelService 创建 WFS 地块服务
func NewParcelService(wfsURL, layer, idField string) *ParcelService {
	return &ParcelService{
		URL:     wfsURL,
		Layer:   layer,
		IDField: idField,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// RequestURL 构造 GetFeature 请求地址
func (s *ParcelService) RequestURL(parcelID string) (string, error) {
	base, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("invalid wfs url: %w", err)
	}
	params := base.Query()
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeName", s.Layer)
	params.Set("outputFormat", "application/json")
	params.Set("CQL_FILTER", fmt.Sprintf("%s='%s'", s.IDField, strings.ReplaceAll(parcelID, "'", "''")))
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// FetchPolygon 获取地块的第一个面要素
func (s *ParcelService) FetchPolygon(ctx context.Context, parcelID string) (orb.Polygon, error) {
	requestURL, err := s.RequestURL(parcelID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wfs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wfs request: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode wfs response: %w", err)
	}
	log.Printf("地块 %s 查询结果: %d 个要素", parcelID, len(fc.Features))

	for _, feature := range fc.Features {
		if polygon, err := Tin.PolygonFromGeometry(feature.Geometry); err == nil {
			return polygon, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrParcelNotFound, parcelID)
}
