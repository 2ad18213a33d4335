package tile_proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GrainArc/TinFlow/pgmvt"
)

const (
	MaxRetries   = 3
	RetryDelay   = 500 * time.Millisecond
	RetryBackoff = 2
)

var errInvalidTile = errors.New("invalid tile data")

// Fetcher 按 XYZ 模板下载 terrain-RGB 瓦片，{-y} 为 TMS 行号
type Fetcher struct {
	Template   string
	httpClient *http.Client
	cache      *TileCache
	retryDelay time.Duration
}

// NewFetcher 创建下载器
func NewFetcher(template string) *Fetcher {
	return &Fetcher{
		Template: template,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache:      NewTileCache(20000, 24*time.Hour),
		retryDelay: RetryDelay,
	}
}

// Close 释放缓存协程
func (f *Fetcher) Close() error {
	f.cache.Close()
	return nil
}

// BuildTileURL 构建瓦片URL
func BuildTileURL(template string, t pgmvt.Tile) string {
	url := template
	url = strings.ReplaceAll(url, "{z}", strconv.FormatInt(t.Z, 10))
	url = strings.ReplaceAll(url, "{x}", strconv.FormatInt(t.X, 10))
	url = strings.ReplaceAll(url, "{y}", strconv.FormatInt(t.Y, 10))
	url = strings.ReplaceAll(url, "{-y}", strconv.FormatInt(t.TMSRow(), 10))
	return url
}

// LoadTile 读取瓦片；服务端 404 时返回 (nil, nil)
func (f *Fetcher) LoadTile(t pgmvt.Tile) ([]byte, error) {
	return f.Fetch(context.Background(), t)
}

// Fetch 先查缓存，再带重试下载
func (f *Fetcher) Fetch(ctx context.Context, t pgmvt.Tile) ([]byte, error) {
	if data, ok := f.cache.Get(t); ok {
		return data, nil
	}
	data, err := f.fetchTileWithRetry(ctx, BuildTileURL(f.Template, t), MaxRetries)
	if err != nil {
		return nil, err
	}
	f.cache.Set(t, data)
	return data, nil
}

// fetchTileWithRetry 带重试的瓦片获取
func (f *Fetcher) fetchTileWithRetry(ctx context.Context, url string, maxRetries int) ([]byte, error) {
	var lastErr error
	delay := f.retryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = delay * time.Duration(RetryBackoff)
			}
		}

		data, status, err := f.fetchTile(ctx, url)
		if status == http.StatusNotFound {
			return nil, nil
		}
		if err == nil && !isValidTileData(data) {
			err = errInvalidTile
		}
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

// fetchTile 获取单个瓦片
func (f *Fetcher) fetchTile(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "TinFlow/1.0")
	req.Header.Set("Accept", "image/webp,image/png,image/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch tile failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("tile server returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response failed: %w", err)
	}
	return data, resp.StatusCode, nil
}

var (
	pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	riffTag      = []byte("RIFF")
	webpTag      = []byte("WEBP")
)

// isValidTileData 只接受 PNG 或 WebP
func isValidTileData(data []byte) bool {
	if bytes.HasPrefix(data, pngSignature) {
		return true
	}
	return len(data) >= 12 && bytes.Equal(data[:4], riffTag) && bytes.Equal(data[8:12], webpTag)
}
