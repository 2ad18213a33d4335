package tile_proxy

import (
	"sync"
	"time"

	"github.com/GrainArc/TinFlow/pgmvt"
)

// CacheItem 缓存项，Data 为 nil 表示瓦片不存在
type CacheItem struct {
	Data      []byte
	ExpiresAt time.Time
}

// TileCache 瓦片缓存
type TileCache struct {
	mu      sync.RWMutex
	items   map[pgmvt.Tile]*CacheItem
	maxSize int
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewTileCache 创建瓦片缓存
func NewTileCache(maxSize int, ttl time.Duration) *TileCache {
	cache := &TileCache{
		items:   make(map[pgmvt.Tile]*CacheItem),
		maxSize: maxSize,
		ttl:     ttl,
		stop:    make(chan struct{}),
	}

	// 启动清理协程
	go cache.cleanupLoop()

	return cache
}

// Get 获取缓存
func (c *TileCache) Get(t pgmvt.Tile) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[t]
	if !ok || time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Data, true
}

// Set 设置缓存
func (c *TileCache) Set(t pgmvt.Tile, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 如果缓存已满，删除最旧的项
	if _, exists := c.items[t]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[t] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// evictOldest 删除最早过期的缓存项
func (c *TileCache) evictOldest() {
	var oldest pgmvt.Tile
	var oldestTime time.Time
	found := false

	for key, item := range c.items {
		if !found || item.ExpiresAt.Before(oldestTime) {
			oldest, oldestTime, found = key, item.ExpiresAt, true
		}
	}
	if found {
		delete(c.items, oldest)
	}
}

// cleanupLoop 定期清理过期缓存
func (c *TileCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup 清理过期缓存
func (c *TileCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}

// Close 停止清理协程
func (c *TileCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Size 获取缓存大小
func (c *TileCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
