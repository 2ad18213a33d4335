package models

// Tile MBTiles 瓦片表（terrain-RGB 高程瓦片），tile_row 为 TMS 行号
type Tile struct {
	ZoomLevel  int64
	TileColumn int64
	TileRow    int64
	TileData   []byte
}
