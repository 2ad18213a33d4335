package methods

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// starMesh 中心三角形 t0 (高程 9) 被 t1..t3 (6, 7, 8) 包围
func starMesh(t *testing.T) *Tin.Mesh {
	t.Helper()
	mesh, err := Tin.Enrich(&Tin.RawGeometry{
		Metadata: Tin.Metadata{CRS: "EPSG:3067"},
		Points: [][3]float64{
			{0, 0, 9}, {10, 0, 9}, {5, 8, 9},
			{5, -8, 0}, {12, 8, 3}, {-2, 8, 6},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 1, 3}, {1, 2, 4}, {2, 0, 5}},
	})
	require.NoError(t, err)
	return mesh
}

func TestFlowLines(t *testing.T) {
	mesh := starMesh(t)
	fc := FlowLines(mesh, "EPSG:3067")

	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "t0", f.Properties["from"])
	assert.Equal(t, "t1", f.Properties["to"])
	assert.Equal(t, 9.0, f.Properties["height_from"])
	assert.Equal(t, 6.0, f.Properties["height_to"])

	line, ok := f.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.InDelta(t, 5.0, line[0][0], 1e-9)
	assert.InDelta(t, 8.0/3, line[0][1], 1e-9)
}

func TestFlowNetwork(t *testing.T) {
	mesh := starMesh(t)
	fc := FlowNetwork(mesh, mesh.TraceAll(2), "")

	require.Len(t, fc.Features, 5)

	center := fc.Features[0]
	assert.Equal(t, LayerTriangles, center.Properties["layer"])
	assert.Equal(t, "t0", center.Properties["id"])
	assert.Equal(t, 0, center.Properties["sink"])
	assert.Equal(t, "t0->t1", center.Properties["flow_path"])
	assert.Equal(t, "boundary_sink", center.Properties["outcome"])
	assert.Equal(t, 3, center.Properties["neighbor_count"])

	poly, ok := center.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 4)
	assert.Equal(t, poly[0][0], poly[0][3])

	edge := fc.Features[2]
	assert.Equal(t, "t2", edge.Properties["flow_path"])
	assert.Equal(t, 1, edge.Properties["neighbor_count"])

	line := fc.Features[4]
	assert.Equal(t, LayerFlowLines, line.Properties["layer"])
	assert.Equal(t, "t0->t1", line.Properties["full_path"])
}

func TestFlowNetwork_SinkWithoutPath(t *testing.T) {
	mesh := starMesh(t)
	paths := mesh.TraceAll(1)
	paths[0] = Tin.PathResult{Start: 0, Path: []Tin.TriangleID{0}, Outcome: Tin.InteriorPit}

	fc := FlowNetwork(mesh, paths, "")
	assert.Equal(t, 1, fc.Features[0].Properties["sink"])
	assert.Equal(t, "", fc.Features[0].Properties["flow_path"])
	// 无路径时没有第一步连线
	assert.Len(t, fc.Features, 4)
}

func TestAccumulationLayer(t *testing.T) {
	mesh := starMesh(t)
	acc := mesh.FlowAccumulation()
	fc := AccumulationLayer(mesh, acc, 1.2, "EPSG:3067")

	require.Len(t, fc.Features, 4)
	assert.Equal(t, 1.0, fc.Features[0].Properties["acc"])
	assert.Equal(t, false, fc.Features[0].Properties["stream"])
	assert.InDelta(t, 4.0/3, fc.Features[1].Properties["acc"].(float64), 1e-12)
	assert.Equal(t, true, fc.Features[1].Properties["stream"])

	noStreams := AccumulationLayer(mesh, acc, 0, "EPSG:3067")
	assert.Equal(t, false, noStreams.Features[1].Properties["stream"])
}

func TestWriteGeoJSON_CarriesCRS(t *testing.T) {
	mesh := starMesh(t)
	path := filepath.Join(t.TempDir(), "out", "flow_lines.geojson")
	require.NoError(t, WriteGeoJSON(path, FlowLines(mesh, "EPSG:3067")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Type string `json:"type"`
		CRS  struct {
			Type       string            `json:"type"`
			Properties map[string]string `json:"properties"`
		} `json:"crs"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Equal(t, "name", doc.CRS.Type)
	assert.Equal(t, "EPSG:3067", doc.CRS.Properties["name"])
	assert.Len(t, doc.Features, 1)
}

func TestConvertFlowToDXF(t *testing.T) {
	mesh := starMesh(t)
	path := filepath.Join(t.TempDir(), "flow.dxf")
	require.NoError(t, ConvertFlowToDXF(FlowNetwork(mesh, mesh.TraceAll(1), ""), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "LWPOLYLINE"))
	assert.True(t, strings.Contains(content, LayerTriangles))
	assert.True(t, strings.Contains(content, LayerFlowLines))
}

func TestPackAndUnpack(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.geojson")
	b := filepath.Join(dir, "b.geojson")
	require.NoError(t, os.WriteFile(a, []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`{"b":2}`), 0o644))

	dest := filepath.Join(dir, "pack", "outputs.zip")
	require.NoError(t, PackOutputs([]string{a, b}, dest))
	// 覆盖已有压缩包
	require.NoError(t, PackOutputs([]string{a, b}, dest))

	reader, err := zip.OpenReader(dest)
	require.NoError(t, err)
	assert.Len(t, reader.File, 2)
	reader.Close()

	unpacked, err := Unpack(dest, filepath.Join(dir, "extract"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(unpacked, "a.geojson"))
	assert.FileExists(t, filepath.Join(unpacked, "b.geojson"))

	assert.Error(t, PackOutputs(nil, dest))
	_, err = Unpack(a, dir)
	assert.Error(t, err)
	assert.True(t, IsArchive("x.RAR"))
}

func TestDeleteFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.geojson"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("x"), 0o644))

	require.NoError(t, DeleteFiles(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, dir)

	assert.NoError(t, DeleteFiles(filepath.Join(dir, "missing")))
}

func TestSafeDirName(t *testing.T) {
	assert.Equal(t, "9750925303", SafeDirName("9750925303"))
	assert.Equal(t, "dikuai_1", SafeDirName("地块 1"))
	assert.Equal(t, "_x", SafeDirName("../x"))
	assert.Equal(t, "_", SafeDirName(".."))
	assert.Equal(t, "_", SafeDirName(""))
}
