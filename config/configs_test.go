package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GrainArc/TinFlow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `<config>
  <MainRouter>:9000</MainRouter>
  <workdir>out</workdir>
  <maxedge>20</maxedge>
  <dem>dem.mbtiles</dem>
  <exportdxf>false</exportdxf>
  <parcelfile>parcels.shp</parcelfile>
</config>`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.MainRouter)
	assert.Equal(t, "out", cfg.WorkDir)
	assert.Equal(t, 20.0, cfg.MaxEdge)
	assert.Equal(t, "dem.mbtiles", cfg.Dem)
	assert.False(t, cfg.ExportDXF)
	assert.Equal(t, "parcels.shp", cfg.ParcelFile)
	// 未出现的字段保留默认值
	assert.Equal(t, "EPSG:3067", cfg.CRS)
	assert.Equal(t, 10.0, cfg.GridStep)
	assert.Equal(t, "sqlite", cfg.DBType)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `<config><maxedge>-1</maxedge></config>`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `<config><dbtype>oracle</dbtype></config>`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `<config><dbtype>postgres</dbtype></config>`))
	assert.Error(t, err, "postgres requires host and dbname")

	_, err = LoadConfig(writeConfig(t, `<config><dbtype>mysql</dbtype></config>`))
	assert.Error(t, err, "mysql requires host and dbname")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestInitDatabase_SQLite(t *testing.T) {
	cfg := Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "cache", "flow.db")

	db, err := InitDatabase(cfg)
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.MeshRecord{}))
	assert.True(t, db.Migrator().HasTable(&models.FlowRun{}))
	assert.Same(t, db, GetDB())
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Username: "u", Password: "p", Dbname: "flow", Port: "5433"}
	assert.Equal(t, "host=db user=u password=p dbname=flow port=5433 sslmode=disable TimeZone=UTC", cfg.DSN())

	cfg.DBType = "mysql"
	assert.Equal(t, "u:p@tcp(db:5433)/flow?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
	cfg.Port = ""
	assert.Contains(t, cfg.DSN(), "@tcp(db:3306)/")
}
