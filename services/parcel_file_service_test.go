package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileParcelService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"PERUSLOHKOTUNNUS":"a"},"geometry":{"type":"Point","coordinates":[385600,6672100]}},
{"type":"Feature","properties":{"PERUSLOHKOTUNNUS":9750925303},"geometry":{"type":"Polygon","coordinates":[[[385600,6672100],[385640,6672100],[385640,6672140],[385600,6672100]]]}}]}`), 0o644))

	s := NewFileParcelService(path, "PERUSLOHKOTUNNUS", "EPSG:3067")
	poly, err := s.FetchPolygon(context.Background(), "9750925303")
	require.NoError(t, err)
	assert.Len(t, poly[0], 4)

	_, err = s.FetchPolygon(context.Background(), "a")
	assert.True(t, errors.Is(err, ErrParcelNotFound), "point features are skipped")

	_, err = s.FetchPolygon(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrParcelNotFound))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FetchPolygon(ctx, "9750925303")
	assert.Error(t, err)
}

func TestFileParcelService_BadFile(t *testing.T) {
	s := NewFileParcelService(filepath.Join(t.TempDir(), "none.kml"), "id", "EPSG:3067")
	_, err := s.FetchPolygon(context.Background(), "1")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrParcelNotFound))
}
