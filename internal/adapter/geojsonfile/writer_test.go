package geojsonfile

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() domain.Dataset {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return domain.BuildDataset([]domain.RawRecord{
		{"施設名": "第一小学校", "北緯": 35.6895, "東経": 139.6917, "収容人数": 600.0, "地区": "中央"},
	}, domain.DefaultColumns(), logger)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleDataset()))

	var body struct {
		GeoJSON struct {
			Features []struct {
				Properties map[string]any `json:"properties"`
			} `json:"features"`
		} `json:"geoJson"`
		Districts []string `json:"districts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &body))
	require.Len(t, body.GeoJSON.Features, 1)
	assert.Equal(t, "第一小学校", body.GeoJSON.Features[0].Properties["name"])
	assert.Equal(t, "large", body.GeoJSON.Features[0].Properties["sizeCategory"])
	assert.Equal(t, []string{"中央"}, body.Districts)
	assert.Contains(t, buf.String(), "第一小学校", "non-ASCII is written unescaped")
}

func TestWriteFile_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelters.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	require.NoError(t, WriteFile(path, sampleDataset()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), `"FeatureCollection"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "nope", "out.json"), sampleDataset())
	assert.Error(t, err)
}
