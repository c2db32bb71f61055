package granule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/provider"
)

const enricherPayloadYAML = `
config:
  provider:
    id: test-provider
    protocol: http
    host: data.example.com
  collection:
    name: MOD09GQ
    version: "006"
    granuleIdExtraction: '^(MOD09GQ\.A\d{7}\.\w{6}\.\d{3}\.\d{13})'
    provider_path: granules
    url_path: 'collection-default'
    files:
      - regex: '\.hdf$'
        bucket: protected
        url_path: 'granule-data'
        type: data
      - regex: '\.met$'
        bucket: private
        type: metadata
  buckets:
    protected:
      name: strata-protected
      type: protected
    private:
      name: strata-private
      type: private
`

// parseTaskConfig runs a payload document through validation so rule
// patterns are compiled the same way they are in production
func parseTaskConfig(t *testing.T, doc string) *config.TaskConfig {
	t.Helper()

	payload, err := config.ParsePayload([]byte(doc))
	require.NoError(t, err)
	return &payload.Config
}

func TestNewEnricher(t *testing.T) {
	t.Parallel()

	enricher, err := NewEnricher(parseTaskConfig(t, enricherPayloadYAML))
	require.NoError(t, err)
	assert.NotNil(t, enricher)
}

func TestDefaultEnricher_BuildGranule(t *testing.T) {
	t.Parallel()

	enricher, err := NewEnricher(parseTaskConfig(t, enricherPayloadYAML))
	require.NoError(t, err)

	files := []provider.FileInfo{
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", Path: "granules", Size: 1098034, Time: 1486123200000},
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf.met", Path: "granules", Size: 21708},
	}

	g, dropped := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104", files)

	assert.Zero(t, dropped)
	assert.Equal(t, "MOD09GQ.A2017025.h21v00.006.2017034065104", g.GranuleID)
	assert.Equal(t, "MOD09GQ", g.DataType)
	assert.Equal(t, "006", g.Version)

	require.Len(t, g.Files, 2)

	hdf := g.Files[0]
	assert.Equal(t, "strata-protected", hdf.Bucket)
	assert.Equal(t, "granule-data", hdf.URLPath)
	assert.Equal(t, "data", hdf.Type)
	assert.Equal(t, files[0], hdf.FileInfo)

	met := g.Files[1]
	assert.Equal(t, "strata-private", met.Bucket)
	assert.Equal(t, "collection-default", met.URLPath, "rule without url_path falls back to the collection url_path")
	assert.Equal(t, "metadata", met.Type)
}

func TestDefaultEnricher_BuildGranule_DropsUnmatchedFiles(t *testing.T) {
	t.Parallel()

	enricher, err := NewEnricher(parseTaskConfig(t, enricherPayloadYAML))
	require.NoError(t, err)

	files := []provider.FileInfo{
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", Path: "granules"},
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.cmr.xml", Path: "granules"},
	}

	g, dropped := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104", files)

	assert.Equal(t, 1, dropped)
	require.Len(t, g.Files, 1)
	assert.Equal(t, "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", g.Files[0].Name)
}

func TestDefaultEnricher_BuildGranule_AllFilesDropped(t *testing.T) {
	t.Parallel()

	enricher, err := NewEnricher(parseTaskConfig(t, enricherPayloadYAML))
	require.NoError(t, err)

	g, dropped := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104",
		[]provider.FileInfo{{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.cmr.xml"}})

	assert.Equal(t, 1, dropped)
	assert.NotNil(t, g.Files, "granules keep an empty file list rather than a null one")
	assert.Empty(t, g.Files)
	assert.Equal(t, "MOD09GQ.A2017025.h21v00.006.2017034065104", g.GranuleID)
}

func TestDefaultEnricher_BuildGranule_FirstMatchWins(t *testing.T) {
	t.Parallel()

	doc := `
config:
  provider:
    id: test-provider
    protocol: http
    host: data.example.com
  collection:
    name: MOD09GQ
    version: "006"
    granuleIdExtraction: '^(MOD09GQ\.A\d{7}\.\w{6}\.\d{3}\.\d{13})'
    files:
      - regex: '2017034065104\.hdf$'
        bucket: protected
        type: exact
      - regex: '\.hdf$'
        bucket: private
        type: broad
  buckets:
    protected:
      name: strata-protected
    private:
      name: strata-private
`
	enricher, err := NewEnricher(parseTaskConfig(t, doc))
	require.NoError(t, err)

	g, dropped := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104",
		[]provider.FileInfo{{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf"}})

	assert.Zero(t, dropped)
	require.Len(t, g.Files, 1)
	assert.Equal(t, "strata-protected", g.Files[0].Bucket)
	assert.Equal(t, "exact", g.Files[0].Type)
}

func TestDefaultEnricher_BuildGranule_Passthrough(t *testing.T) {
	t.Parallel()

	doc := `
config:
  provider:
    id: test-provider
    protocol: http
    host: data.example.com
  collection:
    name: MOD09GQ
    version: "006"
    granuleIdExtraction: '^(MOD09GQ\.A\d{7}\.\w{6}\.\d{3}\.\d{13})'
    files:
      - regex: '\.hdf$'
        bucket: protected
  buckets:
    protected:
      name: strata-protected
  ignoreFilesConfigForDiscovery: true
`
	enricher, err := NewEnricher(parseTaskConfig(t, doc))
	require.NoError(t, err)

	files := []provider.FileInfo{
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", Path: "granules"},
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.cmr.xml", Path: "granules"},
	}

	g, dropped := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104", files)

	assert.Zero(t, dropped, "passthrough keeps files no rule matches")
	require.Len(t, g.Files, 2)
	for i, f := range g.Files {
		assert.Equal(t, files[i], f.FileInfo)
		assert.Empty(t, f.Bucket)
		assert.Empty(t, f.URLPath)
		assert.Empty(t, f.Type)
	}
}

func TestGranule_JSONShape(t *testing.T) {
	t.Parallel()

	enricher, err := NewEnricher(parseTaskConfig(t, enricherPayloadYAML))
	require.NoError(t, err)

	g, _ := enricher.BuildGranule(t.Context(), "MOD09GQ.A2017025.h21v00.006.2017034065104",
		[]provider.FileInfo{
			{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", Path: "granules", Size: 1098034, Time: 1486123200000},
		})

	encoded, err := json.Marshal(g)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"granuleId": "MOD09GQ.A2017025.h21v00.006.2017034065104",
		"dataType": "MOD09GQ",
		"version": "006",
		"files": [
			{
				"name": "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf",
				"path": "granules",
				"size": 1098034,
				"time": 1486123200000,
				"bucket": "strata-protected",
				"url_path": "granule-data",
				"type": "data"
			}
		]
	}`, string(encoded))
}
