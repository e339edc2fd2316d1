package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryValidatesAtStartup(t *testing.T) {
	_, err := NewRegistry("default", map[string]Endpoint{
		"media": {Name: "media", UploadURL: "http://x/upload"},
	})
	assert.Error(t, err, "missing default entry must fail construction")

	_, err = NewRegistry("default", map[string]Endpoint{
		"default": {Name: "default"},
	})
	assert.Error(t, err, "entry without upload URL must fail construction")
}

func TestRegistryResolveFallsBackToDefault(t *testing.T) {
	reg, err := DefaultRegistry("http://127.0.0.1:53419/")
	require.NoError(t, err)

	ep := reg.Resolve("media")
	assert.Equal(t, "media", ep.Name)

	ep = reg.Resolve("no-such-context")
	assert.Equal(t, "default", ep.Name)
	assert.Equal(t, "http://127.0.0.1:53419/api/filegate/v1/upload", ep.UploadURL)
	assert.Equal(t, "http://127.0.0.1:53419/api/filegate/v1/scan", ep.ScanURL)

	ep = reg.Resolve("  attachment  ")
	assert.Equal(t, "attachment", ep.Name, "context strings are trimmed before lookup")
}
