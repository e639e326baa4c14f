package deploy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"iot-fleet-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(t *testing.T, root, owner, udid string, envelope Envelope) {
	t.Helper()
	dir := filepath.Join(root, owner, udid)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "envelope.json"), data, 0o644))
}

func TestHasUpdateAvailable(t *testing.T) {
	root := t.TempDir()
	resolver := NewFilesystemResolver(root)
	device := &models.Device{UDID: "device-1", Owner: "owner-1", Version: "1.0.0"}

	t.Run("no envelope", func(t *testing.T) {
		assert.False(t, resolver.HasUpdateAvailable(device))
	})

	t.Run("newer version", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-1", Envelope{Version: "1.1.0"})
		assert.True(t, resolver.HasUpdateAvailable(device))
	})

	t.Run("same version", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-1", Envelope{Version: "1.0.0"})
		assert.False(t, resolver.HasUpdateAvailable(device))
	})

	t.Run("older version", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-1", Envelope{Version: "0.9.0"})
		assert.False(t, resolver.HasUpdateAvailable(device))
	})

	t.Run("unparseable version", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-1", Envelope{Version: "latest"})
		assert.False(t, resolver.HasUpdateAvailable(device))
	})
}

func TestLatestEnvelope(t *testing.T) {
	root := t.TempDir()
	resolver := NewFilesystemResolver(root)
	device := &models.Device{UDID: "device-1", Owner: "owner-1"}

	_, err := resolver.LatestEnvelope(device)
	assert.ErrorIs(t, err, ErrNoEnvelope)

	writeEnvelope(t, root, "owner-1", "device-1", Envelope{
		URL:      "https://example.com/fw.bin",
		Version:  "2.0.0",
		Checksum: "cafe",
	})

	envelope, err := resolver.LatestEnvelope(device)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fw.bin", envelope.URL)
	assert.Equal(t, "2.0.0", envelope.Version)
	assert.Equal(t, "cafe", envelope.Checksum)
}

func TestLatestFirmwarePath(t *testing.T) {
	root := t.TempDir()
	resolver := NewFilesystemResolver(root)

	t.Run("no envelope", func(t *testing.T) {
		assert.Empty(t, resolver.LatestFirmwarePath("owner-1", "device-1"))
	})

	t.Run("artifact missing on disk", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-1", Envelope{Artifact: "fw.bin"})
		assert.Empty(t, resolver.LatestFirmwarePath("owner-1", "device-1"))
	})

	t.Run("artifact present", func(t *testing.T) {
		artifact := filepath.Join(root, "owner-1", "device-1", "fw.bin")
		require.NoError(t, os.WriteFile(artifact, []byte("binary"), 0o644))
		assert.Equal(t, artifact, resolver.LatestFirmwarePath("owner-1", "device-1"))
	})

	t.Run("envelope without artifact", func(t *testing.T) {
		writeEnvelope(t, root, "owner-1", "device-2", Envelope{Version: "1.0.0"})
		assert.Empty(t, resolver.LatestFirmwarePath("owner-1", "device-2"))
	})
}

func TestInitIsIdempotent(t *testing.T) {
	root := t.TempDir()
	resolver := NewFilesystemResolver(root)

	require.NoError(t, resolver.InitWithOwner("owner-1"))
	require.NoError(t, resolver.InitWithOwner("owner-1"))
	require.NoError(t, resolver.InitWithDevice("owner-1", "device-1"))
	require.NoError(t, resolver.InitWithDevice("owner-1", "device-1"))

	info, err := os.Stat(resolver.PathForDevice("owner-1", "device-1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestVersionNewer(t *testing.T) {
	tests := []struct {
		candidate string
		current   string
		expected  bool
	}{
		{"1.1.0", "1.0.0", true},
		{"2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.0", false},
		{"0.9.0", "1.0.0", false},
		{"garbage", "1.0.0", false},
		{"1.0.0", "garbage", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, versionNewer(tt.candidate, tt.current),
			"%s vs %s", tt.candidate, tt.current)
	}
}
