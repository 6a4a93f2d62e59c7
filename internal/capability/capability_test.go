package capability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fitroom/internal/models"
)

func TestPresetFollowsWeakestTier(t *testing.T) {
	cfg := &models.Config{
		Device: models.DeviceConfig{MemoryTier: "low", GPUTier: "high", NetworkTier: "high"},
	}
	cap := Probe(cfg)
	require.Equal(t, 480, cap.Preset.MaxEdge)
	require.False(t, cap.OnDeviceSupported)
}

func TestUnknownTierDefaultsToMedium(t *testing.T) {
	cfg := &models.Config{
		Device: models.DeviceConfig{MemoryTier: "turbo", GPUTier: "", NetworkTier: "medium"},
	}
	cap := Probe(cfg)
	require.Equal(t, TierMedium, cap.MemoryTier)
	require.Equal(t, 800, cap.Preset.MaxEdge)
}

func TestProbeDetectsLocalEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &models.Config{
		Device:  models.DeviceConfig{MemoryTier: "high", GPUTier: "high", NetworkTier: "high"},
		Removal: models.RemovalConfig{LocalEndpoint: srv.URL},
	}
	cap := Probe(cfg)
	require.True(t, cap.OnDeviceSupported)
	require.Equal(t, 1280, cap.Preset.MaxEdge)
}

func TestProbeUnreachableEndpoint(t *testing.T) {
	cfg := &models.Config{
		Removal: models.RemovalConfig{LocalEndpoint: "http://127.0.0.1:1/matting"},
	}
	require.False(t, Probe(cfg).OnDeviceSupported)
}
