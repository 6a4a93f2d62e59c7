// Package capability holds the probe-once device capability value consulted
// by every pipeline stage. Nothing outside this package re-queries support
// or tiers per call.
package capability

import (
	"net/http"
	"time"

	"fitroom/internal/models"
)

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// QualityPreset bounds image size before expensive processing, never after.
type QualityPreset struct {
	MaxEdge     int
	JPEGQuality int
}

var presets = map[Tier]QualityPreset{
	TierLow:    {MaxEdge: 480, JPEGQuality: 60},
	TierMedium: {MaxEdge: 800, JPEGQuality: 75},
	TierHigh:   {MaxEdge: 1280, JPEGQuality: 90},
}

type Capability struct {
	OnDeviceSupported bool
	MemoryTier        Tier
	GPUTier           Tier
	NetworkTier       Tier
	Preset            QualityPreset
}

const probeTimeout = 2 * time.Second

// Probe runs once at startup. On-device support means the local inference
// endpoint answers; the quality preset follows the weakest configured tier.
func Probe(cfg *models.Config) *Capability {
	cap := &Capability{
		MemoryTier:  parseTier(cfg.Device.MemoryTier),
		GPUTier:     parseTier(cfg.Device.GPUTier),
		NetworkTier: parseTier(cfg.Device.NetworkTier),
	}
	cap.Preset = presets[minTier(cap.MemoryTier, cap.GPUTier, cap.NetworkTier)]
	cap.OnDeviceSupported = endpointAlive(cfg.Removal.LocalEndpoint)
	return cap
}

func endpointAlive(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Head(endpoint)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func parseTier(s string) Tier {
	switch Tier(s) {
	case TierLow, TierMedium, TierHigh:
		return Tier(s)
	}
	return TierMedium
}

func rank(t Tier) int {
	switch t {
	case TierLow:
		return 0
	case TierHigh:
		return 2
	}
	return 1
}

func minTier(ts ...Tier) Tier {
	min := TierHigh
	for _, t := range ts {
		if rank(t) < rank(min) {
			min = t
		}
	}
	return min
}
