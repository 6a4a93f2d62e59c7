package models

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr  string `yaml:"server_addr"`
	DatabaseURL string `yaml:"database_url"`
	KafkaBroker string `yaml:"kafka_broker"`
	KafkaTopic  string `yaml:"kafka_topic"`
	StoragePath string `yaml:"storage_path"`

	CanvasWidth   int    `yaml:"canvas_width"`
	CanvasHeight  int    `yaml:"canvas_height"`
	WatermarkText string `yaml:"watermark_text"`

	Removal RemovalConfig `yaml:"removal"`
	Device  DeviceConfig  `yaml:"device"`
}

type RemovalConfig struct {
	PreferredMethod     RemovalMethod `yaml:"preferred_method"`
	LocalEndpoint       string        `yaml:"local_endpoint"`
	RemoteEndpoint      string        `yaml:"remote_endpoint"`
	RemoteAPIKey        string        `yaml:"remote_api_key"`
	TimeoutSeconds      int           `yaml:"timeout_seconds"`
	AllowRemoteFallback bool          `yaml:"allow_remote_fallback"`
}

// DeviceConfig carries the tier hints folded into the one-time capability
// probe; stages never read these directly.
type DeviceConfig struct {
	MemoryTier  string `yaml:"memory_tier"`
	GPUTier     string `yaml:"gpu_tier"`
	NetworkTier string `yaml:"network_tier"`
}

func (r RemovalConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.CanvasWidth <= 0 {
		cfg.CanvasWidth = 600
	}
	if cfg.CanvasHeight <= 0 {
		cfg.CanvasHeight = 800
	}
	if cfg.Removal.PreferredMethod == "" {
		cfg.Removal.PreferredMethod = MethodOnDevice
	}
	return &cfg, nil
}
