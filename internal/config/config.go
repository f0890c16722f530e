package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Gesture struct {
		PollInterval       string `yaml:"poll_interval"`
		StabilityThreshold int    `yaml:"stability_threshold"`
		BurstSize          int    `yaml:"burst_size"`
		BurstDelay         string `yaml:"burst_delay"`
		ClassifierTimeout  string `yaml:"classifier_timeout"`
		Cooldown           string `yaml:"cooldown"`
		FrameMaxAge        string `yaml:"frame_max_age"`
	} `yaml:"gesture"`
	Classifier struct {
		Model             string  `yaml:"model"`
		APIKey            string  `yaml:"api_key"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"classifier"`
	Tracing struct {
		JaegerEndpoint string `yaml:"jaeger_endpoint"`
		ServiceName    string `yaml:"service_name"`
	} `yaml:"tracing"`
}

// Load reads YAML config from path. GEMINI_API_KEY, when set, wins over the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Int returns v, or fallback when v is not positive.
func Int(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
