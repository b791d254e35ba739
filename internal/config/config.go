package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port string `yaml:"port"`

	OpenWeatherAPIKey  string `yaml:"openweather_api_key"`
	OpenWeatherBaseURL string `yaml:"openweather_base_url"`

	// HTTPTimeout bounds every outbound call.
	HTTPTimeout        time.Duration `yaml:"-"`
	UpstreamMaxRetries int           `yaml:"upstream_max_retries"`

	DatasetPath string `yaml:"dataset_path"`
	ModelPath   string `yaml:"model_path"`
	// ModelURL, when set, selects a remote ML service instead of ModelPath.
	ModelURL string `yaml:"model_url"`

	GeocoderAPIKey  string `yaml:"geocoder_api_key"`
	GeocoderCountry string `yaml:"geocoder_country"`

	// Upstream probe; disabled when ProbeInterval is 0 or no coordinate is set.
	ProbeInterval time.Duration `yaml:"-"`
	ProbeLat      *float64      `yaml:"probe_lat"`
	ProbeLng      *float64      `yaml:"probe_lng"`

	TopStatesLimit int `yaml:"top_states_limit"`

	// Durations are read from YAML as strings.
	RawHTTPTimeout   string `yaml:"http_timeout"`
	RawProbeInterval string `yaml:"probe_interval"`
}

// ProbeEnabled reports whether the upstream probe should be scheduled.
func (c *AppConfig) ProbeEnabled() bool {
	return c.ProbeInterval > 0 && c.ProbeLat != nil && c.ProbeLng != nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Port:             "7860",
		DatasetPath:      "india_air_quality_data.csv",
		ModelPath:        "air_quality_model.json",
		GeocoderCountry:  "India",
		TopStatesLimit:   15,
		RawHTTPTimeout:   "10s",
		RawProbeInterval: "0",
	}
}

// Load reads configuration from an optional YAML file named by CONFIG_PATH,
// then from the environment, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", cfg.OpenWeatherBaseURL)
	cfg.DatasetPath = getenvDefault("DATASET_PATH", cfg.DatasetPath)
	cfg.ModelPath = getenvDefault("MODEL_PATH", cfg.ModelPath)
	cfg.ModelURL = getenvDefault("MODEL_URL", cfg.ModelURL)
	cfg.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", cfg.GeocoderAPIKey)
	cfg.GeocoderCountry = getenvDefault("GEOCODER_COUNTRY", cfg.GeocoderCountry)

	var err error
	if cfg.UpstreamMaxRetries, err = getenvInt("UPSTREAM_MAX_RETRIES", cfg.UpstreamMaxRetries); err != nil {
		return nil, err
	}
	if cfg.UpstreamMaxRetries < 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_MAX_RETRIES: must not be negative")
	}
	if cfg.TopStatesLimit, err = getenvInt("TOP_STATES_LIMIT", cfg.TopStatesLimit); err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", cfg.RawHTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}
	cfg.HTTPTimeout = timeout

	interval, err := time.ParseDuration(getenvDefault("PROBE_INTERVAL", cfg.RawProbeInterval))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL: %w", err)
	}
	cfg.ProbeInterval = interval

	if cfg.ProbeLat, err = getenvFloat("PROBE_LAT", cfg.ProbeLat); err != nil {
		return nil, err
	}
	if cfg.ProbeLng, err = getenvFloat("PROBE_LNG", cfg.ProbeLng); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def *float64) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
