package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             string
	DBPath           string
	DataDir          string
	StorageDir       string
	FeatureServerURL string
	FetchInterval    time.Duration
	ProcessInterval  time.Duration
	SchedulerEnabled bool
	Workers          int
}

func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8000"),
		DBPath:           getEnv("DB_PATH", "demographics.db"),
		DataDir:          getEnv("DATA_DIR", "./data"),
		StorageDir:       getEnv("STORAGE_DIR", "./storage"),
		FeatureServerURL: getEnv("FEATURE_SERVER_URL", "https://services.arcgis.com/P3ePLMYs2RVChkJx/ArcGIS/rest/services/USA_Census_Counties/FeatureServer"),
		FetchInterval:    getEnvDuration("FETCH_INTERVAL", 30*time.Minute),
		ProcessInterval:  getEnvDuration("PROCESS_INTERVAL", time.Hour),
		SchedulerEnabled: getEnv("SCHEDULER_ENABLED", "true") == "true",
		Workers:          getEnvInt("WORKERS", 5),
	}
}

// LoadFile overlays values from a YAML config file on top of the environment
// defaults. Zero values in the file leave the corresponding field untouched.
func LoadFile(path string) (Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	// SchedulerEnabled needs a pointer so an absent key is distinguishable
	// from an explicit false. Intervals are strings because yaml.v3 does not
	// decode time.Duration: the file carries "30m", not nanoseconds.
	var file struct {
		Port             string `yaml:"port"`
		DBPath           string `yaml:"dbPath"`
		DataDir          string `yaml:"dataDir"`
		StorageDir       string `yaml:"storageDir"`
		FeatureServerURL string `yaml:"featureServerUrl"`
		FetchInterval    string `yaml:"fetchInterval"`
		ProcessInterval  string `yaml:"processInterval"`
		SchedulerEnabled *bool  `yaml:"schedulerEnabled"`
		Workers          int    `yaml:"workers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if file.Port != "" {
		cfg.Port = file.Port
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.StorageDir != "" {
		cfg.StorageDir = file.StorageDir
	}
	if file.FeatureServerURL != "" {
		cfg.FeatureServerURL = file.FeatureServerURL
	}
	if file.FetchInterval != "" {
		d, err := time.ParseDuration(file.FetchInterval)
		if err != nil {
			return cfg, fmt.Errorf("parse fetchInterval: %w", err)
		}
		cfg.FetchInterval = d
	}
	if file.ProcessInterval != "" {
		d, err := time.ParseDuration(file.ProcessInterval)
		if err != nil {
			return cfg, fmt.Errorf("parse processInterval: %w", err)
		}
		cfg.ProcessInterval = d
	}
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	if file.SchedulerEnabled != nil {
		cfg.SchedulerEnabled = *file.SchedulerEnabled
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
