package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the dispatch pipeline. It is constructed once
// by Load and passed down; no component reads the environment directly.
type Config struct {
	AnalysisURL      string
	APIKey           string
	DBPath           string
	TZName           string
	MinConversations int
	IncludeSender    bool
	NormalizeConvIDs bool
	HTTPTimeoutSec   int

	// daemon mode
	OpsPort       string
	TriggerDir    string
	EnableWatcher bool

	StrictConfig bool
	Environment  string
}

type fileConfig struct {
	AnalysisURL      string `yaml:"analysis_url"`
	DBPath           string `yaml:"db_path"`
	TZName           string `yaml:"tz_name"`
	MinConversations *int   `yaml:"min_conversations"`
	IncludeSender    *bool  `yaml:"include_sender"`
	NormalizeConvIDs *bool  `yaml:"normalize_conv_ids"`
	HTTPTimeoutSec   *int   `yaml:"http_timeout_sec"`
	OpsPort          string `yaml:"ops_port"`
	TriggerDir       string `yaml:"trigger_dir"`
	EnableWatcher    *bool  `yaml:"enable_watcher"`
}

const (
	defaultDBPath   = "runtime/chat.db"
	defaultTZ       = "America/Sao_Paulo"
	defaultMinConvs = 3
	defaultTimeout  = 30
	defaultOpsPort  = ":8090"
	defaultTrigger  = "runtime/trigger"
	minTimeoutSec   = 1
	maxTimeoutSec   = 300
)

// Load reads configuration from an optional .env file, an optional YAML file,
// and the environment. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MinConversations: defaultMinConvs,
		IncludeSender:    true,
		NormalizeConvIDs: true,
		HTTPTimeoutSec:   defaultTimeout,
		EnableWatcher:    true,
		StrictConfig:     parseBoolEnv("STRICT_CONFIG", false),
		Environment:      getEnv("ENVIRONMENT", "production"),
	}

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		if !os.IsNotExist(fileErr) {
			log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
		}
	}

	cfg.AnalysisURL = firstNonEmpty(os.Getenv("ANALYSIS_URL"), fileCfg.AnalysisURL)
	cfg.APIKey = os.Getenv("ANALYSIS_API_KEY")
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, defaultDBPath)
	cfg.TZName = firstNonEmpty(os.Getenv("TZ_NAME"), fileCfg.TZName, defaultTZ)
	cfg.OpsPort = firstNonEmpty(os.Getenv("OPS_PORT"), fileCfg.OpsPort, defaultOpsPort)
	cfg.TriggerDir = firstNonEmpty(os.Getenv("TRIGGER_DIR"), fileCfg.TriggerDir, defaultTrigger)

	if fileCfg.MinConversations != nil {
		cfg.MinConversations = *fileCfg.MinConversations
	}
	if fileCfg.IncludeSender != nil {
		cfg.IncludeSender = *fileCfg.IncludeSender
	}
	if fileCfg.NormalizeConvIDs != nil {
		cfg.NormalizeConvIDs = *fileCfg.NormalizeConvIDs
	}
	if fileCfg.HTTPTimeoutSec != nil {
		cfg.HTTPTimeoutSec = *fileCfg.HTTPTimeoutSec
	}
	if fileCfg.EnableWatcher != nil {
		cfg.EnableWatcher = *fileCfg.EnableWatcher
	}

	if v := os.Getenv("MIN_CONVERSATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid MIN_CONVERSATIONS %q", v)
		}
		cfg.MinConversations = n
	}
	if v := os.Getenv("HTTP_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid HTTP_TIMEOUT_SEC %q", v)
		}
		cfg.HTTPTimeoutSec = n
	}
	if v := os.Getenv("INCLUDE_SENDER"); v != "" {
		cfg.IncludeSender = parseBoolEnv("INCLUDE_SENDER", cfg.IncludeSender)
	}
	if v := os.Getenv("NORMALIZE_CONV_IDS"); v != "" {
		cfg.NormalizeConvIDs = parseBoolEnv("NORMALIZE_CONV_IDS", cfg.NormalizeConvIDs)
	}
	if v := os.Getenv("ENABLE_WATCHER"); v != "" {
		cfg.EnableWatcher = parseBoolEnv("ENABLE_WATCHER", cfg.EnableWatcher)
	}

	if cfg.MinConversations < 0 {
		cfg.MinConversations = 0
	}
	cfg.HTTPTimeoutSec = clampInt(cfg.HTTPTimeoutSec, minTimeoutSec, maxTimeoutSec)
	if !strings.HasPrefix(cfg.OpsPort, ":") {
		cfg.OpsPort = ":" + cfg.OpsPort
	}
	return cfg, nil
}

// Validate checks the preconditions a run cannot start without.
func (c Config) Validate() error {
	if c.AnalysisURL == "" {
		return fmt.Errorf("ANALYSIS_URL is required")
	}
	return nil
}

// Location resolves the pipeline timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TZName)
}

// HTTPTimeout returns the outbound call timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func loadFileConfig(path string) (fileConfig, error) {
	var out fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
