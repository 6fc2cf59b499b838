package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// EnvPrefix scopes environment overrides. CENSUS_QUOTA__DAILY_LIMIT maps to quota.daily_limit.
const EnvPrefix = "CENSUS_"

type Config struct {
	AppEnv      AppEnv            `koanf:"app_env"`
	Storage     StorageConfig     `koanf:"storage"`
	Quota       QuotaConfig       `koanf:"quota"`
	Costs       CostsConfig       `koanf:"costs"`
	YouTube     YouTubeConfig     `koanf:"youtube"`
	Cache       CacheConfig       `koanf:"cache"`
	Classify    ClassifyConfig    `koanf:"classify"`
	Acquisition AcquisitionConfig `koanf:"acquisition"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	HTTP        HTTPConfig        `koanf:"http"`
	Telegram    TelegramConfig    `koanf:"telegram"`
}

type StorageConfig struct {
	Path        string        `koanf:"path"`
	Driver      StorageDriver `koanf:"driver"`
	PostgresDSN string        `koanf:"postgres_dsn"`
	SaveEvery   int           `koanf:"save_every"`
}

type QuotaConfig struct {
	DailyLimit   int     `koanf:"daily_limit"`
	SafetyBuffer int     `koanf:"safety_buffer"`
	WarnRatio    float64 `koanf:"warn_ratio"`
	Timezone     string  `koanf:"timezone"`
}

// CostsConfig declares the quota units charged per upstream operation.
type CostsConfig struct {
	Search   int `koanf:"search"`
	Detail   int `koanf:"detail"`
	SubItems int `koanf:"sub_items"`
}

type YouTubeConfig struct {
	APIKeys           []string      `koanf:"api_keys"`
	BaseURL           string        `koanf:"base_url"`
	RegionCode        string        `koanf:"region_code"`
	Language          string        `koanf:"language"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	MaxRetries        int           `koanf:"max_retries"`
}

type CacheConfig struct {
	Backend      CacheBackend  `koanf:"backend"`
	TTL          time.Duration `koanf:"ttl"`
	RedisURL     string        `koanf:"redis_url"`
	FlushEvery   int           `koanf:"flush_every"`
	CompactEvery int           `koanf:"compact_every"`
}

type ClassifyConfig struct {
	LexiconFile   string `koanf:"lexicon_file"`
	MinConfidence int    `koanf:"min_confidence"`
	MinLiveness   int    `koanf:"min_liveness"`
	SampleSize    int    `koanf:"sample_size"`
}

type TaskConfig struct {
	Query string `koanf:"query"`
	Pages int    `koanf:"pages"`
}

type AcquisitionConfig struct {
	ReserveFloor     int          `koanf:"reserve_floor"`
	MinSubscribers   int64        `koanf:"min_subscribers"`
	Pages            int          `koanf:"pages"`
	Phase            int          `koanf:"phase"`
	Tasks            []TaskConfig `koanf:"tasks"`
	ManualIDs        []string     `koanf:"manual_ids"`
	DescriptionLimit int          `koanf:"description_limit"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
}

type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

type HTTPConfig struct {
	Port string `koanf:"port"`
}

type TelegramConfig struct {
	BotToken     string  `koanf:"bot_token"`
	ChatID       int64   `koanf:"chat_id"`
	APIURL       string  `koanf:"api_url"`
	AllowedUsers []int64 `koanf:"-"`
}

var defaults = map[string]any{
	"app_env":                        "production",
	"storage.path":                   "./data",
	"storage.driver":                 "sqlite",
	"storage.save_every":             10,
	"quota.daily_limit":              10000,
	"quota.safety_buffer":            500,
	"quota.warn_ratio":               0.8,
	"quota.timezone":                 "America/Los_Angeles",
	"costs.search":                   100,
	"costs.detail":                   1,
	"costs.sub_items":                1,
	"youtube.base_url":               "https://www.googleapis.com/youtube/v3",
	"youtube.region_code":            "AR",
	"youtube.language":               "es",
	"youtube.timeout":                "15s",
	"youtube.requests_per_second":    5,
	"youtube.max_retries":            3,
	"cache.backend":                  "file",
	"cache.ttl":                      "24h",
	"cache.flush_every":              10,
	"cache.compact_every":            100,
	"classify.min_confidence":        65,
	"classify.min_liveness":          30,
	"classify.sample_size":           10,
	"acquisition.reserve_floor":      100,
	"acquisition.min_subscribers":    0,
	"acquisition.pages":              2,
	"acquisition.phase":              0,
	"acquisition.description_limit": 500,
	"log.level":                      "info",
	"log.dir":                        "./logs",
	"http.port":                      "8080",
	"telegram.api_url":               "https://api.telegram.org",
}

// Load reads the first config file found (CENSUS_CONFIG wins over the
// config.{yaml,yml,json,toml} candidates), applies CENSUS_* environment
// overrides, then fills defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}
	if explicit := os.Getenv(EnvPrefix + "CONFIG"); explicit != "" {
		configFiles = []string{explicit}
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.With("config_file", configFile).Wrapf(errors.ErrInvalidConfig, "unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, oops.With("key", key).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Comma separated values arrive as a single string from the environment.
	if raw, ok := k.Get("youtube.api_keys").(string); ok {
		cfg.YouTube.APIKeys = ParseList(raw)
	}
	if raw, ok := k.Get("acquisition.manual_ids").(string); ok {
		cfg.Acquisition.ManualIDs = ParseList(raw)
	}
	switch v := k.Get("telegram.allowed_users").(type) {
	case string:
		cfg.Telegram.AllowedUsers = ParseAllowedUsers(v)
	case []any:
		cfg.Telegram.AllowedUsers = lo.FilterMap(v, func(item any, _ int) (int64, bool) {
			switch val := item.(type) {
			case int64:
				return val, true
			case int:
				return int64(val), true
			case float64:
				return int64(val), true
			default:
				return 0, false
			}
		})
	}
	cfg.YouTube.APIKeys = lo.Uniq(lo.Compact(lo.Map(cfg.YouTube.APIKeys, func(key string, _ int) string {
		return strings.TrimSpace(key)
	})))

	if err := cfg.normalizeEnums(k); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) normalizeEnums(k *koanf.Koanf) error {
	appEnv, err := ParseAppEnv(k.String("app_env"))
	if err != nil {
		appEnv = AppEnvProduction
	}
	c.AppEnv = appEnv

	driver, err := ParseStorageDriver(k.String("storage.driver"))
	if err != nil {
		return oops.With("storage.driver", k.String("storage.driver")).Wrap(errors.ErrInvalidConfig)
	}
	c.Storage.Driver = driver

	backend, err := ParseCacheBackend(k.String("cache.backend"))
	if err != nil {
		return oops.With("cache.backend", k.String("cache.backend")).Wrap(errors.ErrInvalidConfig)
	}
	c.Cache.Backend = backend
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.Quota.DailyLimit <= 0:
		return oops.With("quota.daily_limit", c.Quota.DailyLimit).Wrap(errors.ErrInvalidConfig)
	case c.Quota.SafetyBuffer < 0 || c.Quota.SafetyBuffer >= c.Quota.DailyLimit:
		return oops.With("quota.safety_buffer", c.Quota.SafetyBuffer).Wrap(errors.ErrInvalidConfig)
	case c.Costs.Search < 0 || c.Costs.Detail < 0 || c.Costs.SubItems < 0:
		return oops.With("costs", c.Costs).Wrap(errors.ErrInvalidConfig)
	case c.Cache.TTL <= 0:
		return oops.With("cache.ttl", c.Cache.TTL).Wrap(errors.ErrInvalidConfig)
	case c.Storage.Driver == StorageDriverPostgres && c.Storage.PostgresDSN == "":
		return oops.With("storage.driver", c.Storage.Driver).Wrapf(errors.ErrInvalidConfig, "storage.postgres_dsn is required")
	case c.Cache.Backend == CacheBackendRedis && c.Cache.RedisURL == "":
		return oops.With("cache.backend", c.Cache.Backend).Wrapf(errors.ErrInvalidConfig, "cache.redis_url is required")
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return oops.With("quota.timezone", c.Quota.Timezone).Wrap(errors.ErrInvalidConfig)
	}
	return nil
}

// RequireCredentials is checked by the crawler only; the status server runs without keys.
func (c *Config) RequireCredentials() error {
	if len(c.YouTube.APIKeys) == 0 {
		return errors.ErrNoCredentials
	}
	return nil
}

// Location returns the timezone quota days are counted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseList splits a comma separated string, dropping blanks.
func ParseList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	return lo.FilterMap(ParseList(s), func(part string, _ int) (int64, bool) {
		id, err := strconv.ParseInt(part, 10, 64)
		return id, err == nil
	})
}
