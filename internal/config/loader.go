package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. SCHEDULER_HTTP_PORT.
const EnvPrefix = "SCHEDULER"

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int
	Store           string
	SQLiteDSN       string
	Redis           RedisConfig
	EventsChannel   string
	MeetingBaseURL  string
	Log             LogConfig
	APIKeyHash      string
	SlotCacheTTL    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig locates the Redis server used for lifecycle events. An empty
// Addr disables event publishing.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Load reads configuration from the environment, falling back to a .env file
// in the working directory and then to defaults.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored;
// real environment variables always win over its entries.
//
// Every invalid value is reported in a single localized error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		values, err := godotenv.Read(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
		default:
			if err := v.MergeConfigMap(dotenvValues(values)); err != nil {
				return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		Store:          strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		SQLiteDSN:      strings.TrimSpace(v.GetString("sqlite_dsn")),
		EventsChannel:  strings.TrimSpace(v.GetString("events_channel")),
		MeetingBaseURL: strings.TrimSpace(v.GetString("meeting_base_url")),
		APIKeyHash:     strings.TrimSpace(v.GetString("api_key_hash")),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis_addr")),
			Password: v.GetString("redis_password"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		},
	}

	invalid := make([]string, 0, 4)
	reject := func(key string) { invalid = append(invalid, EnvPrefix+"_"+strings.ToUpper(key)) }

	if port, err := strconv.Atoi(strings.TrimSpace(v.GetString("http_port"))); err != nil || port <= 0 || port > 65535 {
		reject("http_port")
	} else {
		cfg.HTTPPort = port
	}

	if cfg.Store != StoreSQLite && cfg.Store != StoreMemory {
		reject("store")
	}
	if cfg.Store == StoreSQLite && cfg.SQLiteDSN == "" {
		reject("sqlite_dsn")
	}

	if db, err := strconv.Atoi(strings.TrimSpace(v.GetString("redis_db"))); err != nil || db < 0 {
		reject("redis_db")
	} else {
		cfg.Redis.DB = db
	}

	if u, err := url.Parse(cfg.MeetingBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		reject("meeting_base_url")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		reject("log_level")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		reject("log_format")
	}

	if ttl, err := time.ParseDuration(strings.TrimSpace(v.GetString("slot_cache_ttl"))); err != nil || ttl < 0 {
		reject("slot_cache_ttl")
	} else {
		cfg.SlotCacheTTL = ttl
	}
	if timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString("shutdown_timeout"))); err != nil || timeout <= 0 {
		reject("shutdown_timeout")
	} else {
		cfg.ShutdownTimeout = timeout
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("sqlite_dsn", "file:scheduler.db?_pragma=foreign_keys(1)")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", "0")
	v.SetDefault("events_channel", "scheduler.events")
	v.SetDefault("meeting_base_url", "https://meet.example.com")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("api_key_hash", "")
	v.SetDefault("slot_cache_ttl", "15s")
	v.SetDefault("shutdown_timeout", "10s")
}

// dotenvValues maps SCHEDULER_FOO=bar entries onto viper keys ("foo").
// Entries without the prefix are ignored.
func dotenvValues(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		name, ok := strings.CutPrefix(key, EnvPrefix+"_")
		if !ok {
			continue
		}
		out[strings.ToLower(name)] = value
	}
	return out
}
