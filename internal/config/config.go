package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken      string        `yaml:"discord_token"`
	DatabaseURL       string        `yaml:"database_url"`
	RedisURL          string        `yaml:"redis_url"`
	LogLevel          string        `yaml:"log_level"`
	DefaultPrefix     string        `yaml:"default_prefix"`
	GuildCacheSeconds int           `yaml:"guild_cache_seconds"`
	Health            HealthConfig  `yaml:"health"`
	Commands          CommandConfig `yaml:"commands"`
	AutoMod           AutoModConfig `yaml:"automod"`
	Web               WebConfig     `yaml:"web"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type CommandConfig struct {
	DefaultCooldownSeconds int    `yaml:"default_cooldown_seconds"`
	SyncSlashCommands      bool   `yaml:"sync_slash_commands"`
	DevGuildID             string `yaml:"dev_guild_id"`
}

type AutoModConfig struct {
	SpamWindowMillis int `yaml:"spam_window_ms"`
	CapsMinLength    int `yaml:"caps_min_length"`
	MuteMinutes      int `yaml:"mute_minutes"`
	BanDeleteDays    int `yaml:"ban_delete_days"`
	SweepSeconds     int `yaml:"sweep_seconds"`
}

type WebConfig struct {
	Enabled           bool        `yaml:"enabled"`
	Addr              string      `yaml:"addr"`
	DashboardURL      string      `yaml:"dashboard_url"`
	AllowedOrigins    []string    `yaml:"allowed_origins"`
	MaxConnections    int         `yaml:"max_connections"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	Burst             int         `yaml:"burst"`
	SessionTTLMinutes int         `yaml:"session_ttl_minutes"`
	OAuth             OAuthConfig `yaml:"oauth"`
}

type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:          "info",
		DefaultPrefix:     "!",
		GuildCacheSeconds: 60,
		Health:            HealthConfig{Enabled: false, Addr: ":8080"},
		Commands: CommandConfig{
			DefaultCooldownSeconds: 3,
			SyncSlashCommands:      true,
		},
		AutoMod: AutoModConfig{
			SpamWindowMillis: 5000,
			CapsMinLength:    10,
			MuteMinutes:      10,
			BanDeleteDays:    1,
			SweepSeconds:     60,
		},
		Web: WebConfig{
			Enabled:           false,
			Addr:              ":3001",
			DashboardURL:      "http://localhost:3000",
			AllowedOrigins:    []string{"http://localhost:3000"},
			MaxConnections:    256,
			RequestsPerSecond: 5,
			Burst:             20,
			SessionTTLMinutes: 60 * 24 * 7,
		},
	}
}

// Load reads .env, then the YAML file, then environment overrides. An empty
// path falls back to CONFIG_PATH and then config.yaml.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	normalize(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.GuildCacheSeconds = envInt("GUILD_CACHE_SECONDS", cfg.GuildCacheSeconds)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Commands.DefaultCooldownSeconds = envInt("DEFAULT_COOLDOWN_SECONDS", cfg.Commands.DefaultCooldownSeconds)
	cfg.Commands.SyncSlashCommands = envBool("SYNC_SLASH_COMMANDS", cfg.Commands.SyncSlashCommands)
	cfg.Commands.DevGuildID = envString("DEV_GUILD_ID", cfg.Commands.DevGuildID)
	cfg.AutoMod.SpamWindowMillis = envInt("AUTOMOD_SPAM_WINDOW_MS", cfg.AutoMod.SpamWindowMillis)
	cfg.AutoMod.CapsMinLength = envInt("AUTOMOD_CAPS_MIN_LENGTH", cfg.AutoMod.CapsMinLength)
	cfg.AutoMod.MuteMinutes = envInt("AUTOMOD_MUTE_MINUTES", cfg.AutoMod.MuteMinutes)
	cfg.AutoMod.BanDeleteDays = envInt("AUTOMOD_BAN_DELETE_DAYS", cfg.AutoMod.BanDeleteDays)
	cfg.AutoMod.SweepSeconds = envInt("AUTOMOD_SWEEP_SECONDS", cfg.AutoMod.SweepSeconds)
	cfg.Web.Enabled = envBool("WEB_ENABLED", cfg.Web.Enabled)
	cfg.Web.Addr = envString("WEB_ADDR", cfg.Web.Addr)
	cfg.Web.DashboardURL = envString("DASHBOARD_URL", cfg.Web.DashboardURL)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)
	cfg.Web.MaxConnections = envInt("WEB_MAX_CONNECTIONS", cfg.Web.MaxConnections)
	cfg.Web.RequestsPerSecond = envFloat("WEB_REQUESTS_PER_SECOND", cfg.Web.RequestsPerSecond)
	cfg.Web.Burst = envInt("WEB_BURST", cfg.Web.Burst)
	cfg.Web.SessionTTLMinutes = envInt("WEB_SESSION_TTL_MINUTES", cfg.Web.SessionTTLMinutes)
	cfg.Web.OAuth.ClientID = envString("DISCORD_CLIENT_ID", cfg.Web.OAuth.ClientID)
	cfg.Web.OAuth.ClientSecret = envString("DISCORD_CLIENT_SECRET", cfg.Web.OAuth.ClientSecret)
	cfg.Web.OAuth.RedirectURL = envString("DISCORD_REDIRECT_URI", cfg.Web.OAuth.RedirectURL)
}

func normalize(cfg *Config) {
	cfg.DefaultPrefix = strings.TrimSpace(cfg.DefaultPrefix)
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = "!"
	}
	if cfg.Commands.DefaultCooldownSeconds < 0 {
		cfg.Commands.DefaultCooldownSeconds = 3
	}
	if cfg.AutoMod.SpamWindowMillis <= 0 {
		cfg.AutoMod.SpamWindowMillis = 5000
	}
	if cfg.AutoMod.CapsMinLength <= 0 {
		cfg.AutoMod.CapsMinLength = 10
	}
	if cfg.AutoMod.MuteMinutes <= 0 {
		cfg.AutoMod.MuteMinutes = 10
	}
	if cfg.AutoMod.BanDeleteDays < 0 || cfg.AutoMod.BanDeleteDays > 7 {
		cfg.AutoMod.BanDeleteDays = 1
	}
	if cfg.AutoMod.SweepSeconds <= 0 {
		cfg.AutoMod.SweepSeconds = 60
	}
	if cfg.Web.RequestsPerSecond <= 0 {
		cfg.Web.RequestsPerSecond = 5
	}
	if cfg.Web.Burst <= 0 {
		cfg.Web.Burst = 20
	}
	if cfg.Web.SessionTTLMinutes <= 0 {
		cfg.Web.SessionTTLMinutes = 60 * 24 * 7
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
