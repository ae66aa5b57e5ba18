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
	DiscordToken    string        `yaml:"discord_token"`
	DatabasePath    string        `yaml:"database_path"`
	LogLevel        string        `yaml:"log_level"`
	DefaultLanguage string        `yaml:"default_language"`
	Guild           GuildDefaults `yaml:"guild_defaults"`
}

// GuildDefaults seeds the per-guild configuration record the first time a
// guild is seen. Stored values always win over these.
type GuildDefaults struct {
	Prefix            string `yaml:"prefix"`
	LevelingEnabled   bool   `yaml:"leveling_enabled"`
	XPPerMessage      int    `yaml:"xp_per_message"`
	XPCooldownSeconds int    `yaml:"xp_cooldown_seconds"`
	VoiceXPEnabled    bool   `yaml:"voice_xp_enabled"`
	VoiceXPPerMinute  int    `yaml:"voice_xp_per_minute"`
	VoiceXPMinUsers   int    `yaml:"voice_xp_min_users"`
	TempEnabled       bool   `yaml:"temp_channels_enabled"`
	TempNameTemplate  string `yaml:"temp_name_template"`
	TempDefaultLimit  int    `yaml:"temp_default_limit"`
	TempBitrate       int    `yaml:"temp_default_bitrate"`
	WarnThreshold     int    `yaml:"warn_threshold"`
	WarnAction        string `yaml:"warn_action"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/guildkeeper.db",
		LogLevel:        "info",
		DefaultLanguage: "de",
		Guild: GuildDefaults{
			Prefix:            "!",
			LevelingEnabled:   true,
			XPPerMessage:      15,
			XPCooldownSeconds: 60,
			VoiceXPEnabled:    false,
			VoiceXPPerMinute:  5,
			VoiceXPMinUsers:   2,
			TempEnabled:       false,
			TempNameTemplate:  "🔊 {user}'s Kanal",
			TempDefaultLimit:  0,
			TempBitrate:       64000,
			WarnThreshold:     3,
			WarnAction:        "mute",
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
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

	cfg.Guild.WarnAction = normalizeWarnAction(cfg.Guild.WarnAction)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.Guild.Prefix = envString("DEFAULT_PREFIX", cfg.Guild.Prefix)
	cfg.Guild.LevelingEnabled = envBool("LEVELING_ENABLED", cfg.Guild.LevelingEnabled)
	cfg.Guild.XPPerMessage = envInt("XP_PER_MESSAGE", cfg.Guild.XPPerMessage)
	cfg.Guild.XPCooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Guild.XPCooldownSeconds)
	cfg.Guild.VoiceXPEnabled = envBool("VOICE_XP_ENABLED", cfg.Guild.VoiceXPEnabled)
	cfg.Guild.VoiceXPPerMinute = envInt("VOICE_XP_PER_MINUTE", cfg.Guild.VoiceXPPerMinute)
	cfg.Guild.VoiceXPMinUsers = envInt("VOICE_XP_MIN_USERS", cfg.Guild.VoiceXPMinUsers)
	cfg.Guild.TempEnabled = envBool("TEMP_CHANNELS_ENABLED", cfg.Guild.TempEnabled)
	cfg.Guild.WarnThreshold = envInt("WARN_THRESHOLD", cfg.Guild.WarnThreshold)
	cfg.Guild.WarnAction = envString("WARN_ACTION", cfg.Guild.WarnAction)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

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

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeWarnAction(value string) string {
	switch strings.ToLower(value) {
	case "kick":
		return "kick"
	case "ban":
		return "ban"
	default:
		return "mute"
	}
}
