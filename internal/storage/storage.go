package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB

	cfgMu    sync.RWMutex
	cfgCache map[string]GuildConfig
}

// GuildConfig is the per-guild configuration record. A guild always has one:
// reads against an absent row return the caller's defaults, and unset optional
// values in a stored row are backfilled from those defaults.
type GuildConfig struct {
	GuildID           string
	Language          string
	Prefix            string
	ModLogChannel     string
	WelcomeEnabled    bool
	WelcomeChannel    string
	WelcomeMessage    string
	GoodbyeEnabled    bool
	GoodbyeMessage    string
	LevelingEnabled   bool
	XPPerMessage      int
	XPCooldownSeconds int
	LevelUpChannel    string
	VoiceXPEnabled    bool
	VoiceXPPerMinute  int
	VoiceXPMinUsers   int
	VoiceAFKChannel   string
	TempEnabled       bool
	TempCategory      string
	TempCreatorChan   string
	TempNameTemplate  string
	TempDefaultLimit  int
	TempBitrate       int
	WarnThreshold     int
	WarnAction        string
	AIEnabled         bool
	AIChannel         string
	NewsChannel       string
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cfgCache: make(map[string]GuildConfig)}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildConfig(ctx context.Context, guildID string, defaults GuildConfig) (GuildConfig, error) {
	s.cfgMu.RLock()
	if cached, ok := s.cfgCache[guildID]; ok {
		s.cfgMu.RUnlock()
		return cached, nil
	}
	s.cfgMu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT language, prefix, mod_log_channel,
		welcome_enabled, welcome_channel, welcome_message, goodbye_enabled, goodbye_message,
		leveling_enabled, xp_per_message, xp_cooldown_seconds, level_up_channel,
		voice_xp_enabled, voice_xp_per_minute, voice_xp_min_users, voice_afk_channel,
		temp_channels_enabled, temp_channel_category, temp_channel_creator,
		temp_name_template, temp_default_limit, temp_default_bitrate,
		warn_threshold, warn_action, ai_enabled, ai_channel, news_channel
		FROM guild_configs WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var welcomeEnabled, goodbyeEnabled, levelingEnabled, voiceEnabled, tempEnabled, aiEnabled int
	err := row.Scan(
		&result.Language,
		&result.Prefix,
		&result.ModLogChannel,
		&welcomeEnabled,
		&result.WelcomeChannel,
		&result.WelcomeMessage,
		&goodbyeEnabled,
		&result.GoodbyeMessage,
		&levelingEnabled,
		&result.XPPerMessage,
		&result.XPCooldownSeconds,
		&result.LevelUpChannel,
		&voiceEnabled,
		&result.VoiceXPPerMinute,
		&result.VoiceXPMinUsers,
		&result.VoiceAFKChannel,
		&tempEnabled,
		&result.TempCategory,
		&result.TempCreatorChan,
		&result.TempNameTemplate,
		&result.TempDefaultLimit,
		&result.TempBitrate,
		&result.WarnThreshold,
		&result.WarnAction,
		&aiEnabled,
		&result.AIChannel,
		&result.NewsChannel,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildConfig{}, err
	}
	result.WelcomeEnabled = welcomeEnabled == 1
	result.GoodbyeEnabled = goodbyeEnabled == 1
	result.LevelingEnabled = levelingEnabled == 1
	result.VoiceXPEnabled = voiceEnabled == 1
	result.TempEnabled = tempEnabled == 1
	result.AIEnabled = aiEnabled == 1
	backfillDefaults(&result, defaults)

	s.cfgMu.Lock()
	s.cfgCache[guildID] = result
	s.cfgMu.Unlock()
	return result, nil
}

// backfillDefaults fills values a stored row never set. Booleans are stored
// explicitly, so only string and positive-integer fields are eligible.
func backfillDefaults(cfg *GuildConfig, defaults GuildConfig) {
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaults.Prefix
	}
	if cfg.XPPerMessage <= 0 {
		cfg.XPPerMessage = defaults.XPPerMessage
	}
	if cfg.XPCooldownSeconds <= 0 {
		cfg.XPCooldownSeconds = defaults.XPCooldownSeconds
	}
	if cfg.VoiceXPPerMinute <= 0 {
		cfg.VoiceXPPerMinute = defaults.VoiceXPPerMinute
	}
	if cfg.VoiceXPMinUsers <= 0 {
		cfg.VoiceXPMinUsers = defaults.VoiceXPMinUsers
	}
	if cfg.TempNameTemplate == "" {
		cfg.TempNameTemplate = defaults.TempNameTemplate
	}
	if cfg.TempBitrate <= 0 {
		cfg.TempBitrate = defaults.TempBitrate
	}
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = defaults.WarnThreshold
	}
	if cfg.WarnAction == "" {
		cfg.WarnAction = defaults.WarnAction
	}
}

func (s *Store) UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (
			guild_id, language, prefix, mod_log_channel,
			welcome_enabled, welcome_channel, welcome_message, goodbye_enabled, goodbye_message,
			leveling_enabled, xp_per_message, xp_cooldown_seconds, level_up_channel,
			voice_xp_enabled, voice_xp_per_minute, voice_xp_min_users, voice_afk_channel,
			temp_channels_enabled, temp_channel_category, temp_channel_creator,
			temp_name_template, temp_default_limit, temp_default_bitrate,
			warn_threshold, warn_action, ai_enabled, ai_channel, news_channel
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			language = excluded.language,
			prefix = excluded.prefix,
			mod_log_channel = excluded.mod_log_channel,
			welcome_enabled = excluded.welcome_enabled,
			welcome_channel = excluded.welcome_channel,
			welcome_message = excluded.welcome_message,
			goodbye_enabled = excluded.goodbye_enabled,
			goodbye_message = excluded.goodbye_message,
			leveling_enabled = excluded.leveling_enabled,
			xp_per_message = excluded.xp_per_message,
			xp_cooldown_seconds = excluded.xp_cooldown_seconds,
			level_up_channel = excluded.level_up_channel,
			voice_xp_enabled = excluded.voice_xp_enabled,
			voice_xp_per_minute = excluded.voice_xp_per_minute,
			voice_xp_min_users = excluded.voice_xp_min_users,
			voice_afk_channel = excluded.voice_afk_channel,
			temp_channels_enabled = excluded.temp_channels_enabled,
			temp_channel_category = excluded.temp_channel_category,
			temp_channel_creator = excluded.temp_channel_creator,
			temp_name_template = excluded.temp_name_template,
			temp_default_limit = excluded.temp_default_limit,
			temp_default_bitrate = excluded.temp_default_bitrate,
			warn_threshold = excluded.warn_threshold,
			warn_action = excluded.warn_action,
			ai_enabled = excluded.ai_enabled,
			ai_channel = excluded.ai_channel,
			news_channel = excluded.news_channel
	`,
		cfg.GuildID,
		cfg.Language,
		cfg.Prefix,
		cfg.ModLogChannel,
		boolToInt(cfg.WelcomeEnabled),
		cfg.WelcomeChannel,
		cfg.WelcomeMessage,
		boolToInt(cfg.GoodbyeEnabled),
		cfg.GoodbyeMessage,
		boolToInt(cfg.LevelingEnabled),
		cfg.XPPerMessage,
		cfg.XPCooldownSeconds,
		cfg.LevelUpChannel,
		boolToInt(cfg.VoiceXPEnabled),
		cfg.VoiceXPPerMinute,
		cfg.VoiceXPMinUsers,
		cfg.VoiceAFKChannel,
		boolToInt(cfg.TempEnabled),
		cfg.TempCategory,
		cfg.TempCreatorChan,
		cfg.TempNameTemplate,
		cfg.TempDefaultLimit,
		cfg.TempBitrate,
		cfg.WarnThreshold,
		cfg.WarnAction,
		boolToInt(cfg.AIEnabled),
		cfg.AIChannel,
		cfg.NewsChannel,
	)
	if err != nil {
		return err
	}
	s.invalidateConfig(cfg.GuildID)
	return nil
}

func (s *Store) invalidateConfig(guildID string) {
	s.cfgMu.Lock()
	delete(s.cfgCache, guildID)
	s.cfgMu.Unlock()
}

func (s *Store) SetLevelRole(ctx context.Context, guildID string, level int, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_roles (guild_id, level, role_id) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, level) DO UPDATE SET role_id = excluded.role_id
	`, guildID, level, roleID)
	return err
}

func (s *Store) RemoveLevelRole(ctx context.Context, guildID string, level int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM level_roles WHERE guild_id = ? AND level = ?`, guildID, level)
	return err
}

func (s *Store) ListLevelRoles(ctx context.Context, guildID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, role_id FROM level_roles WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make(map[int]string)
	for rows.Next() {
		var level int
		var roleID string
		if err := rows.Scan(&level, &roleID); err != nil {
			return nil, err
		}
		roles[level] = roleID
	}
	return roles, rows.Err()
}

func (s *Store) AddIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO ignored_channels (guild_id, channel_id) VALUES (?, ?)`, guildID, channelID)
	return err
}

func (s *Store) RemoveIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ignored_channels WHERE guild_id = ? AND channel_id = ?`, guildID, channelID)
	return err
}

func (s *Store) ListIgnoredChannels(ctx context.Context, guildID string) ([]string, error) {
	return s.listStrings(ctx, `SELECT channel_id FROM ignored_channels WHERE guild_id = ? ORDER BY channel_id`, guildID)
}

func (s *Store) AddAutoRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO auto_roles (guild_id, role_id) VALUES (?, ?)`, guildID, roleID)
	return err
}

func (s *Store) RemoveAutoRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auto_roles WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
	return err
}

func (s *Store) ListAutoRoles(ctx context.Context, guildID string) ([]string, error) {
	return s.listStrings(ctx, `SELECT role_id FROM auto_roles WHERE guild_id = ? ORDER BY role_id`, guildID)
}

func (s *Store) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
