// Package leveling awards XP for messages and voice activity and applies
// level-up side effects.
package leveling

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/i18n"
	"guildkeeper/internal/modlog"
	"guildkeeper/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type Engine struct {
	store    *storage.Store
	gw       gateway.Gateway
	modlog   *modlog.Logger
	log      *zap.Logger
	clock    Clock
	defaults storage.GuildConfig
}

func New(store *storage.Store, gw gateway.Gateway, ml *modlog.Logger, log *zap.Logger, defaults storage.GuildConfig) *Engine {
	return &Engine{
		store:    store,
		gw:       gw,
		modlog:   ml,
		log:      log,
		clock:    systemClock{},
		defaults: defaults,
	}
}

// HandleMessage awards XP when the author is off cooldown; a message inside
// the window leaves no trace. Level-up side effects run before the call
// returns.
func (e *Engine) HandleMessage(ctx context.Context, guildID, channelID, userID string) error {
	cfg, err := e.store.GetGuildConfig(ctx, guildID, e.defaults)
	if err != nil {
		return err
	}
	if !cfg.LevelingEnabled {
		return nil
	}

	ignored, err := e.store.ListIgnoredChannels(ctx, guildID)
	if err != nil {
		return err
	}
	for _, id := range ignored {
		if id == channelID {
			return nil
		}
	}

	progress, err := e.store.GetProgress(ctx, guildID, userID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	cooldown := time.Duration(cfg.XPCooldownSeconds) * time.Second
	if progress.LastXP != nil && now.Sub(*progress.LastXP) < cooldown {
		// intentional rate limit; nothing is written
		return nil
	}

	progress.Messages++
	progress.XP += cfg.XPPerMessage
	progress.LastXP = &now
	newLevel := LevelFromXP(progress.XP)
	leveledUp := newLevel > progress.Level
	progress.Level = newLevel

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return err
	}
	if leveledUp {
		e.applyLevelUp(ctx, cfg, progress, channelID)
	}
	return nil
}

// VoiceTick awards one minute of voice XP across the guild. A channel only
// counts when enough awake humans share it.
func (e *Engine) VoiceTick(ctx context.Context, guildID string) error {
	cfg, err := e.store.GetGuildConfig(ctx, guildID, e.defaults)
	if err != nil {
		return err
	}
	if !cfg.LevelingEnabled || !cfg.VoiceXPEnabled {
		return nil
	}

	states, err := e.gw.GuildVoiceStates(guildID)
	if err != nil {
		return err
	}
	ignored, err := e.store.ListIgnoredChannels(ctx, guildID)
	if err != nil {
		return err
	}
	skip := make(map[string]bool, len(ignored)+1)
	for _, id := range ignored {
		skip[id] = true
	}
	if cfg.VoiceAFKChannel != "" {
		skip[cfg.VoiceAFKChannel] = true
	}

	for channelID, members := range states {
		if skip[channelID] {
			continue
		}
		var eligible []string
		for _, member := range members {
			if member.Bot || member.SelfDeaf {
				continue
			}
			eligible = append(eligible, member.UserID)
		}
		if len(eligible) < cfg.VoiceXPMinUsers {
			continue
		}
		for _, userID := range eligible {
			if err := e.awardVoiceXP(ctx, cfg, userID); err != nil {
				e.log.Warn("voice xp award failed",
					zap.String("guild", guildID),
					zap.String("user", userID),
					zap.Error(err))
			}
		}
	}
	return nil
}

func (e *Engine) awardVoiceXP(ctx context.Context, cfg storage.GuildConfig, userID string) error {
	progress, err := e.store.GetProgress(ctx, cfg.GuildID, userID)
	if err != nil {
		return err
	}
	progress.XP += cfg.VoiceXPPerMinute
	newLevel := LevelFromXP(progress.XP)
	leveledUp := newLevel > progress.Level
	progress.Level = newLevel

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return err
	}
	if leveledUp {
		e.applyLevelUp(ctx, cfg, progress, "")
	}
	return nil
}

// applyLevelUp grants the level role and rewards and announces the new
// level. Everything here is best effort; a failed grant is logged and the
// rest proceeds.
func (e *Engine) applyLevelUp(ctx context.Context, cfg storage.GuildConfig, progress storage.UserProgress, sourceChannel string) {
	roles, err := e.store.ListLevelRoles(ctx, cfg.GuildID)
	if err != nil {
		e.log.Warn("list level roles failed", zap.String("guild", cfg.GuildID), zap.Error(err))
	} else if roleID, ok := roles[progress.Level]; ok {
		if err := e.gw.GrantRole(ctx, cfg.GuildID, progress.UserID, roleID); err != nil {
			e.log.Warn("level role grant failed",
				zap.String("guild", cfg.GuildID),
				zap.String("user", progress.UserID),
				zap.String("role", roleID),
				zap.Error(err))
		}
	}

	rewards, err := e.store.RewardsForLevel(ctx, cfg.GuildID, progress.Level)
	if err != nil {
		e.log.Warn("list rewards failed", zap.String("guild", cfg.GuildID), zap.Error(err))
	}
	for _, reward := range rewards {
		e.grantReward(ctx, cfg, progress.UserID, reward)
	}

	channel := cfg.LevelUpChannel
	if channel == "" {
		channel = sourceChannel
	}
	if channel != "" {
		_ = e.gw.SendMessage(ctx, channel, i18n.T(cfg.Language, "level_up", progress.UserID, progress.Level))
	}

	if err := e.modlog.Record(ctx, cfg.ModLogChannel, storage.ModLogEntry{
		GuildID:   cfg.GuildID,
		Action:    modlog.ActionLevelUp,
		TargetID:  progress.UserID,
		Reason:    i18n.T("en", "level_up", progress.UserID, progress.Level),
		CreatedAt: e.clock.Now(),
	}); err != nil {
		e.log.Warn("mod log write failed", zap.String("guild", cfg.GuildID), zap.Error(err))
	}
}

func (e *Engine) grantReward(ctx context.Context, cfg storage.GuildConfig, userID string, reward storage.LevelReward) {
	switch reward.Type {
	case storage.RewardTypeRole:
		if err := e.gw.GrantRole(ctx, cfg.GuildID, userID, reward.Value); err != nil {
			e.log.Warn("reward role grant failed",
				zap.String("guild", cfg.GuildID),
				zap.String("user", userID),
				zap.String("reward", reward.ID),
				zap.Error(err))
			return
		}
	default:
		// Badge and custom rewards carry no platform action; the announcement
		// below is the grant.
	}
	if reward.Name != "" && cfg.LevelUpChannel != "" {
		_ = e.gw.SendMessage(ctx, cfg.LevelUpChannel, i18n.T(cfg.Language, "reward_granted", userID, reward.Name))
	}
}

// Rank summarizes a member's standing for display.
type Rank struct {
	Progress  storage.UserProgress
	IntoLevel int
	ForNext   int
}

func (e *Engine) Rank(ctx context.Context, guildID, userID string) (Rank, error) {
	progress, err := e.store.GetProgress(ctx, guildID, userID)
	if err != nil {
		return Rank{}, err
	}
	return Rank{
		Progress:  progress,
		IntoLevel: progress.XP - XPForLevel(progress.Level),
		ForNext:   XPForNext(progress.Level),
	}, nil
}
