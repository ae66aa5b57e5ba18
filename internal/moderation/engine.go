// Package moderation implements warnings and their escalation policy.
package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/i18n"
	"guildkeeper/internal/modlog"
	"guildkeeper/internal/storage"
)

// MuteDuration is how long an escalation timeout lasts.
const MuteDuration = 10 * time.Minute

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

// WarnResult reports what a warning did, for the caller's reply.
type WarnResult struct {
	Count     int
	Threshold int
	Escalated bool
	Action    string
}

// Warn records the warning and escalates when the count has reached the
// guild's threshold. Escalation fires on every warning at or past the
// threshold, not just the crossing one.
func (e *Engine) Warn(ctx context.Context, guildID, modID, userID, reason string) (WarnResult, error) {
	cfg, err := e.store.GetGuildConfig(ctx, guildID, e.defaults)
	if err != nil {
		return WarnResult{}, err
	}

	count, err := e.store.AddWarning(ctx, storage.Warning{
		GuildID:   guildID,
		UserID:    userID,
		ModID:     modID,
		Reason:    reason,
		CreatedAt: e.clock.Now(),
	})
	if err != nil {
		return WarnResult{}, err
	}

	if err := e.modlog.Record(ctx, cfg.ModLogChannel, storage.ModLogEntry{
		GuildID:   guildID,
		Action:    modlog.ActionWarn,
		ModID:     modID,
		TargetID:  userID,
		Reason:    reason,
		CreatedAt: e.clock.Now(),
	}); err != nil {
		e.log.Warn("mod log write failed", zap.String("guild", guildID), zap.Error(err))
	}

	guildName, err := e.gw.GuildName(guildID)
	if err != nil {
		guildName = guildID
	}
	_ = e.gw.SendDM(ctx, userID, i18n.T(cfg.Language, "warn_dm", guildName, reason, count, cfg.WarnThreshold))

	result := WarnResult{Count: count, Threshold: cfg.WarnThreshold}
	if count >= cfg.WarnThreshold {
		result.Escalated = true
		result.Action = cfg.WarnAction
		e.escalate(ctx, cfg, userID, count)
	}
	return result, nil
}

func (e *Engine) escalate(ctx context.Context, cfg storage.GuildConfig, userID string, count int) {
	var err error
	reason := fmt.Sprintf("warning threshold reached (%d/%d)", count, cfg.WarnThreshold)
	switch cfg.WarnAction {
	case "kick":
		err = e.gw.KickMember(ctx, cfg.GuildID, userID, reason)
	case "ban":
		err = e.gw.BanMember(ctx, cfg.GuildID, userID, reason)
	default:
		err = e.gw.TimeoutMember(ctx, cfg.GuildID, userID, e.clock.Now().Add(MuteDuration))
	}
	if err != nil {
		e.log.Warn("escalation failed",
			zap.String("guild", cfg.GuildID),
			zap.String("user", userID),
			zap.String("action", cfg.WarnAction),
			zap.Error(err))
		return
	}

	if err := e.modlog.Record(ctx, cfg.ModLogChannel, storage.ModLogEntry{
		GuildID:   cfg.GuildID,
		Action:    modlog.ActionEscalation,
		TargetID:  userID,
		Reason:    reason,
		CreatedAt: e.clock.Now(),
	}); err != nil {
		e.log.Warn("mod log write failed", zap.String("guild", cfg.GuildID), zap.Error(err))
	}
}

// ClearWarnings removes every warning for the user and returns how many.
func (e *Engine) ClearWarnings(ctx context.Context, guildID, modID, userID string) (int, error) {
	cfg, err := e.store.GetGuildConfig(ctx, guildID, e.defaults)
	if err != nil {
		return 0, err
	}
	deleted, err := e.store.ClearWarnings(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	if err := e.modlog.Record(ctx, cfg.ModLogChannel, storage.ModLogEntry{
		GuildID:   guildID,
		Action:    modlog.ActionClearWarns,
		ModID:     modID,
		TargetID:  userID,
		Reason:    fmt.Sprintf("%d warnings removed", deleted),
		CreatedAt: e.clock.Now(),
	}); err != nil {
		e.log.Warn("mod log write failed", zap.String("guild", guildID), zap.Error(err))
	}
	return deleted, nil
}

func (e *Engine) Warnings(ctx context.Context, guildID, userID string) ([]storage.Warning, error) {
	return e.store.ListWarnings(ctx, guildID, userID)
}

// Mute times the member out for the given duration and records it.
func (e *Engine) Mute(ctx context.Context, guildID, modID, userID string, duration time.Duration, reason string) error {
	if duration <= 0 {
		duration = MuteDuration
	}
	if err := e.gw.TimeoutMember(ctx, guildID, userID, e.clock.Now().Add(duration)); err != nil {
		return err
	}
	return e.recordAction(ctx, guildID, modlog.ActionMute, modID, userID, reason)
}

// Unmute lifts an active timeout.
func (e *Engine) Unmute(ctx context.Context, guildID, modID, userID string) error {
	if err := e.gw.TimeoutMember(ctx, guildID, userID, time.Time{}); err != nil {
		return err
	}
	return e.recordAction(ctx, guildID, "unmute", modID, userID, "")
}

func (e *Engine) Kick(ctx context.Context, guildID, modID, userID, reason string) error {
	if err := e.gw.KickMember(ctx, guildID, userID, reason); err != nil {
		return err
	}
	return e.recordAction(ctx, guildID, modlog.ActionKick, modID, userID, reason)
}

func (e *Engine) Ban(ctx context.Context, guildID, modID, userID, reason string) error {
	if err := e.gw.BanMember(ctx, guildID, userID, reason); err != nil {
		return err
	}
	return e.recordAction(ctx, guildID, modlog.ActionBan, modID, userID, reason)
}

func (e *Engine) recordAction(ctx context.Context, guildID, action, modID, userID, reason string) error {
	cfg, err := e.store.GetGuildConfig(ctx, guildID, e.defaults)
	if err != nil {
		return err
	}
	return e.modlog.Record(ctx, cfg.ModLogChannel, storage.ModLogEntry{
		GuildID:   guildID,
		Action:    action,
		ModID:     modID,
		TargetID:  userID,
		Reason:    reason,
		CreatedAt: e.clock.Now(),
	})
}
