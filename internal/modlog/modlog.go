// Package modlog records moderation actions to the database, the structured
// log, and optionally a guild's log channel.
package modlog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/storage"
)

const (
	ActionWarn       = "warn"
	ActionClearWarns = "clear_warnings"
	ActionMute       = "mute"
	ActionKick       = "kick"
	ActionBan        = "ban"
	ActionEscalation = "escalation"
	ActionLevelUp    = "level_up"
)

type Logger struct {
	store *storage.Store
	gw    gateway.Gateway
	log   *zap.Logger
}

func New(store *storage.Store, gw gateway.Gateway, log *zap.Logger) *Logger {
	return &Logger{store: store, gw: gw, log: log}
}

// Record persists the entry and mirrors it to the guild's mod-log channel
// when one is configured. The channel post is best effort; the database row
// is not.
func (l *Logger) Record(ctx context.Context, logChannel string, entry storage.ModLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := l.store.AddModLog(ctx, entry); err != nil {
		return err
	}

	l.log.Info("mod log",
		zap.String("guild", entry.GuildID),
		zap.String("action", entry.Action),
		zap.String("mod", entry.ModID),
		zap.String("target", entry.TargetID),
		zap.String("reason", entry.Reason),
	)

	if logChannel != "" {
		_ = l.gw.SendEmbed(ctx, logChannel, buildEmbed(entry))
	}
	return nil
}

func buildEmbed(entry storage.ModLogEntry) gateway.Embed {
	embed := gateway.Embed{
		Title: entry.Action,
		Color: embedColor(entry.Action),
	}
	if entry.TargetID != "" {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "User", Value: mention(entry.TargetID), Inline: true})
	}
	if entry.ModID != "" {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Moderator", Value: mention(entry.ModID), Inline: true})
	}
	if entry.Reason != "" {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Reason", Value: entry.Reason})
	}
	return embed
}

func embedColor(action string) int {
	switch action {
	case ActionBan, ActionKick, ActionEscalation:
		return 0xe74c3c
	case ActionWarn, ActionMute:
		return 0xe67e22
	case ActionLevelUp:
		return 0x2ecc71
	default:
		return 0x95a5a6
	}
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
