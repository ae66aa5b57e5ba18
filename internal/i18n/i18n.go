// Package i18n holds the user-facing strings. German is the default
// language; unknown languages fall back to English.
package i18n

import "fmt"

var tables = map[string]map[string]string{
	"de": {
		"level_up":            "🎉 <@%s> ist jetzt Level %d!",
		"reward_granted":      "🎁 <@%s> hat eine Belohnung erhalten: %s",
		"warn_dm":             "Du wurdest auf **%s** verwarnt. Grund: %s (Verwarnung %d/%d)",
		"warn_issued":         "⚠️ <@%s> wurde verwarnt. Grund: %s (%d/%d)",
		"warn_cleared":        "Verwarnungen von <@%s> wurden zurückgesetzt (%d entfernt).",
		"escalation_mute":     "🔇 <@%s> wurde wegen zu vieler Verwarnungen stummgeschaltet.",
		"escalation_kick":     "👢 <@%s> wurde wegen zu vieler Verwarnungen gekickt.",
		"escalation_ban":      "🔨 <@%s> wurde wegen zu vieler Verwarnungen gebannt.",
		"temp_not_owner":      "Nur der Besitzer des Kanals kann das tun.",
		"temp_action_off":     "Diese Aktion ist für diesen Kanal deaktiviert.",
		"temp_owner_present":  "Der Besitzer ist noch im Kanal.",
		"temp_claimed":        "<@%s> ist jetzt Besitzer dieses Kanals.",
		"rank":                "<@%s> ist Level %d mit %d XP (%d/%d bis zum nächsten Level).",
		"leaderboard_header":  "🏆 Bestenliste",
		"command_exists":      "Dieser Befehl existiert bereits.",
		"command_missing":     "Diesen Befehl gibt es nicht.",
	},
	"en": {
		"level_up":            "🎉 <@%s> reached level %d!",
		"reward_granted":      "🎁 <@%s> earned a reward: %s",
		"warn_dm":             "You were warned on **%s**. Reason: %s (warning %d/%d)",
		"warn_issued":         "⚠️ <@%s> was warned. Reason: %s (%d/%d)",
		"warn_cleared":        "Cleared warnings for <@%s> (%d removed).",
		"escalation_mute":     "🔇 <@%s> was muted for reaching the warning threshold.",
		"escalation_kick":     "👢 <@%s> was kicked for reaching the warning threshold.",
		"escalation_ban":      "🔨 <@%s> was banned for reaching the warning threshold.",
		"temp_not_owner":      "Only the channel owner can do that.",
		"temp_action_off":     "That action is disabled for this channel.",
		"temp_owner_present":  "The owner is still in the channel.",
		"temp_claimed":        "<@%s> now owns this channel.",
		"rank":                "<@%s> is level %d with %d XP (%d/%d to the next level).",
		"leaderboard_header":  "🏆 Leaderboard",
		"command_exists":      "That command already exists.",
		"command_missing":     "No such command.",
	},
}

// T resolves key in lang and formats it with args.
func T(lang, key string, args ...any) string {
	table, ok := tables[lang]
	if !ok {
		table = tables["en"]
	}
	format, ok := table[key]
	if !ok {
		format = tables["en"][key]
	}
	if format == "" {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
