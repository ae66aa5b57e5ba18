package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildkeeper/internal/i18n"
	"guildkeeper/internal/storage"
	"guildkeeper/internal/tempvoice"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "This command only works in a server.", true)
		return
	}
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	actorID := interaction.Member.User.ID
	cfg := b.guildConfig(ctx, interaction.GuildID)

	switch data.Name {
	case "rank":
		b.handleRank(ctx, session, interaction, cfg, data.Options)
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction, cfg)
	case "warn":
		b.handleWarn(ctx, session, interaction, cfg, actorID, data.Options)
	case "warnings":
		b.handleWarnings(ctx, session, interaction, data.Options)
	case "clearwarnings":
		b.handleClearWarnings(ctx, session, interaction, cfg, actorID, data.Options)
	case "mute", "unmute", "kick", "ban":
		b.handleModAction(ctx, session, interaction, data.Name, actorID, data.Options)
	case "voice":
		b.handleVoice(ctx, session, interaction, cfg, actorID, data.Options)
	case "voicesetup":
		b.handleVoiceSetup(ctx, session, interaction, cfg, data.Options)
	case "command":
		b.handleCustomCommandAdmin(ctx, session, interaction, cfg, actorID, data.Options)
	case "news":
		b.handleNews(ctx, session, interaction, data.Options)
	case "levelrole":
		b.handleLevelRole(ctx, session, interaction, data.Options)
	case "autorole":
		b.handleAutoRole(ctx, session, interaction, data.Options)
	case "ignorexp":
		b.handleIgnoreXP(ctx, session, interaction, data.Options)
	case "config":
		b.handleConfig(ctx, session, interaction, cfg, data.Options)
	}
}

func (b *Bot) handleRank(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := interaction.Member.User.ID
	if len(options) > 0 {
		if user := options[0].UserValue(session); user != nil {
			userID = user.ID
		}
	}

	rank, err := b.leveling.Rank(ctx, interaction.GuildID, userID)
	if err != nil {
		b.logger.Warn("rank lookup failed", zap.Error(err))
		b.respond(session, interaction, "Lookup failed.", true)
		return
	}
	b.respond(session, interaction, i18n.T(cfg.Language, "rank",
		userID, rank.Progress.Level, rank.Progress.XP, rank.IntoLevel, rank.ForNext), false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig) {
	entries, err := b.store.Leaderboard(ctx, interaction.GuildID, 10)
	if err != nil {
		b.logger.Warn("leaderboard failed", zap.Error(err))
		b.respond(session, interaction, "Lookup failed.", true)
		return
	}
	if len(entries) == 0 {
		b.respond(session, interaction, "No one has earned XP yet.", true)
		return
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "**"+i18n.T(cfg.Language, "leaderboard_header")+"**")
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. <@%s> - Level %d (%d XP)", i+1, entry.UserID, entry.Level, entry.XP))
	}
	b.respond(session, interaction, strings.Join(lines, "\n"), false)
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	user := opts["user"].UserValue(session)
	reason := opts["reason"].StringValue()
	if user == nil {
		b.respond(session, interaction, "User not found.", true)
		return
	}

	result, err := b.moderation.Warn(ctx, interaction.GuildID, actorID, user.ID, reason)
	if err != nil {
		b.logger.Warn("warn failed", zap.Error(err))
		b.respond(session, interaction, "Warning failed.", true)
		return
	}

	reply := i18n.T(cfg.Language, "warn_issued", user.ID, reason, result.Count, result.Threshold)
	if result.Escalated {
		reply += "\n" + i18n.T(cfg.Language, "escalation_"+result.Action, user.ID)
	}
	b.respond(session, interaction, reply, false)
}

func (b *Bot) handleWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	user := optionMap(options)["user"].UserValue(session)
	if user == nil {
		b.respond(session, interaction, "User not found.", true)
		return
	}

	warnings, err := b.moderation.Warnings(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.logger.Warn("warnings lookup failed", zap.Error(err))
		b.respond(session, interaction, "Lookup failed.", true)
		return
	}
	if len(warnings) == 0 {
		b.respond(session, interaction, fmt.Sprintf("<@%s> has no warnings.", user.ID), true)
		return
	}

	lines := make([]string, 0, len(warnings))
	for i, warning := range warnings {
		lines = append(lines, fmt.Sprintf("%d. %s - %s (by <@%s>)",
			i+1, warning.CreatedAt.Format("2006-01-02"), warning.Reason, warning.ModID))
	}
	b.respond(session, interaction, strings.Join(lines, "\n"), true)
}

func (b *Bot) handleClearWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	user := optionMap(options)["user"].UserValue(session)
	if user == nil {
		b.respond(session, interaction, "User not found.", true)
		return
	}

	deleted, err := b.moderation.ClearWarnings(ctx, interaction.GuildID, actorID, user.ID)
	if err != nil {
		b.logger.Warn("clear warnings failed", zap.Error(err))
		b.respond(session, interaction, "Clearing failed.", true)
		return
	}
	b.respond(session, interaction, i18n.T(cfg.Language, "warn_cleared", user.ID, deleted), false)
}

func (b *Bot) handleModAction(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, action, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	user := opts["user"].UserValue(session)
	if user == nil {
		b.respond(session, interaction, "User not found.", true)
		return
	}
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	var err error
	switch action {
	case "mute":
		duration := time.Duration(0)
		if opt, ok := opts["minutes"]; ok {
			duration = time.Duration(opt.IntValue()) * time.Minute
		}
		err = b.moderation.Mute(ctx, interaction.GuildID, actorID, user.ID, duration, reason)
	case "unmute":
		err = b.moderation.Unmute(ctx, interaction.GuildID, actorID, user.ID)
	case "kick":
		err = b.moderation.Kick(ctx, interaction.GuildID, actorID, user.ID, reason)
	case "ban":
		err = b.moderation.Ban(ctx, interaction.GuildID, actorID, user.ID, reason)
	}
	if err != nil {
		b.logger.Warn("mod action failed", zap.String("action", action), zap.Error(err))
		b.respond(session, interaction, "Action failed.", true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Done: %s <@%s>.", action, user.ID), false)
}

func (b *Bot) handleVoice(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	channelID := b.voiceChannelOf(interaction.GuildID, actorID)
	if channelID == "" {
		b.respond(session, interaction, "Join a voice channel first.", true)
		return
	}
	opts := optionMap(sub.Options)

	var err error
	switch sub.Name {
	case "rename":
		err = b.tempvoice.Rename(ctx, channelID, actorID, opts["name"].StringValue())
	case "limit":
		err = b.tempvoice.SetLimit(ctx, channelID, actorID, int(opts["value"].IntValue()))
	case "bitrate":
		err = b.tempvoice.SetBitrate(ctx, channelID, actorID, int(opts["value"].IntValue()))
	case "lock":
		err = b.tempvoice.Lock(ctx, channelID, actorID)
	case "unlock":
		err = b.tempvoice.Unlock(ctx, channelID, actorID)
	case "hide":
		err = b.tempvoice.Hide(ctx, channelID, actorID)
	case "unhide":
		err = b.tempvoice.Unhide(ctx, channelID, actorID)
	case "kick":
		if user := opts["user"].UserValue(session); user != nil {
			err = b.tempvoice.KickUser(ctx, channelID, actorID, user.ID)
		}
	case "permit":
		if user := opts["user"].UserValue(session); user != nil {
			err = b.tempvoice.PermitUser(ctx, channelID, actorID, user.ID)
		}
	case "reject":
		if user := opts["user"].UserValue(session); user != nil {
			err = b.tempvoice.RejectUser(ctx, channelID, actorID, user.ID)
		}
	case "claim":
		err = b.tempvoice.Claim(ctx, channelID, actorID)
		if err == nil {
			b.respond(session, interaction, i18n.T(cfg.Language, "temp_claimed", actorID), false)
			return
		}
	}

	switch {
	case err == nil:
		b.respond(session, interaction, "Done.", true)
	case errors.Is(err, tempvoice.ErrNotTempChannel):
		b.respond(session, interaction, "You are not in a temporary channel.", true)
	case errors.Is(err, tempvoice.ErrNotOwner):
		b.respond(session, interaction, i18n.T(cfg.Language, "temp_not_owner"), true)
	case errors.Is(err, tempvoice.ErrActionDisabled):
		b.respond(session, interaction, i18n.T(cfg.Language, "temp_action_off"), true)
	case errors.Is(err, tempvoice.ErrOwnerPresent):
		b.respond(session, interaction, i18n.T(cfg.Language, "temp_owner_present"), true)
	default:
		b.logger.Warn("voice command failed", zap.String("sub", sub.Name), zap.Error(err))
		b.respond(session, interaction, "Action failed.", true)
	}
}

func (b *Bot) handleVoiceSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "create":
		creator := storage.TempCreator{
			ID:             interaction.ID,
			GuildID:        interaction.GuildID,
			NameTemplate:   cfg.TempNameTemplate,
			DefaultLimit:   cfg.TempDefaultLimit,
			DefaultBitrate: cfg.TempBitrate,
			AllowRename:    true,
			AllowLimit:     true,
			AllowLock:      true,
			AllowHide:      true,
			AllowKick:      true,
			AllowPermit:    true,
			AllowBitrate:   true,
		}
		if opt, ok := opts["category"]; ok {
			if channel := opt.ChannelValue(session); channel != nil {
				creator.CategoryID = channel.ID
			}
		}
		if opt, ok := opts["template"]; ok {
			creator.NameTemplate = opt.StringValue()
		}
		if opt, ok := opts["numbering"]; ok {
			creator.NumberingType = opt.StringValue()
		}
		if opt, ok := opts["position"]; ok {
			creator.Position = opt.StringValue()
		}

		created, err := b.tempvoice.SetupCreator(ctx, creator, opts["name"].StringValue())
		if err != nil {
			b.logger.Warn("lobby create failed", zap.Error(err))
			b.respond(session, interaction, "Lobby creation failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Lobby <#%s> created (id `%s`).", created.ChannelID, created.ID), false)
	case "remove":
		if err := b.tempvoice.RemoveCreator(ctx, opts["id"].StringValue()); err != nil {
			b.logger.Warn("lobby remove failed", zap.Error(err))
			b.respond(session, interaction, "Lobby removal failed.", true)
			return
		}
		b.respond(session, interaction, "Lobby removed.", false)
	case "list":
		creators, err := b.store.ListTempCreators(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Lookup failed.", true)
			return
		}
		if len(creators) == 0 {
			b.respond(session, interaction, "No lobbies configured.", true)
			return
		}
		lines := make([]string, 0, len(creators))
		for _, creator := range creators {
			lines = append(lines, fmt.Sprintf("`%s` <#%s> numbering=%s position=%s spawned=%d",
				creator.ID, creator.ChannelID, creator.NumberingType, creator.Position, creator.Counter))
		}
		b.respond(session, interaction, strings.Join(lines, "\n"), true)
	}
}

func (b *Bot) handleCustomCommandAdmin(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "add":
		name := strings.ToLower(opts["name"].StringValue())
		_, exists, err := b.store.GetCustomCommand(ctx, interaction.GuildID, name)
		if err == nil && exists {
			b.respond(session, interaction, i18n.T(cfg.Language, "command_exists"), true)
			return
		}
		err = b.store.PutCustomCommand(ctx, storage.CustomCommand{
			GuildID:   interaction.GuildID,
			Name:      name,
			Response:  opts["response"].StringValue(),
			CreatedBy: actorID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			b.respond(session, interaction, "Saving failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Command `%s%s` added.", cfg.Prefix, name), false)
	case "remove":
		name := strings.ToLower(opts["name"].StringValue())
		removed, err := b.store.DeleteCustomCommand(ctx, interaction.GuildID, name)
		if err != nil {
			b.respond(session, interaction, "Removal failed.", true)
			return
		}
		if !removed {
			b.respond(session, interaction, i18n.T(cfg.Language, "command_missing"), true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Command `%s%s` removed.", cfg.Prefix, name), false)
	case "list":
		commands, err := b.store.ListCustomCommands(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Lookup failed.", true)
			return
		}
		if len(commands) == 0 {
			b.respond(session, interaction, "No custom commands.", true)
			return
		}
		names := make([]string, 0, len(commands))
		for _, command := range commands {
			names = append(names, "`"+cfg.Prefix+command.Name+"`")
		}
		b.respond(session, interaction, strings.Join(names, ", "), true)
	}
}

func (b *Bot) handleNews(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	item := storage.NewsItem{
		ID:      interaction.ID,
		GuildID: interaction.GuildID,
		Title:   opts["title"].StringValue(),
		Content: opts["content"].StringValue(),
	}
	if opt, ok := opts["delay"]; ok && opt.IntValue() > 0 {
		scheduled := time.Now().UTC().Add(time.Duration(opt.IntValue()) * time.Minute)
		item.ScheduledFor = &scheduled
	}

	if err := b.news.Queue(ctx, item); err != nil {
		b.logger.Warn("news queue failed", zap.Error(err))
		b.respond(session, interaction, "Queueing failed.", true)
		return
	}
	if item.ScheduledFor != nil {
		b.respond(session, interaction, fmt.Sprintf("Announcement queued for <t:%d>.", item.ScheduledFor.Unix()), true)
		return
	}
	b.respond(session, interaction, "Announcement queued; it posts within a minute.", true)
}

func (b *Bot) handleLevelRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)
	level := int(opts["level"].IntValue())

	switch sub.Name {
	case "set":
		role := opts["role"].RoleValue(session, interaction.GuildID)
		if role == nil {
			b.respond(session, interaction, "Role not found.", true)
			return
		}
		if err := b.store.SetLevelRole(ctx, interaction.GuildID, level, role.ID); err != nil {
			b.respond(session, interaction, "Saving failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Level %d now grants <@&%s>.", level, role.ID), false)
	case "remove":
		if err := b.store.RemoveLevelRole(ctx, interaction.GuildID, level); err != nil {
			b.respond(session, interaction, "Removal failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Level %d no longer grants a role.", level), false)
	}
}

func (b *Bot) handleAutoRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "add", "remove":
		role := opts["role"].RoleValue(session, interaction.GuildID)
		if role == nil {
			b.respond(session, interaction, "Role not found.", true)
			return
		}
		var err error
		verb := "added"
		if sub.Name == "add" {
			err = b.store.AddAutoRole(ctx, interaction.GuildID, role.ID)
		} else {
			verb = "removed"
			err = b.store.RemoveAutoRole(ctx, interaction.GuildID, role.ID)
		}
		if err != nil {
			b.respond(session, interaction, "Saving failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Join role <@&%s> %s.", role.ID, verb), false)
	case "list":
		roles, err := b.store.ListAutoRoles(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Lookup failed.", true)
			return
		}
		if len(roles) == 0 {
			b.respond(session, interaction, "No join roles configured.", true)
			return
		}
		mentions := make([]string, 0, len(roles))
		for _, roleID := range roles {
			mentions = append(mentions, "<@&"+roleID+">")
		}
		b.respond(session, interaction, strings.Join(mentions, ", "), true)
	}
}

func (b *Bot) handleIgnoreXP(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "add", "remove":
		channel := opts["channel"].ChannelValue(session)
		if channel == nil {
			b.respond(session, interaction, "Channel not found.", true)
			return
		}
		var err error
		verb := "excluded"
		if sub.Name == "add" {
			err = b.store.AddIgnoredChannel(ctx, interaction.GuildID, channel.ID)
		} else {
			verb = "included again"
			err = b.store.RemoveIgnoredChannel(ctx, interaction.GuildID, channel.ID)
		}
		if err != nil {
			b.respond(session, interaction, "Saving failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Channel <#%s> %s.", channel.ID, verb), false)
	case "list":
		channels, err := b.store.ListIgnoredChannels(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Lookup failed.", true)
			return
		}
		if len(channels) == 0 {
			b.respond(session, interaction, "No channels are excluded.", true)
			return
		}
		mentions := make([]string, 0, len(channels))
		for _, channelID := range channels {
			mentions = append(mentions, "<#"+channelID+">")
		}
		b.respond(session, interaction, strings.Join(mentions, ", "), true)
	}
}

func (b *Bot) handleConfig(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, cfg storage.GuildConfig, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "show":
		lines := []string{
			fmt.Sprintf("language: %s | prefix: %s", cfg.Language, cfg.Prefix),
			fmt.Sprintf("leveling: %t | xp/message: %d | cooldown: %ds", cfg.LevelingEnabled, cfg.XPPerMessage, cfg.XPCooldownSeconds),
			fmt.Sprintf("voice xp: %t (%d/min, min %d users)", cfg.VoiceXPEnabled, cfg.VoiceXPPerMinute, cfg.VoiceXPMinUsers),
			fmt.Sprintf("temp channels: %t | template: %s", cfg.TempEnabled, cfg.TempNameTemplate),
			fmt.Sprintf("warnings: %d then %s", cfg.WarnThreshold, cfg.WarnAction),
		}
		b.respond(session, interaction, strings.Join(lines, "\n"), true)
	case "set":
		opts := optionMap(sub.Options)
		key := opts["key"].StringValue()
		value := opts["value"].StringValue()
		if err := applyConfigValue(&cfg, key, value); err != nil {
			b.respond(session, interaction, err.Error(), true)
			return
		}
		if err := b.store.UpsertGuildConfig(ctx, cfg); err != nil {
			b.logger.Warn("config update failed", zap.Error(err))
			b.respond(session, interaction, "Saving failed.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Set %s to %s.", key, value), false)
	}
}

func applyConfigValue(cfg *storage.GuildConfig, key, value string) error {
	parseBool := func() (bool, error) {
		switch strings.ToLower(value) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("expected a non-negative number, got %q", value)
		}
		return n, nil
	}
	channelID := func() string {
		return strings.Trim(value, "<#>")
	}

	switch key {
	case "language":
		cfg.Language = value
	case "prefix":
		cfg.Prefix = value
	case "leveling_enabled":
		enabled, err := parseBool()
		if err != nil {
			return err
		}
		cfg.LevelingEnabled = enabled
	case "xp_per_message":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.XPPerMessage = n
	case "xp_cooldown_seconds":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.XPCooldownSeconds = n
	case "levelup_channel":
		cfg.LevelUpChannel = channelID()
	case "voice_xp_enabled":
		enabled, err := parseBool()
		if err != nil {
			return err
		}
		cfg.VoiceXPEnabled = enabled
	case "voice_xp_per_minute":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.VoiceXPPerMinute = n
	case "voice_xp_min_users":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.VoiceXPMinUsers = n
	case "voice_afk_channel":
		cfg.VoiceAFKChannel = channelID()
	case "temp_name_template":
		cfg.TempNameTemplate = value
	case "ai_enabled":
		enabled, err := parseBool()
		if err != nil {
			return err
		}
		cfg.AIEnabled = enabled
	case "ai_channel":
		cfg.AIChannel = channelID()
	case "temp_channels_enabled":
		enabled, err := parseBool()
		if err != nil {
			return err
		}
		cfg.TempEnabled = enabled
	case "warn_threshold":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.WarnThreshold = n
	case "warn_action":
		switch value {
		case "mute", "kick", "ban":
			cfg.WarnAction = value
		default:
			return fmt.Errorf("warn_action must be mute, kick or ban")
		}
	case "modlog_channel":
		cfg.ModLogChannel = channelID()
	case "news_channel":
		cfg.NewsChannel = channelID()
	case "welcome_channel":
		cfg.WelcomeChannel = channelID()
		cfg.WelcomeEnabled = cfg.WelcomeChannel != ""
	case "welcome_message":
		cfg.WelcomeMessage = value
		cfg.WelcomeEnabled = true
	case "goodbye_message":
		cfg.GoodbyeMessage = value
		cfg.GoodbyeEnabled = true
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (b *Bot) voiceChannelOf(guildID, userID string) string {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return ""
	}
	for _, state := range guild.VoiceStates {
		if state != nil && state.UserID == userID {
			return state.ChannelID
		}
	}
	return ""
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}
