// Package bot wires the Discord session to the engines.
package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildkeeper/internal/config"
	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/gateway"
	"guildkeeper/internal/leveling"
	"guildkeeper/internal/moderation"
	"guildkeeper/internal/modlog"
	"guildkeeper/internal/news"
	"guildkeeper/internal/storage"
	"guildkeeper/internal/tempvoice"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	session    *discordgo.Session
	gw         gateway.Gateway
	dispatcher *dispatch.Dispatcher
	leveling   *leveling.Engine
	moderation *moderation.Engine
	tempvoice  *tempvoice.Orchestrator
	news       *news.Dispatcher
	modlog     *modlog.Logger
	scheduler  *scheduler
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	gw := gateway.NewDiscord(session)
	defaults := guildDefaults(cfg)
	ml := modlog.New(store, gw, logger)

	b := &Bot{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		session:    session,
		gw:         gw,
		dispatcher: dispatch.New(logger),
		leveling:   leveling.New(store, gw, ml, logger, defaults),
		moderation: moderation.New(store, gw, ml, logger, defaults),
		tempvoice:  tempvoice.New(store, gw, logger, defaults),
		news:       news.New(store, gw, logger, defaults),
		modlog:     ml,
	}
	b.scheduler = newScheduler(b)
	b.registerDispatch()
	return b, nil
}

// registerDispatch fixes the event routing. Message order matters: custom
// commands consume their messages before the leveling engine sees them.
func (b *Bot) registerDispatch() {
	b.dispatcher.OnMessage("custom-command", b.handleCustomCommand)
	b.dispatcher.OnMessage("ai-channel", b.handleAIChannel)
	b.dispatcher.OnMessage("leveling", func(ctx context.Context, event dispatch.MessageEvent) (bool, error) {
		return false, b.leveling.HandleMessage(ctx, event.GuildID, event.ChannelID, event.UserID)
	})

	b.dispatcher.OnVoiceState("tempvoice", func(ctx context.Context, event dispatch.VoiceStateEvent) error {
		return b.tempvoice.HandleVoiceState(ctx, event.GuildID, event.UserID, event.UserName, event.ChannelID, event.PrevChannelID)
	})

	b.dispatcher.OnMemberJoin("welcome", b.handleMemberJoin)
	b.dispatcher.OnMemberLeave("goodbye", b.handleMemberLeave)
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onMessageReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	if err := b.registerCommands(); err != nil {
		return err
	}
	b.scheduler.start()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.scheduler != nil {
		b.scheduler.stop()
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.ID == "" {
		return
	}
	guildID := event.Guild.ID
	go func() {
		if err := b.tempvoice.Reconcile(context.Background(), guildID); err != nil {
			b.logger.Warn("temp channel reconcile failed", zap.String("guild", guildID), zap.Error(err))
		}
	}()
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	b.dispatcher.DispatchMessage(context.Background(), dispatch.MessageEvent{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    msg.Author.ID,
		UserName:  displayName(msg.Member, msg.Author),
		Content:   msg.Content,
	})
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" || event.UserID == "" {
		return
	}
	if member, err := session.State.Member(event.GuildID, event.UserID); err == nil && member.User != nil && member.User.Bot {
		return
	}

	prev := ""
	if event.BeforeUpdate != nil {
		prev = event.BeforeUpdate.ChannelID
	}
	if prev == event.ChannelID {
		// mute, deafen or stream toggles; no channel transition
		return
	}

	b.dispatcher.DispatchVoiceState(context.Background(), dispatch.VoiceStateEvent{
		GuildID:       event.GuildID,
		UserID:        event.UserID,
		UserName:      b.memberName(event.GuildID, event.UserID),
		ChannelID:     event.ChannelID,
		PrevChannelID: prev,
	})
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil || event.User.Bot {
		return
	}
	b.dispatcher.DispatchMemberJoin(context.Background(), dispatch.MemberEvent{
		GuildID:  event.GuildID,
		UserID:   event.User.ID,
		UserName: event.User.Username,
	})
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.GuildID == "" || event.User == nil || event.User.Bot {
		return
	}
	b.dispatcher.DispatchMemberLeave(context.Background(), dispatch.MemberEvent{
		GuildID:  event.GuildID,
		UserID:   event.User.ID,
		UserName: event.User.Username,
	})
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" {
		return
	}
	b.dispatcher.DispatchReaction(context.Background(), dispatch.ReactionEvent{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Emoji:     event.Emoji.Name,
		Added:     true,
	})
}

func (b *Bot) onMessageReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.GuildID == "" {
		return
	}
	b.dispatcher.DispatchReaction(context.Background(), dispatch.ReactionEvent{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Emoji:     event.Emoji.Name,
	})
}

func (b *Bot) handleCustomCommand(ctx context.Context, event dispatch.MessageEvent) (bool, error) {
	cfg := b.guildConfig(ctx, event.GuildID)
	if cfg.Prefix == "" || !strings.HasPrefix(event.Content, cfg.Prefix) {
		return false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(event.Content, cfg.Prefix))
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])

	command, found, err := b.store.GetCustomCommand(ctx, event.GuildID, name)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, b.gw.SendMessage(ctx, event.ChannelID, command.Response)
}

// handleAIChannel consumes messages in the configured AI channel so they
// never earn XP. Generating a response is a separate concern; nothing here
// does it yet.
func (b *Bot) handleAIChannel(ctx context.Context, event dispatch.MessageEvent) (bool, error) {
	cfg := b.guildConfig(ctx, event.GuildID)
	if !cfg.AIEnabled || cfg.AIChannel == "" || event.ChannelID != cfg.AIChannel {
		return false, nil
	}
	return true, nil
}

func (b *Bot) handleMemberJoin(ctx context.Context, event dispatch.MemberEvent) error {
	cfg := b.guildConfig(ctx, event.GuildID)

	roles, err := b.store.ListAutoRoles(ctx, event.GuildID)
	if err != nil {
		return err
	}
	for _, roleID := range roles {
		if err := b.gw.GrantRole(ctx, event.GuildID, event.UserID, roleID); err != nil {
			b.logger.Warn("auto role failed",
				zap.String("guild", event.GuildID),
				zap.String("role", roleID),
				zap.Error(err))
		}
	}

	if !cfg.WelcomeEnabled || cfg.WelcomeChannel == "" || cfg.WelcomeMessage == "" {
		return nil
	}
	message := strings.ReplaceAll(cfg.WelcomeMessage, "{user}", "<@"+event.UserID+">")
	return b.gw.SendMessage(ctx, cfg.WelcomeChannel, message)
}

func (b *Bot) handleMemberLeave(ctx context.Context, event dispatch.MemberEvent) error {
	cfg := b.guildConfig(ctx, event.GuildID)
	if !cfg.GoodbyeEnabled || cfg.WelcomeChannel == "" || cfg.GoodbyeMessage == "" {
		return nil
	}
	// the member is gone; mentions would not resolve
	message := strings.ReplaceAll(cfg.GoodbyeMessage, "{user}", event.UserName)
	return b.gw.SendMessage(ctx, cfg.WelcomeChannel, message)
}

func (b *Bot) guildConfig(ctx context.Context, guildID string) storage.GuildConfig {
	defaults := guildDefaults(b.cfg)
	cfg, err := b.store.GetGuildConfig(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild config fallback", zap.String("guild", guildID), zap.Error(err))
		defaults.GuildID = guildID
		return defaults
	}
	return cfg
}

func guildDefaults(cfg config.Config) storage.GuildConfig {
	return storage.GuildConfig{
		Language:          cfg.DefaultLanguage,
		Prefix:            cfg.Guild.Prefix,
		LevelingEnabled:   cfg.Guild.LevelingEnabled,
		XPPerMessage:      cfg.Guild.XPPerMessage,
		XPCooldownSeconds: cfg.Guild.XPCooldownSeconds,
		VoiceXPEnabled:    cfg.Guild.VoiceXPEnabled,
		VoiceXPPerMinute:  cfg.Guild.VoiceXPPerMinute,
		VoiceXPMinUsers:   cfg.Guild.VoiceXPMinUsers,
		TempEnabled:       cfg.Guild.TempEnabled,
		TempNameTemplate:  cfg.Guild.TempNameTemplate,
		TempDefaultLimit:  cfg.Guild.TempDefaultLimit,
		TempBitrate:       cfg.Guild.TempBitrate,
		WarnThreshold:     cfg.Guild.WarnThreshold,
		WarnAction:        cfg.Guild.WarnAction,
	}
}

func (b *Bot) memberName(guildID, userID string) string {
	member, err := b.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, _ = b.session.GuildMember(guildID, userID)
	}
	if member == nil || member.User == nil {
		return userID
	}
	return displayName(member, member.User)
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user != nil && user.Username != "" {
		return user.Username
	}
	return ""
}
