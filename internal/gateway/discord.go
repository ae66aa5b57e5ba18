package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a live discordgo session to the Gateway interface.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SendEmbed(ctx context.Context, channelID string, embed Embed) error {
	_, err := d.session.ChannelMessageSendEmbed(channelID, toMessageEmbed(embed), discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SendDM(ctx context.Context, userID, content string) error {
	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) CreateVoiceChannel(ctx context.Context, guildID string, spec VoiceChannelSpec) (string, error) {
	channel, err := d.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:      spec.Name,
		Type:      discordgo.ChannelTypeGuildVoice,
		ParentID:  spec.CategoryID,
		UserLimit: spec.UserLimit,
		Bitrate:   spec.Bitrate,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (d *Discord) EditVoiceChannel(ctx context.Context, channelID string, spec VoiceChannelSpec) error {
	edit := &discordgo.ChannelEdit{Name: spec.Name}
	if spec.UserLimit > 0 {
		edit.UserLimit = spec.UserLimit
	}
	if spec.Bitrate > 0 {
		edit.Bitrate = spec.Bitrate
	}
	_, err := d.session.ChannelEdit(channelID, edit, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SetChannelPosition(ctx context.Context, channelID string, position int) error {
	_, err := d.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Position: &position}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	_, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Discord) SetUserPermissions(ctx context.Context, channelID, userID string, perms PermissionSet) error {
	allow, deny := permissionMasks(perms)
	return d.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allow, deny, discordgo.WithContext(ctx))
}

func (d *Discord) SetRolePermissions(ctx context.Context, channelID, roleID string, perms PermissionSet) error {
	allow, deny := permissionMasks(perms)
	return d.session.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

func (d *Discord) ClearUserPermissions(ctx context.Context, channelID, userID string) error {
	return d.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx))
}

func (d *Discord) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return d.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx))
}

func (d *Discord) DisconnectMember(ctx context.Context, guildID, userID string) error {
	return d.session.GuildMemberMove(guildID, userID, nil, discordgo.WithContext(ctx))
}

// VoiceChannelMembers reads the gateway state cache; it never hits the REST
// API. Members missing from the cache are reported with zero flags.
func (d *Discord) VoiceChannelMembers(guildID, channelID string) ([]VoiceMember, error) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil {
		return nil, err
	}

	var members []VoiceMember
	for _, state := range guild.VoiceStates {
		if state.ChannelID != channelID {
			continue
		}
		member := VoiceMember{UserID: state.UserID, SelfDeaf: state.SelfDeaf}
		if cached, err := d.session.State.Member(guildID, state.UserID); err == nil && cached.User != nil {
			member.Bot = cached.User.Bot
		}
		members = append(members, member)
	}
	return members, nil
}

// GuildVoiceStates groups the cached voice states by channel.
func (d *Discord) GuildVoiceStates(guildID string) (map[string][]VoiceMember, error) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil {
		return nil, err
	}

	states := make(map[string][]VoiceMember)
	for _, state := range guild.VoiceStates {
		if state.ChannelID == "" {
			continue
		}
		member := VoiceMember{UserID: state.UserID, SelfDeaf: state.SelfDeaf}
		if cached, err := d.session.State.Member(guildID, state.UserID); err == nil && cached.User != nil {
			member.Bot = cached.User.Bot
		}
		states[state.ChannelID] = append(states[state.ChannelID], member)
	}
	return states, nil
}

func (d *Discord) GuildName(guildID string) (string, error) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil {
		return "", err
	}
	return guild.Name, nil
}

func (d *Discord) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *Discord) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *Discord) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error {
	return d.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx))
}

func (d *Discord) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (d *Discord) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func permissionMasks(perms PermissionSet) (allow, deny int64) {
	if perms.Connect != nil {
		if *perms.Connect {
			allow |= discordgo.PermissionVoiceConnect
		} else {
			deny |= discordgo.PermissionVoiceConnect
		}
	}
	if perms.ViewChannel != nil {
		if *perms.ViewChannel {
			allow |= discordgo.PermissionViewChannel
		} else {
			deny |= discordgo.PermissionViewChannel
		}
	}
	if perms.ManageChannel != nil {
		if *perms.ManageChannel {
			allow |= discordgo.PermissionManageChannels
		} else {
			deny |= discordgo.PermissionManageChannels
		}
	}
	if perms.MoveMembers != nil {
		if *perms.MoveMembers {
			allow |= discordgo.PermissionVoiceMoveMembers
		} else {
			deny |= discordgo.PermissionVoiceMoveMembers
		}
	}
	if perms.MuteMembers != nil {
		if *perms.MuteMembers {
			allow |= discordgo.PermissionVoiceMuteMembers
		} else {
			deny |= discordgo.PermissionVoiceMuteMembers
		}
	}
	return allow, deny
}

func toMessageEmbed(embed Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, field := range embed.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	return out
}
