// Package gateway narrows the Discord session to the calls the engines make,
// so they can be driven by a fake in tests.
package gateway

import (
	"context"
	"time"
)

// VoiceMember is a member currently connected to a voice channel.
type VoiceMember struct {
	UserID   string
	Bot      bool
	SelfDeaf bool
}

// VoiceChannelSpec describes a voice channel to create or edit. Zero values
// for UserLimit and Bitrate mean "leave unset".
type VoiceChannelSpec struct {
	Name       string
	CategoryID string
	UserLimit  int
	Bitrate    int
}

// PermissionSet is the subset of channel overwrites the temp-channel flows
// toggle for a single user or role.
type PermissionSet struct {
	Connect       *bool
	ViewChannel   *bool
	ManageChannel *bool
	MoveMembers   *bool
	MuteMembers   *bool
}

// Embed is a provider-neutral embed. The Discord adapter maps it onto the
// wire format.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Gateway is everything the engines need from the chat platform.
type Gateway interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed Embed) error
	SendDM(ctx context.Context, userID, content string) error

	CreateVoiceChannel(ctx context.Context, guildID string, spec VoiceChannelSpec) (channelID string, err error)
	EditVoiceChannel(ctx context.Context, channelID string, spec VoiceChannelSpec) error
	DeleteChannel(ctx context.Context, channelID string) error
	SetChannelPosition(ctx context.Context, channelID string, position int) error
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	SetUserPermissions(ctx context.Context, channelID, userID string, perms PermissionSet) error
	SetRolePermissions(ctx context.Context, channelID, roleID string, perms PermissionSet) error
	ClearUserPermissions(ctx context.Context, channelID, userID string) error

	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	DisconnectMember(ctx context.Context, guildID, userID string) error
	VoiceChannelMembers(guildID, channelID string) ([]VoiceMember, error)
	GuildVoiceStates(guildID string) (map[string][]VoiceMember, error)
	GuildName(guildID string) (string, error)

	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
}
