// Package gatewaytest provides an in-memory Gateway for engine tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildkeeper/internal/gateway"
)

// Call records one gateway invocation: the method name plus its arguments.
type Call struct {
	Method    string
	GuildID   string
	ChannelID string
	UserID    string
	RoleID    string
	Content   string
	Embed     gateway.Embed
	Spec      gateway.VoiceChannelSpec
	Perms     gateway.PermissionSet
	Until     time.Time
	Reason    string
}

// Fake implements gateway.Gateway, recording calls and simulating a minimal
// channel universe. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	calls    []Call
	channels map[string]gateway.VoiceChannelSpec
	members  map[string][]gateway.VoiceMember
	nextID   int

	// Fail makes every call return this error when set.
	Fail error
}

func New() *Fake {
	return &Fake{
		channels: make(map[string]gateway.VoiceChannelSpec),
		members:  make(map[string][]gateway.VoiceMember),
	}
}

func (f *Fake) record(call Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.Fail
}

// Calls returns a copy of everything recorded so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo filters recorded calls by method name.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// ChannelCount reports how many simulated channels are live.
func (f *Fake) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

// SetMembers seeds the simulated occupancy of a voice channel.
func (f *Fake) SetMembers(channelID string, members []gateway.VoiceMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[channelID] = members
}

func (f *Fake) SendMessage(_ context.Context, channelID, content string) error {
	return f.record(Call{Method: "SendMessage", ChannelID: channelID, Content: content})
}

func (f *Fake) SendEmbed(_ context.Context, channelID string, embed gateway.Embed) error {
	return f.record(Call{Method: "SendEmbed", ChannelID: channelID, Embed: embed})
}

func (f *Fake) SendDM(_ context.Context, userID, content string) error {
	return f.record(Call{Method: "SendDM", UserID: userID, Content: content})
}

func (f *Fake) CreateVoiceChannel(_ context.Context, guildID string, spec gateway.VoiceChannelSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "CreateVoiceChannel", GuildID: guildID, Spec: spec})
	if f.Fail != nil {
		return "", f.Fail
	}
	f.nextID++
	channelID := fmt.Sprintf("chan-%d", f.nextID)
	f.channels[channelID] = spec
	return channelID, nil
}

func (f *Fake) EditVoiceChannel(_ context.Context, channelID string, spec gateway.VoiceChannelSpec) error {
	err := f.record(Call{Method: "EditVoiceChannel", ChannelID: channelID, Spec: spec})
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; ok {
		f.channels[channelID] = spec
	}
	return nil
}

func (f *Fake) SetChannelPosition(_ context.Context, channelID string, position int) error {
	return f.record(Call{Method: "SetChannelPosition", ChannelID: channelID, Content: fmt.Sprintf("%d", position)})
}

func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	err := f.record(Call{Method: "DeleteChannel", ChannelID: channelID})
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	delete(f.members, channelID)
	return nil
}

func (f *Fake) ChannelExists(_ context.Context, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return false, f.Fail
	}
	_, ok := f.channels[channelID]
	return ok, nil
}

func (f *Fake) SetUserPermissions(_ context.Context, channelID, userID string, perms gateway.PermissionSet) error {
	return f.record(Call{Method: "SetUserPermissions", ChannelID: channelID, UserID: userID, Perms: perms})
}

func (f *Fake) SetRolePermissions(_ context.Context, channelID, roleID string, perms gateway.PermissionSet) error {
	return f.record(Call{Method: "SetRolePermissions", ChannelID: channelID, RoleID: roleID, Perms: perms})
}

func (f *Fake) ClearUserPermissions(_ context.Context, channelID, userID string) error {
	return f.record(Call{Method: "ClearUserPermissions", ChannelID: channelID, UserID: userID})
}

func (f *Fake) MoveMember(_ context.Context, guildID, userID, channelID string) error {
	return f.record(Call{Method: "MoveMember", GuildID: guildID, UserID: userID, ChannelID: channelID})
}

func (f *Fake) DisconnectMember(_ context.Context, guildID, userID string) error {
	return f.record(Call{Method: "DisconnectMember", GuildID: guildID, UserID: userID})
}

func (f *Fake) VoiceChannelMembers(_, channelID string) ([]gateway.VoiceMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	return append([]gateway.VoiceMember(nil), f.members[channelID]...), nil
}

func (f *Fake) GuildVoiceStates(string) (map[string][]gateway.VoiceMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	states := make(map[string][]gateway.VoiceMember, len(f.members))
	for channelID, members := range f.members {
		states[channelID] = append([]gateway.VoiceMember(nil), members...)
	}
	return states, nil
}

func (f *Fake) GuildName(guildID string) (string, error) {
	if f.Fail != nil {
		return "", f.Fail
	}
	return "guild " + guildID, nil
}

func (f *Fake) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	return f.record(Call{Method: "GrantRole", GuildID: guildID, UserID: userID, RoleID: roleID})
}

func (f *Fake) RevokeRole(_ context.Context, guildID, userID, roleID string) error {
	return f.record(Call{Method: "RevokeRole", GuildID: guildID, UserID: userID, RoleID: roleID})
}

func (f *Fake) TimeoutMember(_ context.Context, guildID, userID string, until time.Time) error {
	return f.record(Call{Method: "TimeoutMember", GuildID: guildID, UserID: userID, Until: until})
}

func (f *Fake) KickMember(_ context.Context, guildID, userID, reason string) error {
	return f.record(Call{Method: "KickMember", GuildID: guildID, UserID: userID, Reason: reason})
}

func (f *Fake) BanMember(_ context.Context, guildID, userID, reason string) error {
	return f.record(Call{Method: "BanMember", GuildID: guildID, UserID: userID, Reason: reason})
}
