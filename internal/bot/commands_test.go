package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestModerationCommandsArePermissionGated(t *testing.T) {
	gates := map[string]int64{
		"warn":          discordgo.PermissionModerateMembers,
		"warnings":      discordgo.PermissionModerateMembers,
		"clearwarnings": discordgo.PermissionModerateMembers,
		"mute":          discordgo.PermissionModerateMembers,
		"unmute":        discordgo.PermissionModerateMembers,
		"kick":          discordgo.PermissionKickMembers,
		"ban":           discordgo.PermissionBanMembers,
		"voicesetup":    discordgo.PermissionManageServer,
		"command":       discordgo.PermissionManageServer,
		"news":          discordgo.PermissionManageServer,
		"levelrole":     discordgo.PermissionManageServer,
		"autorole":      discordgo.PermissionManageServer,
		"ignorexp":      discordgo.PermissionManageServer,
		"config":        discordgo.PermissionManageServer,
	}

	for _, cmd := range commandDefinitions() {
		want, gated := gates[cmd.Name]
		if !gated {
			if cmd.DefaultMemberPermissions != nil {
				t.Fatalf("%s should be open to everyone, got gate %d", cmd.Name, *cmd.DefaultMemberPermissions)
			}
			continue
		}
		if cmd.DefaultMemberPermissions == nil {
			t.Fatalf("%s carries no permission gate", cmd.Name)
		}
		if *cmd.DefaultMemberPermissions != want {
			t.Fatalf("%s gated on %d, want %d", cmd.Name, *cmd.DefaultMemberPermissions, want)
		}
		delete(gates, cmd.Name)
	}
	for name := range gates {
		t.Fatalf("gated command %s is not registered", name)
	}
}
