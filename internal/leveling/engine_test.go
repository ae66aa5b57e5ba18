package leveling

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/gateway/gatewaytest"
	"guildkeeper/internal/modlog"
	"guildkeeper/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testDefaults() storage.GuildConfig {
	return storage.GuildConfig{
		Language:          "de",
		LevelingEnabled:   true,
		XPPerMessage:      15,
		XPCooldownSeconds: 60,
		VoiceXPEnabled:    true,
		VoiceXPPerMinute:  5,
		VoiceXPMinUsers:   2,
	}
}

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *gatewaytest.Fake, *fakeClock) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fake := gatewaytest.New()
	log := zap.NewNop()
	engine := New(store, fake, modlog.New(store, fake, log), log, testDefaults())
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	engine.clock = clock
	return engine, store, fake, clock
}

func TestHandleMessageCooldown(t *testing.T) {
	engine, store, _, clock := newTestEngine(t)
	ctx := context.Background()

	if err := engine.HandleMessage(ctx, "g1", "c1", "u1"); err != nil {
		t.Fatalf("first message: %v", err)
	}
	clock.now = clock.now.Add(30 * time.Second)
	if err := engine.HandleMessage(ctx, "g1", "c1", "u1"); err != nil {
		t.Fatalf("second message: %v", err)
	}

	// the second message fell inside the window and must not write anything
	progress, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XP != 15 || progress.Messages != 1 {
		t.Fatalf("expected on-cooldown message to leave state untouched, got xp %d messages %d", progress.XP, progress.Messages)
	}

	clock.now = clock.now.Add(31 * time.Second)
	if err := engine.HandleMessage(ctx, "g1", "c1", "u1"); err != nil {
		t.Fatalf("third message: %v", err)
	}

	progress, err = store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XP != 30 {
		t.Fatalf("expected 30 xp (two awards), got %d", progress.XP)
	}
	if progress.Messages != 2 {
		t.Fatalf("expected 2 messages counted, got %d", progress.Messages)
	}
}

func TestHandleMessageLevelUp(t *testing.T) {
	engine, store, fake, _ := newTestEngine(t)
	ctx := context.Background()

	if err := store.UpdateProgress(ctx, storage.UserProgress{GuildID: "g1", UserID: "u1", XP: 95}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	if err := store.SetLevelRole(ctx, "g1", 1, "role-lvl1"); err != nil {
		t.Fatalf("set level role: %v", err)
	}

	if err := engine.HandleMessage(ctx, "g1", "c1", "u1"); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	progress, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XP != 110 || progress.Level != 1 {
		t.Fatalf("expected 110 xp at level 1, got %d at %d", progress.XP, progress.Level)
	}

	grants := fake.CallsTo("GrantRole")
	if len(grants) != 1 || grants[0].RoleID != "role-lvl1" {
		t.Fatalf("expected one level role grant, got %+v", grants)
	}
	announcements := fake.CallsTo("SendMessage")
	if len(announcements) != 1 || announcements[0].ChannelID != "c1" {
		t.Fatalf("expected one announcement in source channel, got %+v", announcements)
	}

	logs, err := store.ListModLogs(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != modlog.ActionLevelUp {
		t.Fatalf("expected one level_up log entry, got %+v", logs)
	}
}

func TestHandleMessageIgnoredChannel(t *testing.T) {
	engine, store, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := store.AddIgnoredChannel(ctx, "g1", "spam"); err != nil {
		t.Fatalf("add ignored channel: %v", err)
	}
	if err := engine.HandleMessage(ctx, "g1", "spam", "u1"); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	progress, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XP != 0 || progress.Messages != 0 {
		t.Fatalf("expected no progress in ignored channel, got %+v", progress)
	}
}

func TestVoiceTick(t *testing.T) {
	engine, store, fake, _ := newTestEngine(t)
	ctx := context.Background()

	fake.SetMembers("vc1", []gateway.VoiceMember{
		{UserID: "u1"},
		{UserID: "u2"},
		{UserID: "bot", Bot: true},
		{UserID: "sleeper", SelfDeaf: true},
	})
	fake.SetMembers("vc2", []gateway.VoiceMember{
		{UserID: "loner"},
	})

	if err := engine.VoiceTick(ctx, "g1"); err != nil {
		t.Fatalf("voice tick: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		progress, err := store.GetProgress(ctx, "g1", userID)
		if err != nil {
			t.Fatalf("get progress %s: %v", userID, err)
		}
		if progress.XP != 5 {
			t.Fatalf("expected 5 voice xp for %s, got %d", userID, progress.XP)
		}
	}
	for _, userID := range []string{"bot", "sleeper", "loner"} {
		progress, err := store.GetProgress(ctx, "g1", userID)
		if err != nil {
			t.Fatalf("get progress %s: %v", userID, err)
		}
		if progress.XP != 0 {
			t.Fatalf("expected no voice xp for %s, got %d", userID, progress.XP)
		}
	}
}
