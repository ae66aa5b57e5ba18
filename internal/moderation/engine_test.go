package moderation

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway/gatewaytest"
	"guildkeeper/internal/modlog"
	"guildkeeper/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T, defaults storage.GuildConfig) (*Engine, *storage.Store, *gatewaytest.Fake) {
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
	engine := New(store, fake, modlog.New(store, fake, log), log, defaults)
	engine.clock = &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	return engine, store, fake
}

func TestWarnBelowThreshold(t *testing.T) {
	engine, _, fake := newTestEngine(t, storage.GuildConfig{
		Language:      "en",
		WarnThreshold: 3,
		WarnAction:    "kick",
	})
	ctx := context.Background()

	result, err := engine.Warn(ctx, "g1", "mod", "u1", "spam")
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	if result.Count != 1 || result.Escalated {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(fake.CallsTo("KickMember")) != 0 {
		t.Fatal("expected no escalation below threshold")
	}
	if len(fake.CallsTo("SendDM")) != 1 {
		t.Fatal("expected a DM to the warned user")
	}
}

func TestWarnEscalatesAtThreshold(t *testing.T) {
	engine, store, fake := newTestEngine(t, storage.GuildConfig{
		Language:      "en",
		WarnThreshold: 3,
		WarnAction:    "kick",
	})
	ctx := context.Background()

	var result WarnResult
	var err error
	for i := 0; i < 3; i++ {
		result, err = engine.Warn(ctx, "g1", "mod", "u1", "spam")
		if err != nil {
			t.Fatalf("warn %d: %v", i+1, err)
		}
	}

	if !result.Escalated || result.Action != "kick" {
		t.Fatalf("expected kick escalation, got %+v", result)
	}
	kicks := fake.CallsTo("KickMember")
	if len(kicks) != 1 {
		t.Fatalf("expected exactly one kick, got %d", len(kicks))
	}
	if kicks[0].UserID != "u1" {
		t.Fatalf("kicked wrong user: %q", kicks[0].UserID)
	}

	logs, err := store.ListModLogs(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	var escalations int
	for _, entry := range logs {
		if entry.Action == modlog.ActionEscalation {
			escalations++
		}
	}
	if escalations != 1 {
		t.Fatalf("expected one escalation entry, got %d", escalations)
	}
}

func TestWarnEscalatesAgainPastThreshold(t *testing.T) {
	engine, _, fake := newTestEngine(t, storage.GuildConfig{
		Language:      "en",
		WarnThreshold: 2,
		WarnAction:    "mute",
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := engine.Warn(ctx, "g1", "mod", "u1", "spam"); err != nil {
			t.Fatalf("warn %d: %v", i+1, err)
		}
	}

	timeouts := fake.CallsTo("TimeoutMember")
	if len(timeouts) != 3 {
		t.Fatalf("expected escalation on warnings 2, 3 and 4, got %d timeouts", len(timeouts))
	}
}

func TestClearWarningsResets(t *testing.T) {
	engine, store, fake := newTestEngine(t, storage.GuildConfig{
		Language:      "en",
		WarnThreshold: 3,
		WarnAction:    "mute",
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Warn(ctx, "g1", "mod", "u1", "spam"); err != nil {
			t.Fatalf("warn: %v", err)
		}
	}

	deleted, err := engine.ClearWarnings(ctx, "g1", "mod", "u1")
	if err != nil {
		t.Fatalf("clear warnings: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	// the slate is clean: the next warning is 1/3 again
	result, err := engine.Warn(ctx, "g1", "mod", "u1", "spam")
	if err != nil {
		t.Fatalf("warn after clear: %v", err)
	}
	if result.Count != 1 || result.Escalated {
		t.Fatalf("unexpected result after clear: %+v", result)
	}
	if len(fake.CallsTo("TimeoutMember")) != 0 {
		t.Fatal("expected no escalation after reset")
	}

	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 remaining warning, got %d", len(warnings))
	}
}

func TestMuteUsesDefaultDuration(t *testing.T) {
	engine, _, fake := newTestEngine(t, storage.GuildConfig{Language: "en", WarnThreshold: 3, WarnAction: "mute"})
	ctx := context.Background()

	if err := engine.Mute(ctx, "g1", "mod", "u1", 0, "manual"); err != nil {
		t.Fatalf("mute: %v", err)
	}
	timeouts := fake.CallsTo("TimeoutMember")
	if len(timeouts) != 1 {
		t.Fatalf("expected one timeout, got %d", len(timeouts))
	}
	want := time.Unix(1_700_000_000, 0).UTC().Add(MuteDuration)
	if !timeouts[0].Until.Equal(want) {
		t.Fatalf("expected timeout until %v, got %v", want, timeouts[0].Until)
	}
}
