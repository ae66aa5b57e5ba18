package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildConfig(t *testing.T) {
	store := newTestStore(t)

	cfg := GuildConfig{
		GuildID:           "g1",
		Language:          "de",
		Prefix:            "!",
		LevelingEnabled:   true,
		XPPerMessage:      15,
		XPCooldownSeconds: 60,
		WarnThreshold:     3,
		WarnAction:        "mute",
	}

	if err := store.UpsertGuildConfig(context.Background(), cfg); err != nil {
		t.Fatalf("upsert guild config: %v", err)
	}

	cfg.Prefix = "?"
	if err := store.UpsertGuildConfig(context.Background(), cfg); err != nil {
		t.Fatalf("update guild config: %v", err)
	}

	got, err := store.GetGuildConfig(context.Background(), "g1", GuildConfig{})
	if err != nil {
		t.Fatalf("get guild config: %v", err)
	}
	if got.Prefix != "?" {
		t.Fatalf("expected prefix ?, got %q", got.Prefix)
	}
	if got.XPPerMessage != 15 {
		t.Fatalf("expected xp per message 15, got %d", got.XPPerMessage)
	}
}

func TestGetGuildConfigDefaults(t *testing.T) {
	store := newTestStore(t)

	defaults := GuildConfig{
		Language:          "de",
		Prefix:            "!",
		XPPerMessage:      15,
		XPCooldownSeconds: 60,
		WarnThreshold:     3,
		WarnAction:        "mute",
	}

	got, err := store.GetGuildConfig(context.Background(), "missing", defaults)
	if err != nil {
		t.Fatalf("get guild config: %v", err)
	}
	if got.GuildID != "missing" {
		t.Fatalf("expected guild id to be filled, got %q", got.GuildID)
	}
	if got.Language != "de" || got.WarnThreshold != 3 {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestAddWarningIncrementsCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i := 1; i <= 3; i++ {
		count, err := store.AddWarning(ctx, Warning{
			GuildID:   "g1",
			UserID:    "u1",
			ModID:     "m1",
			Reason:    "spam",
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("add warning %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(warnings))
	}

	deleted, err := store.ClearWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("clear warnings: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}

	progress, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.Warnings != 0 {
		t.Fatalf("expected counter reset, got %d", progress.Warnings)
	}
}

func TestUpdateProgressPreservesWarnings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddWarning(ctx, Warning{GuildID: "g1", UserID: "u1", ModID: "m1", Reason: "x", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add warning: %v", err)
	}

	last := time.Now().UTC().Truncate(time.Second)
	if err := store.UpdateProgress(ctx, UserProgress{
		GuildID:  "g1",
		UserID:   "u1",
		XP:       120,
		Level:    1,
		Messages: 8,
		LastXP:   &last,
	}); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	got, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if got.XP != 120 || got.Level != 1 || got.Messages != 8 {
		t.Fatalf("unexpected progress: %+v", got)
	}
	if got.Warnings != 1 {
		t.Fatalf("expected warning counter untouched, got %d", got.Warnings)
	}
	if got.LastXP == nil || !got.LastXP.Equal(last) {
		t.Fatalf("expected last xp %v, got %v", last, got.LastXP)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []UserProgress{
		{GuildID: "g1", UserID: "low", XP: 50},
		{GuildID: "g1", UserID: "high", XP: 500},
		{GuildID: "g1", UserID: "mid", XP: 200},
		{GuildID: "other", UserID: "stranger", XP: 999},
	} {
		if err := store.UpdateProgress(ctx, entry); err != nil {
			t.Fatalf("update progress: %v", err)
		}
	}

	entries, err := store.Leaderboard(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "high" || entries[1].UserID != "mid" {
		t.Fatalf("unexpected order: %q, %q", entries[0].UserID, entries[1].UserID)
	}
}

func TestNextOrdinalMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutTempCreator(ctx, TempCreator{
		ID:            "cr1",
		GuildID:       "g1",
		ChannelID:     "lobby",
		NumberingType: "number",
		Position:      "bottom",
	}); err != nil {
		t.Fatalf("put creator: %v", err)
	}

	for want := 1; want <= 5; want++ {
		got, err := store.NextOrdinal(ctx, "cr1")
		if err != nil {
			t.Fatalf("next ordinal: %v", err)
		}
		if got != want {
			t.Fatalf("expected ordinal %d, got %d", want, got)
		}
	}

	if _, err := store.NextOrdinal(ctx, "nope"); err == nil {
		t.Fatal("expected error for unknown creator")
	}
}

func TestTempChannelLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	channel := TempChannel{
		ChannelID: "c1",
		GuildID:   "g1",
		CreatorID: "cr1",
		OwnerID:   "u1",
		Name:      "🔊 alice's Kanal",
		Bitrate:   64000,
		CreatedAt: time.Now(),
	}
	if err := store.PutTempChannel(ctx, channel); err != nil {
		t.Fatalf("put temp channel: %v", err)
	}
	if err := store.SetTempChannelAccess(ctx, "c1", "u2", AccessPermit); err != nil {
		t.Fatalf("set access: %v", err)
	}

	got, found, err := store.GetTempChannel(ctx, "c1")
	if err != nil || !found {
		t.Fatalf("get temp channel: found=%v err=%v", found, err)
	}
	if got.OwnerID != "u1" {
		t.Fatalf("expected owner u1, got %q", got.OwnerID)
	}

	if err := store.UpdateTempChannelOwner(ctx, "c1", "u2"); err != nil {
		t.Fatalf("update owner: %v", err)
	}

	if err := store.DeleteTempChannel(ctx, "c1"); err != nil {
		t.Fatalf("delete temp channel: %v", err)
	}
	_, found, err = store.GetTempChannel(ctx, "c1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if found {
		t.Fatal("expected channel record gone")
	}
	permitted, err := store.ListTempChannelAccess(ctx, "c1", AccessPermit)
	if err != nil {
		t.Fatalf("list access: %v", err)
	}
	if len(permitted) != 0 {
		t.Fatalf("expected access rows gone, got %d", len(permitted))
	}
}

func TestRewardsForLevelSkipsDisabled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, reward := range []LevelReward{
		{ID: "r1", GuildID: "g1", Level: 5, Type: RewardTypeRole, Value: "role5", Enabled: true},
		{ID: "r2", GuildID: "g1", Level: 5, Type: RewardTypeBadge, Value: "badge", Enabled: false},
		{ID: "r3", GuildID: "g1", Level: 10, Type: RewardTypeRole, Value: "role10", Enabled: true},
	} {
		if err := store.PutLevelReward(ctx, reward); err != nil {
			t.Fatalf("put reward: %v", err)
		}
	}

	rewards, err := store.RewardsForLevel(ctx, "g1", 5)
	if err != nil {
		t.Fatalf("rewards for level: %v", err)
	}
	if len(rewards) != 1 || rewards[0].ID != "r1" {
		t.Fatalf("expected only r1, got %+v", rewards)
	}
}

func TestDueNews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	items := []NewsItem{
		{ID: "n1", GuildID: "g1", Title: "now", Content: "x", CreatedAt: now},
		{ID: "n2", GuildID: "g1", Title: "later", Content: "x", ScheduledFor: &future, CreatedAt: now},
		{ID: "n3", GuildID: "g1", Title: "earlier", Content: "x", ScheduledFor: &past, CreatedAt: past},
	}
	for _, item := range items {
		if err := store.AddNews(ctx, item); err != nil {
			t.Fatalf("add news: %v", err)
		}
	}

	due, err := store.DueNews(ctx, now)
	if err != nil {
		t.Fatalf("due news: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due items, got %d", len(due))
	}
	if due[0].ID != "n3" || due[1].ID != "n1" {
		t.Fatalf("unexpected order: %q, %q", due[0].ID, due[1].ID)
	}

	if err := store.MarkNewsPosted(ctx, "n3"); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	due, err = store.DueNews(ctx, now)
	if err != nil {
		t.Fatalf("due news after post: %v", err)
	}
	if len(due) != 1 || due[0].ID != "n1" {
		t.Fatalf("expected only n1 due, got %+v", due)
	}
}
