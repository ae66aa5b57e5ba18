package tempvoice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/gateway/gatewaytest"
	"guildkeeper/internal/storage"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *storage.Store, *gatewaytest.Fake) {
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
	orch := New(store, fake, zap.NewNop(), storage.GuildConfig{TempEnabled: true})
	return orch, store, fake
}

func seedCreator(t *testing.T, store *storage.Store, creator storage.TempCreator) storage.TempCreator {
	t.Helper()
	if creator.ID == "" {
		creator.ID = "cr1"
	}
	if creator.GuildID == "" {
		creator.GuildID = "g1"
	}
	if creator.ChannelID == "" {
		creator.ChannelID = "lobby"
	}
	if creator.NumberingType == "" {
		creator.NumberingType = NumberingNumber
	}
	if creator.Position == "" {
		creator.Position = PositionBottom
	}
	if err := store.PutTempCreator(context.Background(), creator); err != nil {
		t.Fatalf("put creator: %v", err)
	}
	return creator
}

func spawnChannel(t *testing.T, orch *Orchestrator, fake *gatewaytest.Fake, userID, userName string) string {
	t.Helper()
	if err := orch.HandleVoiceState(context.Background(), "g1", userID, userName, "lobby", ""); err != nil {
		t.Fatalf("handle voice state: %v", err)
	}
	moves := fake.CallsTo("MoveMember")
	if len(moves) == 0 {
		t.Fatal("expected member to be moved into a new channel")
	}
	return moves[len(moves)-1].ChannelID
}

func TestSpawnOnLobbyJoin(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{
		NameTemplate:   "🔊 {user}'s Kanal",
		DefaultBitrate: 64000,
		AllowRename:    true,
	})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	if fake.ChannelCount() != 1 {
		t.Fatalf("expected 1 live channel, got %d", fake.ChannelCount())
	}
	record, found, err := store.GetTempChannel(ctx, channelID)
	if err != nil || !found {
		t.Fatalf("get record: found=%v err=%v", found, err)
	}
	if record.OwnerID != "u1" {
		t.Fatalf("expected owner u1, got %q", record.OwnerID)
	}
	if !strings.Contains(record.Name, "alice") || !strings.HasSuffix(record.Name, " 1") {
		t.Fatalf("unexpected channel name: %q", record.Name)
	}

	second := spawnChannel(t, orch, fake, "u2", "bob")
	other, _, err := store.GetTempChannel(ctx, second)
	if err != nil {
		t.Fatalf("get second record: %v", err)
	}
	if !strings.HasSuffix(other.Name, " 2") {
		t.Fatalf("expected ordinal 2 in name, got %q", other.Name)
	}
}

func TestSpawnCompensatesOnMoveFailure(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	creator := seedCreator(t, store, storage.TempCreator{})

	// fail everything after the channel exists in the fake
	if err := orch.HandleVoiceState(ctx, "g1", "u1", "alice", "lobby", ""); err != nil {
		t.Fatalf("first spawn should work: %v", err)
	}

	fake.Fail = errors.New("boom")
	err := orch.HandleVoiceState(ctx, "g1", "u2", "bob", "lobby", "")
	if err == nil {
		t.Fatal("expected spawn failure")
	}
	fake.Fail = nil

	records, err := store.ListTempChannels(ctx, "g1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the first record to survive, got %d", len(records))
	}

	// the failed attempt burned its ordinal; the counter keeps climbing
	got, _, err := store.GetTempCreator(ctx, creator.ID)
	if err != nil {
		t.Fatalf("get creator: %v", err)
	}
	if got.Counter != 2 {
		t.Fatalf("expected counter 2 (ordinal burned by the failure), got %d", got.Counter)
	}
}

func TestSweepOnEmpty(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	if err := orch.HandleVoiceState(ctx, "g1", "u1", "alice", "", channelID); err != nil {
		t.Fatalf("handle leave: %v", err)
	}
	if fake.ChannelCount() != 0 {
		t.Fatalf("expected channel deleted, %d live", fake.ChannelCount())
	}
	_, found, err := store.GetTempChannel(ctx, channelID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if found {
		t.Fatal("expected record removed")
	}
}

func TestSweepKeepsOccupiedChannel(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")
	fake.SetMembers(channelID, []gateway.VoiceMember{{UserID: "u2"}})

	if err := orch.HandleVoiceState(ctx, "g1", "u1", "alice", "", channelID); err != nil {
		t.Fatalf("handle leave: %v", err)
	}
	if fake.ChannelCount() != 1 {
		t.Fatal("expected occupied channel to survive")
	}
}

func TestOwnerGating(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{AllowRename: true, AllowLock: true})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	if err := orch.Rename(ctx, channelID, "intruder", "mine now"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := orch.SetLimit(ctx, channelID, "u1", 5); !errors.Is(err, ErrActionDisabled) {
		t.Fatalf("expected ErrActionDisabled for limit, got %v", err)
	}
	if err := orch.Rename(ctx, channelID, "u1", "war room"); err != nil {
		t.Fatalf("rename by owner: %v", err)
	}
	record, _, err := store.GetTempChannel(ctx, channelID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Name != "war room" {
		t.Fatalf("expected renamed record, got %q", record.Name)
	}
	if err := orch.Rename(ctx, "nonexistent", "u1", "x"); !errors.Is(err, ErrNotTempChannel) {
		t.Fatalf("expected ErrNotTempChannel, got %v", err)
	}
}

func TestLockDeniesEveryone(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{AllowLock: true})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")
	if err := orch.Lock(ctx, channelID, "u1"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	perms := fake.CallsTo("SetRolePermissions")
	if len(perms) != 1 || perms[0].RoleID != "g1" {
		t.Fatalf("expected everyone-role overwrite, got %+v", perms)
	}
	if perms[0].Perms.Connect == nil || *perms[0].Perms.Connect {
		t.Fatal("expected connect denied")
	}
	record, _, err := store.GetTempChannel(ctx, channelID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !record.Locked {
		t.Fatal("expected record marked locked")
	}
}

func assertOwnerPerms(t *testing.T, call gatewaytest.Call) {
	t.Helper()
	perms := call.Perms
	for name, flag := range map[string]*bool{
		"connect": perms.Connect,
		"view":    perms.ViewChannel,
		"manage":  perms.ManageChannel,
		"move":    perms.MoveMembers,
		"mute":    perms.MuteMembers,
	} {
		if flag == nil || !*flag {
			t.Fatalf("expected owner overwrite to allow %s, got %+v", name, perms)
		}
	}
}

func TestSpawnGrantsOwnerElevatedPerms(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	seedCreator(t, store, storage.TempCreator{})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	grants := fake.CallsTo("SetUserPermissions")
	if len(grants) != 1 || grants[0].ChannelID != channelID || grants[0].UserID != "u1" {
		t.Fatalf("expected one owner overwrite on the new channel, got %+v", grants)
	}
	assertOwnerPerms(t, grants[0])
}

func TestClaim(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{})

	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	fake.SetMembers(channelID, []gateway.VoiceMember{{UserID: "u1"}, {UserID: "u2"}})
	if err := orch.Claim(ctx, channelID, "u2"); !errors.Is(err, ErrOwnerPresent) {
		t.Fatalf("expected ErrOwnerPresent, got %v", err)
	}

	fake.SetMembers(channelID, []gateway.VoiceMember{{UserID: "u2"}})
	if err := orch.Claim(ctx, channelID, "u2"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	record, _, err := store.GetTempChannel(ctx, channelID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.OwnerID != "u2" {
		t.Fatalf("expected new owner u2, got %q", record.OwnerID)
	}

	// the claimant receives the same elevated overwrite the spawner got
	grants := fake.CallsTo("SetUserPermissions")
	last := grants[len(grants)-1]
	if last.UserID != "u2" || last.ChannelID != channelID {
		t.Fatalf("expected overwrite for u2 on %s, got %+v", channelID, last)
	}
	assertOwnerPerms(t, last)
}

func TestReconcileDropsStaleRecords(t *testing.T) {
	orch, store, fake := newTestOrchestrator(t)
	ctx := context.Background()
	seedCreator(t, store, storage.TempCreator{})

	// a record whose channel never existed on the platform
	if err := store.PutTempChannel(ctx, storage.TempChannel{
		ChannelID: "ghost",
		GuildID:   "g1",
		CreatorID: "cr1",
		OwnerID:   "u1",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("put stale record: %v", err)
	}
	channelID := spawnChannel(t, orch, fake, "u1", "alice")

	if err := orch.Reconcile(ctx, "g1"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	_, found, err := store.GetTempChannel(ctx, "ghost")
	if err != nil {
		t.Fatalf("get ghost: %v", err)
	}
	if found {
		t.Fatal("expected stale record removed")
	}
	// the live-but-empty channel gets swept too
	_, found, err = store.GetTempChannel(ctx, channelID)
	if err != nil {
		t.Fatalf("get live record: %v", err)
	}
	if found {
		t.Fatal("expected empty channel swept")
	}
}
