package news

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway/gatewaytest"
	"guildkeeper/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestDispatcher(t *testing.T, defaults storage.GuildConfig) (*Dispatcher, *storage.Store, *gatewaytest.Fake, *fakeClock) {
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
	dispatcher := New(store, fake, zap.NewNop(), defaults)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	dispatcher.clock = clock
	return dispatcher, store, fake, clock
}

func TestTickPostsDueNews(t *testing.T) {
	dispatcher, store, fake, clock := newTestDispatcher(t, storage.GuildConfig{NewsChannel: "announcements"})
	ctx := context.Background()

	later := clock.now.Add(time.Hour)
	if err := dispatcher.Queue(ctx, storage.NewsItem{ID: "n1", GuildID: "g1", Title: "release", Content: "v2 is out"}); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := dispatcher.Queue(ctx, storage.NewsItem{ID: "n2", GuildID: "g1", Title: "soon", Content: "later", ScheduledFor: &later}); err != nil {
		t.Fatalf("queue scheduled: %v", err)
	}

	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	embeds := fake.CallsTo("SendEmbed")
	if len(embeds) != 1 || embeds[0].ChannelID != "announcements" || embeds[0].Embed.Title != "release" {
		t.Fatalf("expected one post to announcements, got %+v", embeds)
	}

	item, _, err := store.GetNews(ctx, "n1")
	if err != nil {
		t.Fatalf("get news: %v", err)
	}
	if !item.Posted {
		t.Fatal("expected n1 marked posted")
	}

	// the scheduled item posts once its time arrives
	clock.now = clock.now.Add(2 * time.Hour)
	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(fake.CallsTo("SendEmbed")) != 2 {
		t.Fatal("expected the scheduled item posted on the second tick")
	}
}

func TestTickWithoutChannelKeepsQueued(t *testing.T) {
	dispatcher, store, fake, _ := newTestDispatcher(t, storage.GuildConfig{})
	ctx := context.Background()

	if err := dispatcher.Queue(ctx, storage.NewsItem{ID: "n1", GuildID: "g1", Title: "x", Content: "y"}); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(fake.CallsTo("SendEmbed")) != 0 {
		t.Fatal("expected nothing posted without a channel")
	}
	item, _, err := store.GetNews(ctx, "n1")
	if err != nil {
		t.Fatalf("get news: %v", err)
	}
	if item.Posted {
		t.Fatal("expected item still queued")
	}
}
