// Package news posts queued announcements when they come due.
package news

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type Dispatcher struct {
	store    *storage.Store
	gw       gateway.Gateway
	log      *zap.Logger
	clock    Clock
	defaults storage.GuildConfig
}

func New(store *storage.Store, gw gateway.Gateway, log *zap.Logger, defaults storage.GuildConfig) *Dispatcher {
	return &Dispatcher{
		store:    store,
		gw:       gw,
		log:      log,
		clock:    systemClock{},
		defaults: defaults,
	}
}

// Queue stores an announcement for the next due pass.
func (d *Dispatcher) Queue(ctx context.Context, item storage.NewsItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = d.clock.Now()
	}
	return d.store.AddNews(ctx, item)
}

// Tick posts everything due. Guilds without a news channel keep their items
// queued until one is configured.
func (d *Dispatcher) Tick(ctx context.Context) error {
	items, err := d.store.DueNews(ctx, d.clock.Now())
	if err != nil {
		return err
	}
	for _, item := range items {
		cfg, err := d.store.GetGuildConfig(ctx, item.GuildID, d.defaults)
		if err != nil {
			d.log.Warn("news config lookup failed", zap.String("guild", item.GuildID), zap.Error(err))
			continue
		}
		if cfg.NewsChannel == "" {
			continue
		}
		if err := d.gw.SendEmbed(ctx, cfg.NewsChannel, gateway.Embed{
			Title:       item.Title,
			Description: item.Content,
			Color:       0x3498db,
		}); err != nil {
			d.log.Warn("news post failed",
				zap.String("guild", item.GuildID),
				zap.String("news", item.ID),
				zap.Error(err))
			continue
		}
		if err := d.store.MarkNewsPosted(ctx, item.ID); err != nil {
			return err
		}
		d.log.Info("news posted", zap.String("guild", item.GuildID), zap.String("news", item.ID))
	}
	return nil
}
