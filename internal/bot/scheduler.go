package bot

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduler drives the periodic passes: voice XP once a minute and the news
// queue.
type scheduler struct {
	bot  *Bot
	cron *cron.Cron
}

func newScheduler(b *Bot) *scheduler {
	return &scheduler{bot: b, cron: cron.New()}
}

func (s *scheduler) start() {
	if _, err := s.cron.AddFunc("@every 1m", s.voiceXPPass); err != nil {
		s.bot.logger.Error("voice xp schedule failed", zap.Error(err))
	}
	if _, err := s.cron.AddFunc("@every 1m", s.newsPass); err != nil {
		s.bot.logger.Error("news schedule failed", zap.Error(err))
	}
	s.cron.Start()
}

func (s *scheduler) stop() {
	<-s.cron.Stop().Done()
}

func (s *scheduler) voiceXPPass() {
	session := s.bot.session
	if session == nil || session.State == nil {
		return
	}
	ctx := context.Background()
	for _, guild := range session.State.Guilds {
		if guild == nil {
			continue
		}
		if err := s.bot.leveling.VoiceTick(ctx, guild.ID); err != nil {
			s.bot.logger.Warn("voice xp pass failed", zap.String("guild", guild.ID), zap.Error(err))
		}
	}
}

func (s *scheduler) newsPass() {
	if err := s.bot.news.Tick(context.Background()); err != nil {
		s.bot.logger.Warn("news pass failed", zap.Error(err))
	}
}
