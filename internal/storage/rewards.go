package storage

import (
	"context"
	"database/sql"
	"errors"
)

const (
	RewardTypeRole   = "role"
	RewardTypeBadge  = "badge"
	RewardTypeCustom = "custom"
)

// LevelReward is granted when a member reaches its level. Disabled rewards
// stay configured but are skipped on level-up.
type LevelReward struct {
	ID      string
	GuildID string
	Level   int
	Type    string
	Value   string
	Name    string
	Enabled bool
}

func (s *Store) PutLevelReward(ctx context.Context, reward LevelReward) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_rewards (id, guild_id, level, reward_type, reward_value, reward_name, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			level = excluded.level,
			reward_type = excluded.reward_type,
			reward_value = excluded.reward_value,
			reward_name = excluded.reward_name,
			enabled = excluded.enabled
	`, reward.ID, reward.GuildID, reward.Level, reward.Type, reward.Value, reward.Name, boolToInt(reward.Enabled))
	return err
}

func (s *Store) GetLevelReward(ctx context.Context, rewardID string) (LevelReward, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, level, reward_type, reward_value, reward_name, enabled
		FROM level_rewards WHERE id = ?
	`, rewardID)

	var reward LevelReward
	var enabled int
	err := row.Scan(&reward.ID, &reward.GuildID, &reward.Level, &reward.Type, &reward.Value, &reward.Name, &enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LevelReward{}, false, nil
		}
		return LevelReward{}, false, err
	}
	reward.Enabled = enabled == 1
	return reward, true, nil
}

func (s *Store) SetLevelRewardEnabled(ctx context.Context, rewardID string, enabled bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE level_rewards SET enabled = ? WHERE id = ?`, boolToInt(enabled), rewardID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) DeleteLevelReward(ctx context.Context, rewardID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM level_rewards WHERE id = ?`, rewardID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ListLevelRewards(ctx context.Context, guildID string) ([]LevelReward, error) {
	return s.queryLevelRewards(ctx, `
		SELECT id, guild_id, level, reward_type, reward_value, reward_name, enabled
		FROM level_rewards WHERE guild_id = ? ORDER BY level, id
	`, guildID)
}

// RewardsForLevel returns the enabled rewards tied to exactly this level.
func (s *Store) RewardsForLevel(ctx context.Context, guildID string, level int) ([]LevelReward, error) {
	return s.queryLevelRewards(ctx, `
		SELECT id, guild_id, level, reward_type, reward_value, reward_name, enabled
		FROM level_rewards WHERE guild_id = ? AND level = ? AND enabled = 1 ORDER BY id
	`, guildID, level)
}

func (s *Store) queryLevelRewards(ctx context.Context, query string, args ...any) ([]LevelReward, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []LevelReward
	for rows.Next() {
		var reward LevelReward
		var enabled int
		if err := rows.Scan(&reward.ID, &reward.GuildID, &reward.Level, &reward.Type, &reward.Value, &reward.Name, &enabled); err != nil {
			return nil, err
		}
		reward.Enabled = enabled == 1
		rewards = append(rewards, reward)
	}
	return rewards, rows.Err()
}
