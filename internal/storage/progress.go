package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UserProgress is the per-(guild,user) leveling record. Level is always the
// value derived from XP at write time; the two are persisted together.
type UserProgress struct {
	GuildID  string
	UserID   string
	XP       int
	Level    int
	Messages int
	LastXP   *time.Time
	Warnings int
}

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (UserProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp, level, messages, last_xp, warnings
		FROM user_progress
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	progress := UserProgress{GuildID: guildID, UserID: userID}
	var lastXP sql.NullInt64
	err := row.Scan(&progress.XP, &progress.Level, &progress.Messages, &lastXP, &progress.Warnings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress, nil
		}
		return UserProgress{}, err
	}
	if lastXP.Valid {
		value := time.Unix(lastXP.Int64, 0).UTC()
		progress.LastXP = &value
	}
	return progress, nil
}

// UpdateProgress writes xp, level, messages and last_xp as one statement.
// The warning counter is owned by the warnings transactions and untouched here.
func (s *Store) UpdateProgress(ctx context.Context, progress UserProgress) error {
	var lastXP any
	if progress.LastXP != nil {
		lastXP = progress.LastXP.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_progress (guild_id, user_id, xp, level, messages, last_xp, warnings)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			messages = excluded.messages,
			last_xp = excluded.last_xp
	`, progress.GuildID, progress.UserID, progress.XP, progress.Level, progress.Messages, lastXP)
	return err
}

func (s *Store) Leaderboard(ctx context.Context, guildID string, limit int) ([]UserProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp, level, messages, warnings
		FROM user_progress
		WHERE guild_id = ?
		ORDER BY xp DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []UserProgress
	for rows.Next() {
		entry := UserProgress{GuildID: guildID}
		if err := rows.Scan(&entry.UserID, &entry.XP, &entry.Level, &entry.Messages, &entry.Warnings); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
