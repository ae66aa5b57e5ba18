package storage

import (
	"context"
	"time"
)

// Warning is an immutable moderation record. Deleting warnings happens only
// through ClearWarnings, which also resets the denormalized counter.
type Warning struct {
	ID        int64
	GuildID   string
	UserID    string
	ModID     string
	Reason    string
	CreatedAt time.Time
}

// AddWarning appends the record and increments the user's warning counter in
// one transaction, returning the counter after the increment.
func (s *Store) AddWarning(ctx context.Context, warning Warning) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO warnings (guild_id, user_id, mod_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, warning.GuildID, warning.UserID, warning.ModID, warning.Reason, warning.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_progress (guild_id, user_id, warnings)
		VALUES (?, ?, 1)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET warnings = warnings + 1
	`, warning.GuildID, warning.UserID)
	if err != nil {
		return 0, err
	}

	var count int
	row := tx.QueryRowContext(ctx, `
		SELECT warnings FROM user_progress WHERE guild_id = ? AND user_id = ?
	`, warning.GuildID, warning.UserID)
	if err = row.Scan(&count); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mod_id, reason, created_at
		FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at ASC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		warning := Warning{GuildID: guildID, UserID: userID}
		var created int64
		if err := rows.Scan(&warning.ID, &warning.ModID, &warning.Reason, &created); err != nil {
			return nil, err
		}
		warning.CreatedAt = time.Unix(created, 0).UTC()
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

func (s *Store) CountWarnings(ctx context.Context, guildID, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warnings WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ClearWarnings deletes all warnings for the user and resets the counter in
// one transaction. Returns how many records were removed.
func (s *Store) ClearWarnings(ctx context.Context, guildID, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM warnings WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_progress SET warnings = 0 WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int(deleted), nil
}
