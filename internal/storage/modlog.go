package storage

import (
	"context"
	"time"
)

// ModLogEntry is the audit trail row behind every moderation action and
// level-up. Rows are append-only.
type ModLogEntry struct {
	ID        int64
	GuildID   string
	Action    string
	ModID     string
	TargetID  string
	Reason    string
	CreatedAt time.Time
}

func (s *Store) AddModLog(ctx context.Context, entry ModLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_logs (guild_id, action, mod_id, target_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.GuildID, entry.Action, entry.ModID, entry.TargetID, entry.Reason, entry.CreatedAt.Unix())
	return err
}

func (s *Store) ListModLogs(ctx context.Context, guildID string, limit int) ([]ModLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, mod_id, target_id, reason, created_at
		FROM mod_logs
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ModLogEntry
	for rows.Next() {
		entry := ModLogEntry{GuildID: guildID}
		var created int64
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ModID, &entry.TargetID, &entry.Reason, &created); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(created, 0).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
