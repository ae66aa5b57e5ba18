package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// NewsItem is an announcement. A nil ScheduledFor means post on the next
// dispatcher pass; otherwise it stays queued until the scheduled time.
type NewsItem struct {
	ID           string
	GuildID      string
	Title        string
	Content      string
	ScheduledFor *time.Time
	Posted       bool
	CreatedAt    time.Time
}

func (s *Store) AddNews(ctx context.Context, item NewsItem) error {
	var scheduled any
	if item.ScheduledFor != nil {
		scheduled = item.ScheduledFor.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news (id, guild_id, title, content, scheduled_for, posted, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, item.ID, item.GuildID, item.Title, item.Content, scheduled, item.CreatedAt.Unix())
	return err
}

// DueNews returns unposted items whose schedule has passed (or that were
// never scheduled), oldest first.
func (s *Store) DueNews(ctx context.Context, now time.Time) ([]NewsItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, title, content, scheduled_for, created_at
		FROM news
		WHERE posted = 0 AND (scheduled_for IS NULL OR scheduled_for <= ?)
		ORDER BY created_at ASC
	`, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NewsItem
	for rows.Next() {
		var item NewsItem
		var scheduled sql.NullInt64
		var created int64
		if err := rows.Scan(&item.ID, &item.GuildID, &item.Title, &item.Content, &scheduled, &created); err != nil {
			return nil, err
		}
		if scheduled.Valid {
			value := time.Unix(scheduled.Int64, 0).UTC()
			item.ScheduledFor = &value
		}
		item.CreatedAt = time.Unix(created, 0).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) MarkNewsPosted(ctx context.Context, newsID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE news SET posted = 1 WHERE id = ?`, newsID)
	return err
}

func (s *Store) GetNews(ctx context.Context, newsID string) (NewsItem, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, title, content, scheduled_for, posted, created_at
		FROM news WHERE id = ?
	`, newsID)

	var item NewsItem
	var scheduled sql.NullInt64
	var posted int
	var created int64
	err := row.Scan(&item.ID, &item.GuildID, &item.Title, &item.Content, &scheduled, &posted, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewsItem{}, false, nil
		}
		return NewsItem{}, false, err
	}
	if scheduled.Valid {
		value := time.Unix(scheduled.Int64, 0).UTC()
		item.ScheduledFor = &value
	}
	item.Posted = posted == 1
	item.CreatedAt = time.Unix(created, 0).UTC()
	return item, true, nil
}

func (s *Store) DeleteNews(ctx context.Context, newsID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, newsID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
