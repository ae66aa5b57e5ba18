package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	AccessPermit = "permit"
	AccessBan    = "ban"
)

// TempChannel mirrors a live ephemeral voice channel. The record and the
// channel are created and destroyed together; a record without a channel is
// stale state to be reconciled away.
type TempChannel struct {
	ChannelID string
	GuildID   string
	CreatorID string
	OwnerID   string
	Name      string
	UserLimit int
	Bitrate   int
	Locked    bool
	Hidden    bool
	CreatedAt time.Time
}

func (s *Store) PutTempChannel(ctx context.Context, channel TempChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO temp_channels (channel_id, guild_id, creator_id, owner_id, name, user_limit, bitrate, locked, hidden, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			user_limit = excluded.user_limit,
			bitrate = excluded.bitrate,
			locked = excluded.locked,
			hidden = excluded.hidden
	`, channel.ChannelID, channel.GuildID, channel.CreatorID, channel.OwnerID, channel.Name,
		channel.UserLimit, channel.Bitrate, boolToInt(channel.Locked), boolToInt(channel.Hidden),
		channel.CreatedAt.Unix())
	return err
}

func (s *Store) GetTempChannel(ctx context.Context, channelID string) (TempChannel, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, creator_id, owner_id, name, user_limit, bitrate, locked, hidden, created_at
		FROM temp_channels WHERE channel_id = ?
	`, channelID)

	channel := TempChannel{ChannelID: channelID}
	var locked, hidden int
	var created int64
	err := row.Scan(&channel.GuildID, &channel.CreatorID, &channel.OwnerID, &channel.Name,
		&channel.UserLimit, &channel.Bitrate, &locked, &hidden, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TempChannel{}, false, nil
		}
		return TempChannel{}, false, err
	}
	channel.Locked = locked == 1
	channel.Hidden = hidden == 1
	channel.CreatedAt = time.Unix(created, 0).UTC()
	return channel, true, nil
}

func (s *Store) DeleteTempChannel(ctx context.Context, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM temp_channel_access WHERE channel_id = ?`, channelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM temp_channels WHERE channel_id = ?`, channelID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListTempChannels(ctx context.Context, guildID string) ([]TempChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, creator_id, owner_id, name, user_limit, bitrate, locked, hidden, created_at
		FROM temp_channels WHERE guild_id = ?
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []TempChannel
	for rows.Next() {
		channel := TempChannel{GuildID: guildID}
		var locked, hidden int
		var created int64
		if err := rows.Scan(&channel.ChannelID, &channel.CreatorID, &channel.OwnerID, &channel.Name,
			&channel.UserLimit, &channel.Bitrate, &locked, &hidden, &created); err != nil {
			return nil, err
		}
		channel.Locked = locked == 1
		channel.Hidden = hidden == 1
		channel.CreatedAt = time.Unix(created, 0).UTC()
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (s *Store) UpdateTempChannelOwner(ctx context.Context, channelID, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE temp_channels SET owner_id = ? WHERE channel_id = ?`, ownerID, channelID)
	return err
}

func (s *Store) SetTempChannelAccess(ctx context.Context, channelID, userID, access string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO temp_channel_access (channel_id, user_id, access) VALUES (?, ?, ?)
		ON CONFLICT(channel_id, user_id) DO UPDATE SET access = excluded.access
	`, channelID, userID, access)
	return err
}

func (s *Store) ClearTempChannelAccess(ctx context.Context, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM temp_channel_access WHERE channel_id = ? AND user_id = ?`, channelID, userID)
	return err
}

func (s *Store) ListTempChannelAccess(ctx context.Context, channelID, access string) ([]string, error) {
	return s.listStrings(ctx, `SELECT user_id FROM temp_channel_access WHERE channel_id = ? AND access = ? ORDER BY user_id`, channelID, access)
}
