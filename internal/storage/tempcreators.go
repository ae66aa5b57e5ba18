package storage

import (
	"context"
	"database/sql"
	"errors"
)

// TempCreator describes a lobby voice channel that spawns temp channels.
// Counter is the number of ordinals issued so far; it only grows.
type TempCreator struct {
	ID             string
	GuildID        string
	ChannelID      string
	CategoryID     string
	NameTemplate   string
	NumberingType  string
	Position       string
	DefaultLimit   int
	DefaultBitrate int
	AllowRename    bool
	AllowLimit     bool
	AllowLock      bool
	AllowHide      bool
	AllowKick      bool
	AllowPermit    bool
	AllowBitrate   bool
	Counter        int
}

func (s *Store) PutTempCreator(ctx context.Context, creator TempCreator) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO temp_creators (
			id, guild_id, channel_id, category_id, name_template, numbering_type, position,
			default_limit, default_bitrate,
			allow_rename, allow_limit, allow_lock, allow_hide, allow_kick, allow_permit, allow_bitrate,
			counter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			category_id = excluded.category_id,
			name_template = excluded.name_template,
			numbering_type = excluded.numbering_type,
			position = excluded.position,
			default_limit = excluded.default_limit,
			default_bitrate = excluded.default_bitrate,
			allow_rename = excluded.allow_rename,
			allow_limit = excluded.allow_limit,
			allow_lock = excluded.allow_lock,
			allow_hide = excluded.allow_hide,
			allow_kick = excluded.allow_kick,
			allow_permit = excluded.allow_permit,
			allow_bitrate = excluded.allow_bitrate
	`, creator.ID, creator.GuildID, creator.ChannelID, creator.CategoryID, creator.NameTemplate,
		creator.NumberingType, creator.Position, creator.DefaultLimit, creator.DefaultBitrate,
		boolToInt(creator.AllowRename), boolToInt(creator.AllowLimit), boolToInt(creator.AllowLock),
		boolToInt(creator.AllowHide), boolToInt(creator.AllowKick), boolToInt(creator.AllowPermit),
		boolToInt(creator.AllowBitrate))
	return err
}

func (s *Store) GetTempCreator(ctx context.Context, creatorID string) (TempCreator, bool, error) {
	return s.scanTempCreator(s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, channel_id, category_id, name_template, numbering_type, position,
		default_limit, default_bitrate,
		allow_rename, allow_limit, allow_lock, allow_hide, allow_kick, allow_permit, allow_bitrate,
		counter
		FROM temp_creators WHERE id = ?`, creatorID))
}

// GetTempCreatorByChannel resolves the lobby a member just joined.
func (s *Store) GetTempCreatorByChannel(ctx context.Context, channelID string) (TempCreator, bool, error) {
	return s.scanTempCreator(s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, channel_id, category_id, name_template, numbering_type, position,
		default_limit, default_bitrate,
		allow_rename, allow_limit, allow_lock, allow_hide, allow_kick, allow_permit, allow_bitrate,
		counter
		FROM temp_creators WHERE channel_id = ?`, channelID))
}

func (s *Store) scanTempCreator(row *sql.Row) (TempCreator, bool, error) {
	var creator TempCreator
	var rename, limit, lock, hide, kick, permit, bitrate int
	err := row.Scan(&creator.ID, &creator.GuildID, &creator.ChannelID, &creator.CategoryID,
		&creator.NameTemplate, &creator.NumberingType, &creator.Position,
		&creator.DefaultLimit, &creator.DefaultBitrate,
		&rename, &limit, &lock, &hide, &kick, &permit, &bitrate,
		&creator.Counter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TempCreator{}, false, nil
		}
		return TempCreator{}, false, err
	}
	creator.AllowRename = rename == 1
	creator.AllowLimit = limit == 1
	creator.AllowLock = lock == 1
	creator.AllowHide = hide == 1
	creator.AllowKick = kick == 1
	creator.AllowPermit = permit == 1
	creator.AllowBitrate = bitrate == 1
	return creator, true, nil
}

func (s *Store) ListTempCreators(ctx context.Context, guildID string) ([]TempCreator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, channel_id, category_id, name_template, numbering_type, position,
		default_limit, default_bitrate,
		allow_rename, allow_limit, allow_lock, allow_hide, allow_kick, allow_permit, allow_bitrate,
		counter
		FROM temp_creators WHERE guild_id = ? ORDER BY id`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []TempCreator
	for rows.Next() {
		var creator TempCreator
		var rename, limit, lock, hide, kick, permit, bitrate int
		if err := rows.Scan(&creator.ID, &creator.GuildID, &creator.ChannelID, &creator.CategoryID,
			&creator.NameTemplate, &creator.NumberingType, &creator.Position,
			&creator.DefaultLimit, &creator.DefaultBitrate,
			&rename, &limit, &lock, &hide, &kick, &permit, &bitrate,
			&creator.Counter); err != nil {
			return nil, err
		}
		creator.AllowRename = rename == 1
		creator.AllowLimit = limit == 1
		creator.AllowLock = lock == 1
		creator.AllowHide = hide == 1
		creator.AllowKick = kick == 1
		creator.AllowPermit = permit == 1
		creator.AllowBitrate = bitrate == 1
		creators = append(creators, creator)
	}
	return creators, rows.Err()
}

func (s *Store) DeleteTempCreator(ctx context.Context, creatorID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM temp_creators WHERE id = ?`, creatorID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// NextOrdinal increments the creator's counter and returns the issued value.
// The increment commits before any channel is created, so a crash mid-flow
// can skip an ordinal but never hand the same one to two live channels.
func (s *Store) NextOrdinal(ctx context.Context, creatorID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `UPDATE temp_creators SET counter = counter + 1 WHERE id = ?`, creatorID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		err = errors.New("temp creator not found")
		return 0, err
	}

	var counter int
	row := tx.QueryRowContext(ctx, `SELECT counter FROM temp_creators WHERE id = ?`, creatorID)
	if err = row.Scan(&counter); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return counter, nil
}
