package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type CustomCommand struct {
	GuildID   string
	Name      string
	Response  string
	CreatedBy string
	CreatedAt time.Time
}

func (s *Store) PutCustomCommand(ctx context.Context, command CustomCommand) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_commands (guild_id, name, response, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, name) DO UPDATE SET
			response = excluded.response,
			created_by = excluded.created_by
	`, command.GuildID, command.Name, command.Response, command.CreatedBy, command.CreatedAt.Unix())
	return err
}

func (s *Store) GetCustomCommand(ctx context.Context, guildID, name string) (CustomCommand, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT response, created_by, created_at
		FROM custom_commands WHERE guild_id = ? AND name = ?
	`, guildID, name)

	command := CustomCommand{GuildID: guildID, Name: name}
	var created int64
	err := row.Scan(&command.Response, &command.CreatedBy, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CustomCommand{}, false, nil
		}
		return CustomCommand{}, false, err
	}
	command.CreatedAt = time.Unix(created, 0).UTC()
	return command, true, nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, guildID, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM custom_commands WHERE guild_id = ? AND name = ?`, guildID, name)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ListCustomCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, response, created_by, created_at
		FROM custom_commands WHERE guild_id = ? ORDER BY name
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []CustomCommand
	for rows.Next() {
		command := CustomCommand{GuildID: guildID}
		var created int64
		if err := rows.Scan(&command.Name, &command.Response, &command.CreatedBy, &created); err != nil {
			return nil, err
		}
		command.CreatedAt = time.Unix(created, 0).UTC()
		commands = append(commands, command)
	}
	return commands, rows.Err()
}
