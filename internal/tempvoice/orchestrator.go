// Package tempvoice creates and tears down member-owned voice channels.
package tempvoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"guildkeeper/internal/gateway"
	"guildkeeper/internal/storage"
)

const (
	PositionTop    = "top"
	PositionBottom = "bottom"
)

var (
	ErrNotTempChannel = errors.New("not a temporary channel")
	ErrNotOwner       = errors.New("caller does not own this channel")
	ErrActionDisabled = errors.New("action disabled for this channel")
	ErrOwnerPresent   = errors.New("owner is still in the channel")
)

type Orchestrator struct {
	store    *storage.Store
	gw       gateway.Gateway
	log      *zap.Logger
	defaults storage.GuildConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store *storage.Store, gw gateway.Gateway, log *zap.Logger, defaults storage.GuildConfig) *Orchestrator {
	return &Orchestrator{
		store:    store,
		gw:       gw,
		log:      log,
		defaults: defaults,
		locks:    make(map[string]*sync.Mutex),
	}
}

// creatorLock serializes channel creation per lobby, so two members joining
// at once cannot race on the same ordinal or double-create.
func (o *Orchestrator) creatorLock(creatorID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[creatorID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[creatorID] = lock
	}
	return lock
}

// HandleVoiceState reacts to a member moving between voice channels:
// joining a lobby spawns a channel, and emptying a temp channel removes it.
func (o *Orchestrator) HandleVoiceState(ctx context.Context, guildID, userID, userName, joinedID, leftID string) error {
	cfg, err := o.store.GetGuildConfig(ctx, guildID, o.defaults)
	if err != nil {
		return err
	}
	if !cfg.TempEnabled {
		return nil
	}

	if joinedID != "" && joinedID != leftID {
		creator, found, err := o.store.GetTempCreatorByChannel(ctx, joinedID)
		if err != nil {
			return err
		}
		if found {
			if err := o.spawn(ctx, creator, userID, userName); err != nil {
				return err
			}
		}
	}

	if leftID != "" && leftID != joinedID {
		if err := o.sweep(ctx, guildID, leftID); err != nil {
			return err
		}
	}
	return nil
}

// spawn creates a temp channel for the member and moves them into it. The
// ordinal is committed before the channel exists, so a failure here skips a
// number rather than reusing one.
func (o *Orchestrator) spawn(ctx context.Context, creator storage.TempCreator, userID, userName string) error {
	lock := o.creatorLock(creator.ID)
	lock.Lock()
	defer lock.Unlock()

	ordinal, err := o.store.NextOrdinal(ctx, creator.ID)
	if err != nil {
		return err
	}
	name := renderName(creator.NameTemplate, userName, FormatOrdinal(creator.NumberingType, ordinal))

	channelID, err := o.gw.CreateVoiceChannel(ctx, creator.GuildID, gateway.VoiceChannelSpec{
		Name:       name,
		CategoryID: creator.CategoryID,
		UserLimit:  creator.DefaultLimit,
		Bitrate:    creator.DefaultBitrate,
	})
	if err != nil {
		return err
	}

	if creator.Position == PositionTop {
		if err := o.gw.SetChannelPosition(ctx, channelID, 0); err != nil {
			o.log.Warn("channel position failed", zap.String("channel", channelID), zap.Error(err))
		}
	}

	if err := o.gw.SetUserPermissions(ctx, channelID, userID, ownerPermissions()); err != nil {
		o.log.Warn("owner permissions failed", zap.String("channel", channelID), zap.Error(err))
	}

	if err := o.gw.MoveMember(ctx, creator.GuildID, userID, channelID); err != nil {
		_ = o.gw.DeleteChannel(ctx, channelID)
		return fmt.Errorf("move member into %s: %w", channelID, err)
	}

	record := storage.TempChannel{
		ChannelID: channelID,
		GuildID:   creator.GuildID,
		CreatorID: creator.ID,
		OwnerID:   userID,
		Name:      name,
		UserLimit: creator.DefaultLimit,
		Bitrate:   creator.DefaultBitrate,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.PutTempChannel(ctx, record); err != nil {
		_ = o.gw.DeleteChannel(ctx, channelID)
		return fmt.Errorf("record temp channel %s: %w", channelID, err)
	}

	o.log.Info("temp channel created",
		zap.String("guild", creator.GuildID),
		zap.String("channel", channelID),
		zap.String("owner", userID),
		zap.Int("ordinal", ordinal))
	return nil
}

// sweep removes the channel when it has just emptied. The record goes even
// when the platform delete fails; Reconcile cleans up the remainder later.
func (o *Orchestrator) sweep(ctx context.Context, guildID, channelID string) error {
	record, found, err := o.store.GetTempChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	lock := o.creatorLock(record.CreatorID)
	lock.Lock()
	defer lock.Unlock()

	members, err := o.gw.VoiceChannelMembers(guildID, channelID)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return nil
	}

	if err := o.gw.DeleteChannel(ctx, channelID); err != nil {
		o.log.Warn("temp channel delete failed", zap.String("channel", channelID), zap.Error(err))
	}
	if err := o.store.DeleteTempChannel(ctx, channelID); err != nil {
		return err
	}
	o.log.Info("temp channel removed", zap.String("guild", guildID), zap.String("channel", channelID))
	return nil
}

// Reconcile drops records whose channels are gone and sweeps channels that
// emptied while the process was away.
func (o *Orchestrator) Reconcile(ctx context.Context, guildID string) error {
	records, err := o.store.ListTempChannels(ctx, guildID)
	if err != nil {
		return err
	}
	for _, record := range records {
		exists, err := o.gw.ChannelExists(ctx, record.ChannelID)
		if err != nil {
			o.log.Warn("reconcile lookup failed", zap.String("channel", record.ChannelID), zap.Error(err))
			continue
		}
		if !exists {
			if err := o.store.DeleteTempChannel(ctx, record.ChannelID); err != nil {
				return err
			}
			continue
		}
		if err := o.sweep(ctx, guildID, record.ChannelID); err != nil {
			o.log.Warn("reconcile sweep failed", zap.String("channel", record.ChannelID), zap.Error(err))
		}
	}
	return nil
}

// SetupCreator creates the lobby channel and registers it.
func (o *Orchestrator) SetupCreator(ctx context.Context, creator storage.TempCreator, lobbyName string) (storage.TempCreator, error) {
	channelID, err := o.gw.CreateVoiceChannel(ctx, creator.GuildID, gateway.VoiceChannelSpec{
		Name:       lobbyName,
		CategoryID: creator.CategoryID,
	})
	if err != nil {
		return storage.TempCreator{}, err
	}
	creator.ChannelID = channelID
	if creator.NumberingType == "" {
		creator.NumberingType = NumberingNumber
	}
	if creator.Position == "" {
		creator.Position = PositionBottom
	}
	if err := o.store.PutTempCreator(ctx, creator); err != nil {
		_ = o.gw.DeleteChannel(ctx, channelID)
		return storage.TempCreator{}, err
	}
	return creator, nil
}

// RemoveCreator deletes the lobby channel and its registration. Live temp
// channels it spawned keep running until they empty.
func (o *Orchestrator) RemoveCreator(ctx context.Context, creatorID string) error {
	creator, found, err := o.store.GetTempCreator(ctx, creatorID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := o.gw.DeleteChannel(ctx, creator.ChannelID); err != nil {
		o.log.Warn("lobby delete failed", zap.String("channel", creator.ChannelID), zap.Error(err))
	}
	_, err = o.store.DeleteTempCreator(ctx, creatorID)
	return err
}

// ownedChannel loads the channel and its creator toggles, enforcing
// ownership.
func (o *Orchestrator) ownedChannel(ctx context.Context, channelID, actorID string) (storage.TempChannel, storage.TempCreator, error) {
	record, found, err := o.store.GetTempChannel(ctx, channelID)
	if err != nil {
		return storage.TempChannel{}, storage.TempCreator{}, err
	}
	if !found {
		return storage.TempChannel{}, storage.TempCreator{}, ErrNotTempChannel
	}
	if record.OwnerID != actorID {
		return storage.TempChannel{}, storage.TempCreator{}, ErrNotOwner
	}

	creator, found, err := o.store.GetTempCreator(ctx, record.CreatorID)
	if err != nil {
		return storage.TempChannel{}, storage.TempCreator{}, err
	}
	if !found {
		// lobby was removed; its channels keep full permissions
		creator = storage.TempCreator{
			AllowRename: true, AllowLimit: true, AllowLock: true, AllowHide: true,
			AllowKick: true, AllowPermit: true, AllowBitrate: true,
		}
	}
	return record, creator, nil
}

func (o *Orchestrator) Rename(ctx context.Context, channelID, actorID, name string) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowRename {
		return ErrActionDisabled
	}
	if err := o.gw.EditVoiceChannel(ctx, channelID, gateway.VoiceChannelSpec{Name: name}); err != nil {
		return err
	}
	record.Name = name
	return o.store.PutTempChannel(ctx, record)
}

func (o *Orchestrator) SetLimit(ctx context.Context, channelID, actorID string, limit int) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowLimit {
		return ErrActionDisabled
	}
	if err := o.gw.EditVoiceChannel(ctx, channelID, gateway.VoiceChannelSpec{Name: record.Name, UserLimit: limit}); err != nil {
		return err
	}
	record.UserLimit = limit
	return o.store.PutTempChannel(ctx, record)
}

func (o *Orchestrator) SetBitrate(ctx context.Context, channelID, actorID string, bitrate int) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowBitrate {
		return ErrActionDisabled
	}
	if err := o.gw.EditVoiceChannel(ctx, channelID, gateway.VoiceChannelSpec{Name: record.Name, Bitrate: bitrate}); err != nil {
		return err
	}
	record.Bitrate = bitrate
	return o.store.PutTempChannel(ctx, record)
}

func (o *Orchestrator) Lock(ctx context.Context, channelID, actorID string) error {
	return o.setLocked(ctx, channelID, actorID, true)
}

func (o *Orchestrator) Unlock(ctx context.Context, channelID, actorID string) error {
	return o.setLocked(ctx, channelID, actorID, false)
}

func (o *Orchestrator) setLocked(ctx context.Context, channelID, actorID string, locked bool) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowLock {
		return ErrActionDisabled
	}
	connect := !locked
	// the everyone role shares the guild's ID
	if err := o.gw.SetRolePermissions(ctx, channelID, record.GuildID, gateway.PermissionSet{Connect: &connect}); err != nil {
		return err
	}
	record.Locked = locked
	return o.store.PutTempChannel(ctx, record)
}

func (o *Orchestrator) Hide(ctx context.Context, channelID, actorID string) error {
	return o.setHidden(ctx, channelID, actorID, true)
}

func (o *Orchestrator) Unhide(ctx context.Context, channelID, actorID string) error {
	return o.setHidden(ctx, channelID, actorID, false)
}

func (o *Orchestrator) setHidden(ctx context.Context, channelID, actorID string, hidden bool) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowHide {
		return ErrActionDisabled
	}
	view := !hidden
	if err := o.gw.SetRolePermissions(ctx, channelID, record.GuildID, gateway.PermissionSet{ViewChannel: &view}); err != nil {
		return err
	}
	record.Hidden = hidden
	return o.store.PutTempChannel(ctx, record)
}

// KickUser disconnects a member from the channel. The owner cannot kick
// themselves.
func (o *Orchestrator) KickUser(ctx context.Context, channelID, actorID, targetID string) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowKick {
		return ErrActionDisabled
	}
	if targetID == record.OwnerID {
		return ErrNotOwner
	}
	return o.gw.DisconnectMember(ctx, record.GuildID, targetID)
}

// PermitUser lets a member join past a lock or hide.
func (o *Orchestrator) PermitUser(ctx context.Context, channelID, actorID, targetID string) error {
	_, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowPermit {
		return ErrActionDisabled
	}
	allow := true
	if err := o.gw.SetUserPermissions(ctx, channelID, targetID, gateway.PermissionSet{Connect: &allow, ViewChannel: &allow}); err != nil {
		return err
	}
	return o.store.SetTempChannelAccess(ctx, channelID, targetID, storage.AccessPermit)
}

// RejectUser bars a member from the channel and disconnects them if inside.
func (o *Orchestrator) RejectUser(ctx context.Context, channelID, actorID, targetID string) error {
	record, creator, err := o.ownedChannel(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !creator.AllowPermit {
		return ErrActionDisabled
	}
	if targetID == record.OwnerID {
		return ErrNotOwner
	}
	deny := false
	if err := o.gw.SetUserPermissions(ctx, channelID, targetID, gateway.PermissionSet{Connect: &deny}); err != nil {
		return err
	}
	members, err := o.gw.VoiceChannelMembers(record.GuildID, channelID)
	if err == nil {
		for _, member := range members {
			if member.UserID == targetID {
				_ = o.gw.DisconnectMember(ctx, record.GuildID, targetID)
				break
			}
		}
	}
	return o.store.SetTempChannelAccess(ctx, channelID, targetID, storage.AccessBan)
}

// Claim transfers ownership to the caller when the current owner has left.
func (o *Orchestrator) Claim(ctx context.Context, channelID, actorID string) error {
	record, found, err := o.store.GetTempChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotTempChannel
	}
	if record.OwnerID == actorID {
		return nil
	}

	members, err := o.gw.VoiceChannelMembers(record.GuildID, channelID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.UserID == record.OwnerID {
			return ErrOwnerPresent
		}
	}

	if err := o.gw.SetUserPermissions(ctx, channelID, actorID, ownerPermissions()); err != nil {
		o.log.Warn("claim permissions failed", zap.String("channel", channelID), zap.Error(err))
	}
	return o.store.UpdateTempChannelOwner(ctx, channelID, actorID)
}

// ownerPermissions is the elevated overwrite a channel owner holds: join and
// see the channel, manage it, and move or mute its members.
func ownerPermissions() gateway.PermissionSet {
	allow := true
	return gateway.PermissionSet{
		Connect:       &allow,
		ViewChannel:   &allow,
		ManageChannel: &allow,
		MoveMembers:   &allow,
		MuteMembers:   &allow,
	}
}

// renderName fills the {user} and {count} placeholders. Templates without
// {count} get the ordinal appended so names stay unique.
func renderName(template, userName, ordinal string) string {
	if template == "" {
		template = "🔊 {user}'s Kanal"
	}
	name := strings.ReplaceAll(template, "{user}", userName)
	if strings.Contains(template, "{count}") {
		return strings.ReplaceAll(name, "{count}", ordinal)
	}
	return name + " " + ordinal
}
