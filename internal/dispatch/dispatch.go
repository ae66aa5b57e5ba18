// Package dispatch fans platform events out to their handlers in a fixed
// order.
package dispatch

import (
	"context"

	"go.uber.org/zap"
)

// MessageEvent is a guild message from a human or bot.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	Content   string
	IsBot     bool
}

// VoiceStateEvent captures one member's channel transition. Either side may
// be empty: joins have no PrevChannelID, disconnects no ChannelID.
type VoiceStateEvent struct {
	GuildID       string
	UserID        string
	UserName      string
	ChannelID     string
	PrevChannelID string
}

type MemberEvent struct {
	GuildID  string
	UserID   string
	UserName string
}

// ReactionEvent covers both adds and removals; Added distinguishes them.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
	Added     bool
}

// MessageHandler consumes a message event. Returning handled stops the
// chain; later handlers never see the event.
type MessageHandler func(ctx context.Context, event MessageEvent) (handled bool, err error)

type VoiceHandler func(ctx context.Context, event VoiceStateEvent) error

type MemberHandler func(ctx context.Context, event MemberEvent) error

type ReactionHandler func(ctx context.Context, event ReactionEvent) error

// Dispatcher holds the ordered handler chains. Registration happens during
// startup; dispatch is read-only afterwards.
type Dispatcher struct {
	log      *zap.Logger
	message  []namedMessageHandler
	voice    []namedVoiceHandler
	join     []namedMemberHandler
	leave    []namedMemberHandler
	reaction []namedReactionHandler
}

type namedMessageHandler struct {
	name    string
	handler MessageHandler
}

type namedVoiceHandler struct {
	name    string
	handler VoiceHandler
}

type namedMemberHandler struct {
	name    string
	handler MemberHandler
}

type namedReactionHandler struct {
	name    string
	handler ReactionHandler
}

func New(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

func (d *Dispatcher) OnMessage(name string, handler MessageHandler) {
	d.message = append(d.message, namedMessageHandler{name: name, handler: handler})
}

func (d *Dispatcher) OnVoiceState(name string, handler VoiceHandler) {
	d.voice = append(d.voice, namedVoiceHandler{name: name, handler: handler})
}

func (d *Dispatcher) OnMemberJoin(name string, handler MemberHandler) {
	d.join = append(d.join, namedMemberHandler{name: name, handler: handler})
}

func (d *Dispatcher) OnMemberLeave(name string, handler MemberHandler) {
	d.leave = append(d.leave, namedMemberHandler{name: name, handler: handler})
}

func (d *Dispatcher) OnReaction(name string, handler ReactionHandler) {
	d.reaction = append(d.reaction, namedReactionHandler{name: name, handler: handler})
}

// DispatchMessage runs the message chain in registration order. A handler
// error is logged and the chain continues; a handled result ends it.
func (d *Dispatcher) DispatchMessage(ctx context.Context, event MessageEvent) {
	for _, entry := range d.message {
		handled, err := entry.handler(ctx, event)
		if err != nil {
			d.log.Warn("message handler failed",
				zap.String("handler", entry.name),
				zap.String("guild", event.GuildID),
				zap.Error(err))
			continue
		}
		if handled {
			return
		}
	}
}

// DispatchVoiceState runs every voice handler; failures are logged and do
// not stop the rest.
func (d *Dispatcher) DispatchVoiceState(ctx context.Context, event VoiceStateEvent) {
	for _, entry := range d.voice {
		if err := entry.handler(ctx, event); err != nil {
			d.log.Warn("voice handler failed",
				zap.String("handler", entry.name),
				zap.String("guild", event.GuildID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) DispatchMemberJoin(ctx context.Context, event MemberEvent) {
	d.dispatchMember(ctx, d.join, event)
}

func (d *Dispatcher) DispatchMemberLeave(ctx context.Context, event MemberEvent) {
	d.dispatchMember(ctx, d.leave, event)
}

func (d *Dispatcher) dispatchMember(ctx context.Context, chain []namedMemberHandler, event MemberEvent) {
	for _, entry := range chain {
		if err := entry.handler(ctx, event); err != nil {
			d.log.Warn("member handler failed",
				zap.String("handler", entry.name),
				zap.String("guild", event.GuildID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) DispatchReaction(ctx context.Context, event ReactionEvent) {
	for _, entry := range d.reaction {
		if err := entry.handler(ctx, event); err != nil {
			d.log.Warn("reaction handler failed",
				zap.String("handler", entry.name),
				zap.String("guild", event.GuildID),
				zap.Error(err))
		}
	}
}
