package dispatch

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDispatchMessageOrderAndErrors(t *testing.T) {
	d := New(zap.NewNop())
	var ran []string

	d.OnMessage("first", func(ctx context.Context, event MessageEvent) (bool, error) {
		ran = append(ran, "first")
		return false, errors.New("boom")
	})
	d.OnMessage("second", func(ctx context.Context, event MessageEvent) (bool, error) {
		ran = append(ran, "second")
		return false, nil
	})
	d.OnMessage("third", func(ctx context.Context, event MessageEvent) (bool, error) {
		ran = append(ran, "third")
		return false, nil
	})

	d.DispatchMessage(context.Background(), MessageEvent{GuildID: "g1"})

	if len(ran) != 3 || ran[0] != "first" || ran[1] != "second" || ran[2] != "third" {
		t.Fatalf("expected all handlers in order despite error, got %v", ran)
	}
}

func TestDispatchMessageHandledStopsChain(t *testing.T) {
	d := New(zap.NewNop())
	var ran []string

	d.OnMessage("consumer", func(ctx context.Context, event MessageEvent) (bool, error) {
		ran = append(ran, "consumer")
		return true, nil
	})
	d.OnMessage("never", func(ctx context.Context, event MessageEvent) (bool, error) {
		ran = append(ran, "never")
		return false, nil
	})

	d.DispatchMessage(context.Background(), MessageEvent{GuildID: "g1"})

	if len(ran) != 1 || ran[0] != "consumer" {
		t.Fatalf("expected chain to stop after consumer, got %v", ran)
	}
}

func TestDispatchVoiceStateRunsAll(t *testing.T) {
	d := New(zap.NewNop())
	var ran int

	d.OnVoiceState("a", func(ctx context.Context, event VoiceStateEvent) error {
		ran++
		return errors.New("boom")
	})
	d.OnVoiceState("b", func(ctx context.Context, event VoiceStateEvent) error {
		ran++
		return nil
	})

	d.DispatchVoiceState(context.Background(), VoiceStateEvent{GuildID: "g1"})

	if ran != 2 {
		t.Fatalf("expected both voice handlers to run, got %d", ran)
	}
}

func TestDispatchMemberChains(t *testing.T) {
	d := New(zap.NewNop())
	var joins, leaves int

	d.OnMemberJoin("j", func(ctx context.Context, event MemberEvent) error {
		joins++
		return nil
	})
	d.OnMemberLeave("l", func(ctx context.Context, event MemberEvent) error {
		leaves++
		return nil
	})

	d.DispatchMemberJoin(context.Background(), MemberEvent{GuildID: "g1"})
	d.DispatchMemberLeave(context.Background(), MemberEvent{GuildID: "g1"})

	if joins != 1 || leaves != 1 {
		t.Fatalf("expected one join and one leave, got %d/%d", joins, leaves)
	}
}

func TestDispatchReactionRunsAll(t *testing.T) {
	d := New(zap.NewNop())
	var seen []ReactionEvent

	d.OnReaction("a", func(ctx context.Context, event ReactionEvent) error {
		seen = append(seen, event)
		return errors.New("boom")
	})
	d.OnReaction("b", func(ctx context.Context, event ReactionEvent) error {
		seen = append(seen, event)
		return nil
	})

	d.DispatchReaction(context.Background(), ReactionEvent{GuildID: "g1", Emoji: "👍", Added: true})

	if len(seen) != 2 || !seen[0].Added || seen[1].Emoji != "👍" {
		t.Fatalf("expected both reaction handlers to see the event, got %v", seen)
	}
}
