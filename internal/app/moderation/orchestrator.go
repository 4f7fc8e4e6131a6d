/*
Package moderation decides what a participant may do to another and applies
the resulting state changes.

This file is the orchestrator: it resolves targets, consults the
authorization engine, persists the primary effect, and emits the system
message and audit entry for each action. Successful actions are announced to
the whole room; denials and failures are delivered to the acting participant
only. Rank changes additionally request a best-effort confirmation from the
bot collaborator; the rank mutation is applied first and is never rolled
back if the confirmation fails.

Kick is deliberately session-scoped: kicked UIDs live only in this
orchestrator's memory, so a kicked user reappears after the next session.
Ban is the persistent variant.
*/
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/bot"
	"onlyfriends/internal/app/command"
	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/logx"
)

// DefaultBotTimeout bounds the bot confirmation round trip so a slow
// collaborator cannot leave the typing indicator pending forever.
const DefaultBotTimeout = 15 * time.Second

// Store is the slice of the user store the orchestrator writes through.
type Store interface {
	GetByUID(ctx context.Context, uid string) (user.User, error)
	UpdateRank(ctx context.Context, uid string, r rank.Rank) error
	SetMuted(ctx context.Context, uid string, muted bool) error
	SetBanned(ctx context.Context, uid string) error
}

// Notifier delivers the orchestrator's output back into the room.
type Notifier interface {
	// SystemMessage broadcasts a system line to the room.
	SystemMessage(text string)

	// SystemMessageTo delivers a system line to a single participant.
	SystemMessageTo(uid, text string)

	// BotMessage broadcasts a line authored by the bot identity.
	BotMessage(text string)

	// BotTyping toggles the room's pending-bot indicator.
	BotTyping(active bool)

	// RosterChanged asks the room to recompute and rebroadcast its roster.
	RosterChanged()

	// Disconnect force-closes the target's live connection, if any.
	Disconnect(uid, reason string)
}

// ConfirmationState tracks the bot confirmation attached to a rank change.
type ConfirmationState int32

const (
	// StateApplied: the rank mutation is persisted; no confirmation started.
	StateApplied ConfirmationState = iota

	// StatePending: the confirmation request is in flight.
	StatePending

	// StateResolved: the bot acknowledged the change.
	StateResolved

	// StateFailed: the bot call failed or timed out. The rank change stands.
	StateFailed
)

// Confirmation is the observable handle for one bot confirmation.
type Confirmation struct {
	state atomic.Int32
	done  chan struct{}
}

func newConfirmation() *Confirmation {
	return &Confirmation{done: make(chan struct{})}
}

// State returns the current confirmation state.
func (c *Confirmation) State() ConfirmationState {
	return ConfirmationState(c.state.Load())
}

// Done is closed once the confirmation resolves or fails.
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}

func (c *Confirmation) finish(s ConfirmationState) {
	c.state.Store(int32(s))
	close(c.done)
}

// Orchestrator applies moderation actions for one room session.
type Orchestrator struct {
	store    Store
	bot      bot.Client
	trail    *audit.Trail
	notifier Notifier

	botTimeout time.Duration

	mu     sync.RWMutex
	kicked map[string]struct{}

	logger zerolog.Logger
}

// New builds an Orchestrator. botClient may be nil when no collaborator is
// configured; rank changes are then applied without confirmation.
func New(store Store, botClient bot.Client, trail *audit.Trail, notifier Notifier, botTimeout time.Duration) *Orchestrator {
	if botTimeout <= 0 {
		botTimeout = DefaultBotTimeout
	}
	return &Orchestrator{
		store:      store,
		bot:        botClient,
		trail:      trail,
		notifier:   notifier,
		botTimeout: botTimeout,
		kicked:     make(map[string]struct{}),
		logger:     logx.Component("moderation"),
	}
}

// IsKicked reports whether the UID is in this session's exclusion set.
func (o *Orchestrator) IsKicked(uid string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.kicked[uid]
	return ok
}

// KickedUIDs returns a snapshot of the session exclusion set.
func (o *Orchestrator) KickedUIDs() map[string]struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]struct{}, len(o.kicked))
	for uid := range o.kicked {
		out[uid] = struct{}{}
	}
	return out
}

// SetRankByLabel handles a "<label> <uid>" rank command from actor.
// Denials resolve into an actor-only system message with zero side effects.
// On success the returned Confirmation observes the bot round trip; callers
// that don't care may ignore it.
func (o *Orchestrator) SetRankByLabel(ctx context.Context, actor user.User, label, targetUID string) *Confirmation {
	r, err := rank.FromLabel(label)
	if err != nil {
		o.notifier.SystemMessageTo(actor.UID, msgUnknownRank(label))
		return nil
	}

	target, err := o.store.GetByUID(ctx, targetUID)
	if err != nil {
		o.targetLookupFailure(actor.UID, err, targetUID)
		return nil
	}

	if cerr := CanAssignRank(actor, target, r); cerr != nil {
		switch {
		case target.IsOwner:
			o.notifier.SystemMessageTo(actor.UID, MsgCannotChangeOwner)
		default:
			o.notifier.SystemMessageTo(actor.UID, MsgNoRankPermission)
		}
		return nil
	}

	if err := o.store.UpdateRank(ctx, targetUID, r); err != nil {
		o.storeFailure(actor.UID, err, "rank update failed")
		return nil
	}

	o.notifier.SystemMessage(msgRankChanged(actor.Name, target.Name, label))
	o.trail.Record(audit.CategoryModeration,
		fmt.Sprintf("%s changed %s's rank to %s", actor.Name, target.Name, label))
	o.notifier.RosterChanged()

	conf := newConfirmation()
	if o.bot == nil {
		conf.finish(StateApplied)
		return conf
	}

	conf.state.Store(int32(StatePending))
	o.notifier.BotTyping(true)
	go o.confirmRank(conf, label, targetUID)
	return conf
}

// confirmRank runs the best-effort bot confirmation for an applied rank
// change. Whatever happens here, the rank mutation stands.
func (o *Orchestrator) confirmRank(conf *Confirmation, label, targetUID string) {
	defer o.notifier.BotTyping(false)

	ctx, cancel := context.WithTimeout(context.Background(), o.botTimeout)
	defer cancel()

	reply, err := o.bot.Reply(ctx, fmt.Sprintf("/setrank %s %s", label, targetUID))
	switch {
	case err == nil:
		o.notifier.BotMessage(reply)
		o.trail.Record(audit.CategoryInfo,
			fmt.Sprintf("bot confirmed rank change for %s", targetUID))
		conf.finish(StateResolved)

	case errors.Is(err, bot.ErrEmptyReply):
		// No reply is a valid outcome, not a failure.
		conf.finish(StateResolved)

	default:
		o.logger.Warn().Err(err).Str("target_uid", targetUID).Msg("Bot confirmation failed")
		o.notifier.SystemMessage(MsgBotConfirmFailed)
		o.trail.Record(audit.CategoryError,
			fmt.Sprintf("bot confirmation failed for %s: %v", targetUID, err))
		conf.finish(StateFailed)
	}
}

// Mute toggles the target's posting block.
func (o *Orchestrator) Mute(ctx context.Context, actor user.User, targetUID string) {
	target, ok := o.resolveModerationTarget(ctx, actor, targetUID)
	if !ok {
		return
	}

	muted := !target.IsMuted
	if err := o.store.SetMuted(ctx, targetUID, muted); err != nil {
		o.storeFailure(actor.UID, err, "mute update failed")
		return
	}

	if muted {
		o.notifier.SystemMessage(msgMuted(actor.Name, target.Name))
		o.trail.Record(audit.CategoryModeration,
			fmt.Sprintf("%s muted %s", actor.Name, target.Name))
	} else {
		o.notifier.SystemMessage(msgUnmuted(actor.Name, target.Name))
		o.trail.Record(audit.CategoryModeration,
			fmt.Sprintf("%s unmuted %s", actor.Name, target.Name))
	}
	o.notifier.RosterChanged()
}

// Ban permanently excludes the target. There is no unban.
func (o *Orchestrator) Ban(ctx context.Context, actor user.User, targetUID string) {
	target, ok := o.resolveModerationTarget(ctx, actor, targetUID)
	if !ok {
		return
	}

	if err := o.store.SetBanned(ctx, targetUID); err != nil {
		o.storeFailure(actor.UID, err, "ban update failed")
		return
	}

	o.notifier.SystemMessage(msgBanned(actor.Name, target.Name))
	o.trail.Record(audit.CategoryModeration,
		fmt.Sprintf("%s banned %s", actor.Name, target.Name))
	o.notifier.Disconnect(targetUID, "banned")
	o.notifier.RosterChanged()
}

// Kick removes the target from the visible roster for this session only.
func (o *Orchestrator) Kick(ctx context.Context, actor user.User, targetUID string) {
	target, ok := o.resolveModerationTarget(ctx, actor, targetUID)
	if !ok {
		return
	}

	o.mu.Lock()
	o.kicked[targetUID] = struct{}{}
	o.mu.Unlock()

	o.notifier.SystemMessage(msgKicked(actor.Name, target.Name))
	o.trail.Record(audit.CategoryModeration,
		fmt.Sprintf("%s kicked %s", actor.Name, target.Name))
	o.notifier.Disconnect(targetUID, "kicked")
	o.notifier.RosterChanged()
}

// Unrank strips the target back to Newbie.
func (o *Orchestrator) Unrank(ctx context.Context, actor user.User, targetUID string) {
	target, err := o.store.GetByUID(ctx, targetUID)
	if err != nil {
		o.targetLookupFailure(actor.UID, err, targetUID)
		return
	}

	if !CanUnrank(actor, target) {
		o.notifier.SystemMessageTo(actor.UID, MsgNoModerationPermission)
		return
	}

	if err := o.store.UpdateRank(ctx, targetUID, rank.Newbie); err != nil {
		o.storeFailure(actor.UID, err, "unrank update failed")
		return
	}

	o.notifier.SystemMessage(msgUnranked(actor.Name, target.Name))
	o.trail.Record(audit.CategoryModeration,
		fmt.Sprintf("%s unranked %s", actor.Name, target.Name))
	o.notifier.RosterChanged()
}

// GuardMessage rejects a plain message from a muted sender. It returns true
// when the message may proceed to broadcast.
func (o *Orchestrator) GuardMessage(sender user.User) bool {
	if sender.IsMuted {
		o.notifier.SystemMessageTo(sender.UID, MsgYouAreMuted)
		return false
	}
	return true
}

// resolveModerationTarget fetches the target and applies CanModerate,
// surfacing denials as actor-only system messages. ok is false when the
// action must not proceed.
func (o *Orchestrator) resolveModerationTarget(ctx context.Context, actor user.User, targetUID string) (user.User, bool) {
	if targetUID == user.BotUID {
		o.notifier.SystemMessageTo(actor.UID, MsgNoModerationPermission)
		return user.User{}, false
	}

	target, err := o.store.GetByUID(ctx, targetUID)
	if err != nil {
		o.targetLookupFailure(actor.UID, err, targetUID)
		return user.User{}, false
	}

	if !CanModerate(actor, target) {
		o.notifier.SystemMessageTo(actor.UID, MsgNoModerationPermission)
		return user.User{}, false
	}

	return target, true
}

func (o *Orchestrator) targetLookupFailure(actorUID string, err error, targetUID string) {
	if errors.Is(err, user.ErrNotFound) {
		o.notifier.SystemMessageTo(actorUID, msgUserNotFound(targetUID))
		return
	}
	o.storeFailure(actorUID, err, "target lookup failed")
}

func (o *Orchestrator) storeFailure(actorUID string, err error, msg string) {
	o.logger.Error().Err(err).Msg(msg)
	o.trail.Record(audit.CategoryError, fmt.Sprintf("%s: %v", msg, err))
	o.notifier.SystemMessageTo(actorUID, MsgStoreFailed)
}

// HandleCommand routes a parsed rank-change input. It exists so the chat
// layer depends on one entry point instead of the individual actions.
func (o *Orchestrator) HandleCommand(ctx context.Context, actor user.User, in command.Input) *Confirmation {
	if in.Kind != command.KindRankChange {
		return nil
	}
	return o.SetRankByLabel(ctx, actor, in.Label, in.TargetUID)
}
