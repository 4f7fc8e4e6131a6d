/*
Package moderation decides what a participant may do to another and applies
the resulting state changes.

This file is the authorization engine: pure predicates over resolved user
records and the rank tables. The target must already be looked up; the
orchestrator owns resolution and the surfaced system messages.
*/
package moderation

import (
	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/errs"
)

// CanAssignRank decides whether actor may set target's rank to r.
// The Owner record is immune no matter who asks; the Owner actor bypasses
// the permission table for everyone else.
func CanAssignRank(actor, target user.User, r rank.Rank) *errs.CustomError {
	if target.IsOwner {
		return errs.NewError(errs.ErrCannotModifyOwner)
	}
	if actor.IsOwner {
		return nil
	}
	if rank.MayAssign(actor.Rank, r) {
		return nil
	}
	return errs.NewError(errs.ErrNoPermission)
}

// CanModerate decides whether actor may kick, mute, ban, or unrank target.
// Nobody moderates themself, the bot, or the Owner. The Owner moderates
// everyone else; an Admin moderates only ranks strictly below their own.
func CanModerate(actor, target user.User) bool {
	if actor.UID == target.UID {
		return false
	}
	if target.IsBot() {
		return false
	}
	if target.IsOwner {
		return false
	}
	if actor.IsOwner {
		return true
	}
	return actor.Rank == rank.Admin && rank.Outranks(actor.Rank, target.Rank)
}

// CanUnrank decides whether actor may strip target back to Newbie.
// On top of CanModerate, an Admin may only unrank Pro and below; VIP tiers
// and other Admins keep their rank unless the Owner intervenes.
func CanUnrank(actor, target user.User) bool {
	if !CanModerate(actor, target) {
		return false
	}
	if actor.IsOwner {
		return true
	}
	return actor.Rank == rank.Admin && rank.Index(target.Rank) >= rank.Index(rank.Pro)
}
