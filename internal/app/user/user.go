/*
Package user contains the participant record and the single validated
mutation path for it.

All moderation and profile edits flow through Patch/Apply so every write
site shares one merge implementation instead of ad hoc partial updates.
*/
package user

import (
	"fmt"
	"strings"
	"time"

	"onlyfriends/internal/app/rank"
)

// Bot identity constants. The bot is a synthetic roster member: it is never
// persisted, never moderated, and always rendered last in the member list.
const (
	BotUID  = "GMNB0T"
	BotName = "Gemini Bot"
)

// User represents a chat participant record.
// Email and moderation flags are serialized for the owning client only;
// roster broadcasts use this struct as-is minus the omitted fields.
type User struct {
	ID        string    `json:"-"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"-"`
	Rank      rank.Rank `json:"rank"`
	Color     string    `json:"color"`
	IsOwner   bool      `json:"isOwner,omitempty"`
	IsMuted   bool      `json:"isMuted,omitempty"`
	IsBanned  bool      `json:"-"`
	Level     int       `json:"level"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar,omitempty"`

	LastLoginAt time.Time `json:"-"`
}

// Bot returns the synthetic bot roster entry.
func Bot() User {
	return User{
		UID:   BotUID,
		Name:  BotName,
		Rank:  rank.User,
		Color: rank.Color(rank.User),
		Bio:   "I am a helpful assistant bot.",
	}
}

// IsBot reports whether the record is the synthetic bot identity.
func (u User) IsBot() bool {
	return u.UID == BotUID
}

// SameNameAs compares display names case-insensitively, matching the
// uniqueness rule enforced at signup.
func (u User) SameNameAs(name string) bool {
	return strings.EqualFold(u.Name, name)
}

// Patch is a partial update to a User. Nil fields are left untouched.
type Patch struct {
	Name      *string
	Rank      *rank.Rank
	IsMuted   *bool
	IsBanned  *bool
	Level     *int
	Bio       *string
	AvatarURL *string
}

// Apply merges the patch into a copy of u and returns it. The input is
// never mutated. Invalid values (unknown rank, negative level) are rejected
// before any field is applied.
func Apply(u User, p Patch) (User, error) {
	if p.Rank != nil && !rank.IsValid(*p.Rank) {
		return User{}, fmt.Errorf("invalid rank %q", *p.Rank)
	}
	if p.Level != nil && *p.Level < 0 {
		return User{}, fmt.Errorf("level must be >= 0, got %d", *p.Level)
	}

	out := u
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Rank != nil {
		out.Rank = *p.Rank
		out.Color = rank.Color(*p.Rank)
	}
	if p.IsMuted != nil {
		out.IsMuted = *p.IsMuted
	}
	if p.IsBanned != nil {
		out.IsBanned = *p.IsBanned
	}
	if p.Level != nil {
		out.Level = *p.Level
	}
	if p.Bio != nil {
		out.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		out.AvatarURL = *p.AvatarURL
	}
	return out, nil
}
