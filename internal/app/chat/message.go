/*
Package chat contains the core logic for the standing chat room, user
connections, and message broadcasting.

This file defines the WebSocket wire envelope and the payload types for every
inbound and outbound message.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/randx"
)

// MessageType identifies the kind of message carried by the envelope.
type MessageType string

// Outbound message types.
const (
	// TypeInitData carries the initial room state to a freshly joined client.
	TypeInitData MessageType = "INIT_DATA"

	// TypeText is a chat line authored by a participant. Also inbound.
	TypeText MessageType = "TEXT"

	// TypeSystem is a room announcement with no human author.
	TypeSystem MessageType = "SYSTEM"

	// TypeBot is a chat line authored by the bot identity.
	TypeBot MessageType = "BOT"

	// TypeBotTyping toggles the client's bot typing indicator.
	TypeBotTyping MessageType = "BOT_TYPING"

	// TypeRosterUpdate replaces the client's member list.
	TypeRosterUpdate MessageType = "ROSTER_UPDATE"

	// TypeConfirm acknowledges an inbound message back to its sender.
	TypeConfirm MessageType = "CONFIRM"

	// TypeError reports a request-level failure to one client.
	TypeError MessageType = "ERROR"

	// TypeTokenUpdate delivers a refreshed session token.
	TypeTokenUpdate MessageType = "TOKEN_UPDATE"
)

// Inbound-only message types.
const (
	// TypeModerate requests a moderation action against another participant.
	TypeModerate MessageType = "MODERATE"
)

// Moderation actions accepted in a ModeratePayload.
const (
	ActionSetRank = "setrank"
	ActionMute    = "mute"
	ActionBan     = "ban"
	ActionKick    = "kick"
	ActionUnrank  = "unrank"
)

// SystemUser is the synthetic sender attached to announcements and errors.
var SystemUser = user.User{UID: "SYSTEM", Name: "System"}

// Message is the envelope for every frame written to a client.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Room      string          `json:"room"`
	Sender    user.User       `json:"sender"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage builds an envelope with a fresh ID and the payload marshaled in
// place, so broadcast sites serialize the whole frame exactly once.
func NewMessage(msgType MessageType, roomName string, sender user.User, payload any) (Message, error) {
	var raw json.RawMessage

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		raw = b
	}

	return Message{
		ID:        randx.MessageID(),
		Type:      msgType,
		Room:      roomName,
		Sender:    sender,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// TextPayload carries chat content for TEXT, SYSTEM, and BOT messages.
type TextPayload struct {
	Content string `json:"content"`
}

// ModeratePayload is the inbound request for a moderation action.
// Label is only consulted for ActionSetRank.
type ModeratePayload struct {
	Action    string `json:"action"`
	TargetUID string `json:"targetUid"`
	Label     string `json:"label,omitempty"`
}

// InitDataPayload is the first frame a joining client receives. Logs is
// only populated for joiners allowed to read the action log.
type InitDataPayload struct {
	CurrentUser user.User     `json:"currentUser"`
	Members     []user.User   `json:"members"`
	RoomName    string        `json:"roomName"`
	Logs        []audit.Entry `json:"logs,omitempty"`
}

// RosterPayload replaces the member list on the client.
type RosterPayload struct {
	Members []user.User `json:"members"`
}

// BotTypingPayload toggles the bot typing indicator.
type BotTypingPayload struct {
	Active bool `json:"active"`
}

// ErrorPayload reports an application error code to the client.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TokenUpdatePayload delivers a refreshed session token to the client.
type TokenUpdatePayload struct {
	Token string `json:"token"`
}
