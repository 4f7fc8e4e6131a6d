/*
Package chat contains the core logic for the standing chat room, user
connections, and message broadcasting.

This file defines the Room struct, the hub for the single standing chat
session. It manages client lifecycles (register/unregister), message
broadcasting, per-viewer roster projection, and delivery of the moderation
engine's output back into the room.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/bot"
	"onlyfriends/internal/app/moderation"
	"onlyfriends/internal/app/roster"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// storeTimeout bounds the user store round trips issued from the room loop.
const storeTimeout = 5 * time.Second

// Store is the slice of the user store the room reads and moderates through.
type Store interface {
	moderation.Store
	List(ctx context.Context) ([]user.User, error)
}

// Room represents the standing chat session. It implements
// moderation.Notifier so the moderation engine can speak into the room.
type Room struct {
	// display name of the room, echoed in every envelope.
	Name string

	// JWTSecret signs refreshed session tokens for connected clients.
	JWTSecret string

	store Store
	trail *audit.Trail
	mod   *moderation.Orchestrator

	bot        bot.Client
	botTimeout time.Duration

	// a map of currently connected clients, keyed by UID.
	clients map[string]*Client

	// a buffered channel for outbound messages to all clients.
	broadcast chan Message

	// channels for clients requesting to join or leave the room.
	register   chan *Client
	unregister chan *Client

	// rosterCh coalesces roster recomputation requests.
	rosterCh chan struct{}

	// used to signal the Room to stop its Run loop immediately.
	stopChan chan struct{}

	// mu protects access to the clients map.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRoom creates the standing Room and its moderation engine. botClient may
// be nil when no collaborator is configured.
func NewRoom(name string, store Store, trail *audit.Trail, botClient bot.Client, botTimeout time.Duration, jwtSecret string) *Room {
	if botTimeout <= 0 {
		botTimeout = moderation.DefaultBotTimeout
	}

	r := &Room{
		Name:       name,
		JWTSecret:  jwtSecret,
		store:      store,
		trail:      trail,
		bot:        botClient,
		botTimeout: botTimeout,
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, broadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rosterCh:   make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		logger:     logx.Logger().With().Str("room", name).Logger(),
	}

	r.mod = moderation.New(store, botClient, trail, r, botTimeout)

	return r
}

// Moderator exposes the room's moderation engine.
func (r *Room) Moderator() *moderation.Orchestrator {
	return r.mod
}

// Stop sends a signal to immediately terminate the Room's Run loop.
func (r *Room) Stop() {
	r.logger.Info().Msg("Received stop signal. Stopping room.")

	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run starts the main event loop for the Room.
// It handles client registration, deregistration, message broadcasting, and
// roster rebroadcasts. The room stands until Stop is called.
func (r *Room) Run() {
	defer func() {
		r.mu.Lock()
		for _, client := range r.clients {
			select {
			case <-client.send:
			default:
				close(client.send)
			}
		}
		r.clients = make(map[string]*Client)
		r.mu.Unlock()

		r.logger.Info().Msg("Room Run loop finished.")
	}()

	for {
		select {
		case client := <-r.register:
			r.admitClient(client)

		case client := <-r.unregister:
			r.removeClient(client)

		case message := <-r.broadcast:
			r.deliver(message)

		case <-r.rosterCh:
			r.broadcastRoster()

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// admitClient registers a joining client, replacing any previous session for
// the same UID, and sends the initial room state plus the welcome line.
func (r *Room) admitClient(client *Client) {
	u := client.User()

	if r.mod.IsKicked(u.UID) {
		client.SendError(errs.NewError(errs.ErrSessionKicked))
		client.CloseSend()
		return
	}

	r.mu.Lock()

	if existing, ok := r.clients[u.UID]; ok {
		r.logger.Warn().
			Str("uid", u.UID).
			Msg("UID already connected. Closing old connection for replacement.")

		existing.Kick("Session replaced by new connection. Check other tabs.")
	}

	r.clients[u.UID] = client
	total := len(r.clients)

	r.mu.Unlock()

	r.logger.Info().
		Str("uid", u.UID).
		Int("total_users", total).
		Msg("Client joined room.")

	members := r.projectRosterFor(u.UID)

	initPayload := InitDataPayload{
		CurrentUser: u,
		Members:     members,
		RoomName:    r.Name,
	}
	if logs, cerr := r.trail.Read(u); cerr == nil {
		initPayload.Logs = logs
	}

	if err := client.SendInitData(initPayload); err != nil {
		r.removeClient(client)
		return
	}

	r.SystemMessageTo(u.UID, moderation.MsgWelcome)
	r.trail.Record(audit.CategoryInfo, fmt.Sprintf("%s joined the room", u.Name))
	r.RosterChanged()
}

// removeClient deregisters a leaving client if it is still the live session
// for its UID. Stale unregisters from replaced connections are ignored.
func (r *Room) removeClient(client *Client) {
	u := client.User()

	r.mu.Lock()

	current, ok := r.clients[u.UID]
	if ok && current == client {
		delete(r.clients, u.UID)

		select {
		case <-client.send:
		default:
			close(client.send)
		}

		r.logger.Info().
			Str("uid", u.UID).
			Int("total_users", len(r.clients)).
			Msg("Client left room.")
	} else if ok {
		r.logger.Info().
			Str("stale_uid", u.UID).
			Msg("Ignoring unregister for stale connection.")
		r.mu.Unlock()
		return
	}

	r.mu.Unlock()

	if ok {
		r.trail.Record(audit.CategoryInfo, fmt.Sprintf("%s left the room", u.Name))
		r.RosterChanged()
	}
}

// deliver serializes the message once and fans it out to every connected
// client except the original sender, who already holds the content.
func (r *Room) deliver(message Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		r.logger.Error().
			Str("message_id", message.ID).
			Err(err).
			Msg("Error marshaling message for broadcast.")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		uid := client.User().UID
		if uid == message.Sender.UID {
			continue
		}

		select {
		case client.send <- messageBytes:
		default:
			r.logger.Warn().
				Str("uid", uid).
				Msg("Client send channel full, scheduling unregister.")

			select {
			case r.unregister <- client:
			default:
				r.logger.Warn().Msg("Unregister channel full, skipping client cleanup.")
			}
		}
	}
}

// broadcastRoster recomputes the member list per viewer and pushes a
// ROSTER_UPDATE to every connected client.
func (r *Room) broadcastRoster() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	all, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Roster refresh failed, keeping stale lists.")
		return
	}

	kicked := r.mod.KickedUIDs()

	r.mu.RLock()
	online := make(map[string]struct{}, len(r.clients))
	viewers := make([]*Client, 0, len(r.clients))
	for uid, client := range r.clients {
		online[uid] = struct{}{}
		viewers = append(viewers, client)
	}
	r.mu.RUnlock()

	for _, client := range viewers {
		uid := client.User().UID
		members := roster.Project(all, online, kicked, uid)

		msg, err := NewMessage(TypeRosterUpdate, r.Name, SystemUser, RosterPayload{Members: members})
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to build ROSTER_UPDATE message.")
			return
		}

		if err := client.sendMessage(msg); err != nil {
			r.logger.Warn().Str("uid", uid).Err(err).Msg("Roster push dropped.")
		}
	}
}

// projectRosterFor computes the member list a single viewer sees right now.
func (r *Room) projectRosterFor(viewerUID string) []user.User {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	all, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Roster projection failed.")
		return []user.User{user.Bot()}
	}

	r.mu.RLock()
	online := make(map[string]struct{}, len(r.clients))
	for uid := range r.clients {
		online[uid] = struct{}{}
	}
	r.mu.RUnlock()

	return roster.Project(all, online, r.mod.KickedUIDs(), viewerUID)
}

// enqueue places an outbound message on the broadcast channel, dropping it
// with a log line when the room loop has fallen behind.
func (r *Room) enqueue(msg Message) {
	select {
	case r.broadcast <- msg:
	default:
		r.logger.Warn().Str("msg_type", string(msg.Type)).Msg("Broadcast channel full, dropping message.")
	}
}

// SystemMessage broadcasts a system line to the room.
func (r *Room) SystemMessage(text string) {
	msg, err := NewMessage(TypeSystem, r.Name, SystemUser, TextPayload{Content: text})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build SYSTEM message.")
		return
	}
	r.enqueue(msg)
}

// SystemMessageTo delivers a system line to a single participant.
func (r *Room) SystemMessageTo(uid, text string) {
	r.mu.RLock()
	client, ok := r.clients[uid]
	r.mu.RUnlock()

	if !ok {
		return
	}

	msg, err := NewMessage(TypeSystem, r.Name, SystemUser, TextPayload{Content: text})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build direct SYSTEM message.")
		return
	}

	if err := client.sendMessage(msg); err != nil {
		r.logger.Warn().Str("uid", uid).Err(err).Msg("Direct system message dropped.")
	}
}

// BotMessage broadcasts a line authored by the bot identity.
func (r *Room) BotMessage(text string) {
	msg, err := NewMessage(TypeBot, r.Name, user.Bot(), TextPayload{Content: text})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build BOT message.")
		return
	}
	r.enqueue(msg)
}

// BotTyping toggles the room's pending-bot indicator.
func (r *Room) BotTyping(active bool) {
	msg, err := NewMessage(TypeBotTyping, r.Name, user.Bot(), BotTypingPayload{Active: active})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build BOT_TYPING message.")
		return
	}
	r.enqueue(msg)
}

// RosterChanged asks the room loop to recompute and rebroadcast its roster.
// Requests arriving while one is already queued coalesce into it.
func (r *Room) RosterChanged() {
	select {
	case r.rosterCh <- struct{}{}:
	default:
	}
}

// Disconnect force-closes the target's live connection, if any.
func (r *Room) Disconnect(uid, reason string) {
	r.mu.RLock()
	client, ok := r.clients[uid]
	r.mu.RUnlock()

	if !ok {
		return
	}

	client.Kick(reason)
}

// RegisterClient safely adds a client to the registration queue.
func (r *Room) RegisterClient(client *Client) {
	select {
	case r.register <- client:
	default:
		r.logger.Warn().Msg("Room register channel blocked.")
		client.SendError(errors.New("room is busy, register channel blocked"))
	}
}

// OnlineUIDs returns a snapshot of currently connected UIDs.
func (r *Room) OnlineUIDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make(map[string]struct{}, len(r.clients))
	for uid := range r.clients {
		online[uid] = struct{}{}
	}
	return online
}

// askBot runs a free-form slash command round trip against the bot
// collaborator and reports the outcome into the room.
func (r *Room) askBot(commandText string) {
	if r.bot == nil {
		r.SystemMessage(moderation.MsgBotFailed)
		return
	}

	r.BotTyping(true)
	defer r.BotTyping(false)

	ctx, cancel := context.WithTimeout(context.Background(), r.botTimeout)
	defer cancel()

	reply, err := r.bot.Reply(ctx, commandText)
	switch {
	case err == nil:
		r.BotMessage(reply)

	case errors.Is(err, bot.ErrEmptyReply):
		// The bot chose not to answer. Not an error.

	default:
		r.logger.Warn().Err(err).Msg("Bot command failed.")
		r.trail.Record(audit.CategoryError, fmt.Sprintf("bot command failed: %v", err))
		r.SystemMessage(moderation.MsgBotFailed)
	}
}
