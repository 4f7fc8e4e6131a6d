/*
Package chat contains the core logic for the standing chat room, user
connections, and message broadcasting.

This file defines the Manager struct, which owns the single standing Room,
starts its event loop, and coordinates graceful shutdown.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/bot"
	"onlyfriends/internal/configs"
	"onlyfriends/internal/pkg/logx"
)

// Manager owns the standing room and its lifecycle.
type Manager struct {
	room *Room

	// Config holds the application's read-only configuration settings.
	config *configs.AppConfig

	// wg waits for the room's Run loop to finish during shutdown.
	wg sync.WaitGroup

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs the Manager, creates the standing room, and starts
// its Run loop. botClient may be nil when no collaborator is configured.
func NewManager(cfg *configs.AppConfig, store Store, trail *audit.Trail, botClient bot.Client) *Manager {
	managerLogger := logx.Logger().With().Str("component", "Manager").Logger()

	m := &Manager{
		config: cfg,
		logger: managerLogger,
	}

	m.room = NewRoom(cfg.RoomName, store, trail, botClient, cfg.BotTimeout, cfg.JWTSecret)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.room.Run()
	}()

	m.logger.Info().Str("room", cfg.RoomName).Msg("Standing room created and started.")

	return m
}

// Room returns the standing room.
func (m *Manager) Room() *Room {
	return m.room
}

// Shutdown stops the room's Run loop and waits for it to exit.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.room.Stop()
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
