package handler

import (
	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/chat"
	"onlyfriends/internal/app/storage"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/configs"
	"onlyfriends/internal/pkg/pow"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Manager *chat.Manager
	Config  *configs.AppConfig
	Storage storage.Service
	Users   *user.Store
	Trail   *audit.Trail
	Pow     *pow.PoWManager
}
