/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate
limiting, validating the room session token, upgrading the HTTP connection to
WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"onlyfriends/internal/app/chat"
	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/limiter"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Browsers cannot set headers on WebSocket requests, so the room session token
// arrives as a query parameter.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: Missing session token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		claims, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid session token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		account, err := deps.Users.GetByUID(r.Context(), claims.UID)
		if err != nil {
			logx.Warn("WebSocket request rejected: Unknown account", "uid", claims.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if account.IsBanned {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccountSuspended))
			return
		}

		room := deps.Manager.Room()
		if room.Moderator().IsKicked(account.UID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionKicked))
			return
		}

		logx.Info("Attempting to upgrade connection", "uid", account.UID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		expiry := time.Unix(claims.ExpiresAt, 0)
		client := chat.NewClient(room, conn, account, expiry)

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "uid", account.UID)

		room.RegisterClient(client)

		client.ReadPump()
	}
}
