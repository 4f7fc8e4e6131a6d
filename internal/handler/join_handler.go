/*
Package handler provides HTTP handler functions for entering the standing
room and reading its action log.
*/
package handler

import (
	"net/http"

	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/resp"
)

// HandleJoinRoom exchanges an identity token for a short-lived room session
// token. Banned accounts and UIDs kicked this session are refused here,
// before the WebSocket upgrade is ever attempted.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		account, err := deps.Users.GetByUID(r.Context(), identity.UID)
		if err != nil {
			logx.Warn("join: account fetch failed", "uid", identity.UID)
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

		payload := &jwt.Payload{
			ID:   account.ID,
			UID:  account.UID,
			Name: account.Name,
		}

		tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.RoomAccessExpiration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":    tokenString,
			"roomName": room.Name,
		})
	}
}
