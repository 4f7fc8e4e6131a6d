package handler

import (
	"net/http"

	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/resp"
)

// HandleGetRoomLogs returns the room's action log, newest first. Access is
// decided by the trail itself against the caller's current record, so a
// demoted Admin loses the panel immediately.
func HandleGetRoomLogs(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		viewer, err := deps.Users.GetByUID(r.Context(), identity.UID)
		if err != nil {
			logx.Warn("room_logs: account fetch failed", "uid", identity.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		entries, customErr := deps.Trail.Read(viewer)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"logs": entries,
		})
	}
}
