/*
Package handler provides HTTP handler functions for profile reads and edits.
*/
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"onlyfriends/internal/app/storage"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/req"
	"onlyfriends/internal/pkg/resp"
)

const maxBioLength = 200

// HandleGetUserProfile retrieves the current authenticated user's record.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		account, err := deps.Users.GetByUID(r.Context(), identity.UID)
		if err != nil {
			logx.Warn("get_user_profile: account not found", "uid", identity.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": profileData(account),
		})
	}
}

type UpdateProfileInput struct {
	Name      *string `json:"name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarKey *string `json:"avatarKey,omitempty"`
}

// HandleUpdateUserProfile applies a partial profile edit. Absent fields are
// left untouched; a renamed account keeps its name unique case-insensitively.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Users.GetByUID(r.Context(), identity.UID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if input.Name != nil {
			nameLen := utf8.RuneCountInString(*input.Name)
			if nameLen < 2 || nameLen > 20 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			taken, err := deps.Users.NameTaken(r.Context(), *input.Name, account.UID)
			if err != nil {
				logx.Error(err, "update_profile: name check failed", "uid", account.UID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			if taken {
				resp.RespondError(w, r, errs.NewError(errs.ErrNameAlreadyExists))
				return
			}
		}

		if input.Bio != nil && utf8.RuneCountInString(*input.Bio) > maxBioLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if input.AvatarKey != nil && *input.AvatarKey != "" {
			if !strings.HasPrefix(*input.AvatarKey, storage.AvatarKeyPrefix+account.UID+"/") {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			// The client claims it finished the presigned upload. Verify the
			// object is actually in the bucket before recording the key.
			if _, err := deps.Storage.GetObjectMetadata(r.Context(), *input.AvatarKey); err != nil {
				logx.Warn("update_profile: avatar object missing", "uid", account.UID, "key", *input.AvatarKey)
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
		}

		patch := user.Patch{
			Name:      input.Name,
			Bio:       input.Bio,
			AvatarURL: input.AvatarKey,
		}

		updated, err := user.Apply(account, patch)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Users.UpdateProfile(r.Context(), account.UID, patch); err != nil {
			logx.Error(err, "update_profile: write failed", "uid", account.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreWrite))
			return
		}

		// A replaced avatar leaves its old object orphaned in the bucket.
		oldKey := account.AvatarURL
		if input.AvatarKey != nil && oldKey != "" && oldKey != *input.AvatarKey {
			go func(k string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = deps.Storage.Delete(ctx, k)
			}(oldKey)
		}

		deps.Manager.Room().RosterChanged()

		token, customErr := issueIdentityToken(deps, updated)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  profileData(updated),
		})
	}
}
