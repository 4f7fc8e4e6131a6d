package handler

import (
	"net/http"
	"strings"

	"onlyfriends/internal/app/storage"
	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/req"
	"onlyfriends/internal/pkg/resp"
)

// PresignAvatarInput defines the JSON input structure for generating an
// avatar upload URL.
type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL generates a time-limited, pre-signed URL for an
// avatar upload, keyed under the requesting account's UID.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateAvatarSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateAvatarType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := storage.AvatarKey(identity.UID, input.FileName)

		url, err := deps.Storage.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
		})
	}
}

// HandleAvatarDownload redirects to a pre-signed download URL for an avatar
// object. Only keys under the avatar namespace are served.
func HandleAvatarDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || !strings.HasPrefix(fileKey, storage.AvatarKeyPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
