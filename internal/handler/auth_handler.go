/*
Package handler provides HTTP handler functions for account signup, login,
and session management.
*/
package handler

import (
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"onlyfriends/internal/app/db"
	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/errs"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/randx"
	"onlyfriends/internal/pkg/req"
	"onlyfriends/internal/pkg/resp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// HandlePowChallenge issues a fresh Proof-of-Work nonce for the signup flow.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nonce := deps.Pow.GenerateNonce()

		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      nonce,
			"difficulty": deps.Config.PowDifficulty,
		})
	}
}

type PowProofInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowVerify validates a solved challenge and issues a short-lived proof
// token the client attaches to its signup request.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PowProofInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Warn("PoW proof rejected", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"powToken": token})
	}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup processes the request to create a new account. The very first
// account created becomes the room Owner; everyone after starts as Newbie.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		if !deps.Pow.CheckProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		nameLen := utf8.RuneCountInString(input.Name)
		if nameLen < 2 || nameLen > 20 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !emailRegex.MatchString(input.Email) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		uid, err := randx.UID()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		newUser := user.User{
			UID:   uid,
			Name:  input.Name,
			Email: input.Email,
			Rank:  rank.Default,
			Level: 1,
		}

		count, err := deps.Users.Count(r.Context())
		if err != nil {
			logx.Error(err, "signup: user count failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if count == 0 {
			newUser.Rank = rank.Owner
			newUser.IsOwner = true
		}

		created, err := deps.Users.Create(r.Context(), newUser, string(hashedPassword))
		if err != nil && db.ConstraintName(err) == "users_single_owner_idx" {
			// Lost the race for the first account. The schema keeps the
			// owner unique; retry as a regular signup.
			newUser.Rank = rank.Default
			newUser.IsOwner = false
			created, err = deps.Users.Create(r.Context(), newUser, string(hashedPassword))
		}
		if err != nil {
			if db.IsUniqueViolation(err) {
				taken, checkErr := deps.Users.NameTaken(r.Context(), input.Name, "")
				if checkErr == nil && taken {
					resp.RespondError(w, r, errs.NewError(errs.ErrNameAlreadyExists))
					return
				}
				resp.RespondError(w, r, errs.NewError(errs.ErrEmailAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user in database")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Users.UpdateLastLogin(r.Context(), created.UID); err != nil {
			logx.Error(err, "signup: failed to update last_login_at", "uid", created.UID)
		}

		token, customErr := issueIdentityToken(deps, created)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  profileData(created),
		})
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues an identity token. Banned
// accounts are refused outright.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, hash, err := deps.Users.GetCredentials(r.Context(), input.Email)
		if err != nil {
			logx.Warn("login: account fetch failed", "email", input.Email, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if account.IsBanned {
			logx.Warn("login: banned account refused", "uid", account.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrAccountSuspended))
			return
		}

		if err := deps.Users.UpdateLastLogin(r.Context(), account.UID); err != nil {
			logx.Error(err, "login: failed to update last_login_at", "uid", account.UID)
		}

		token, customErr := issueIdentityToken(deps, account)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  profileData(account),
		})
	}
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword verifies the current password and replaces it.
func HandleChangePassword(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input ChangePasswordInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		passwordLen := utf8.RuneCountInString(input.NewPassword)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		account, hash, err := deps.Users.GetCredentials(r.Context(), identityEmail(deps, r, identity))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.OldPassword)); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Users.UpdatePassword(r.Context(), account.UID, string(hashedPassword)); err != nil {
			logx.Error(err, "failed to update password in database", "uid", account.UID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		newToken, customErr := issueIdentityToken(deps, account)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": newToken,
		})
	}
}

// identityEmail resolves the email behind an identity token. The token only
// carries the UID, so the record is read back first.
func identityEmail(deps *AppDeps, r *http.Request, identity *jwt.Payload) string {
	account, err := deps.Users.GetByUID(r.Context(), identity.UID)
	if err != nil {
		return ""
	}
	return account.Email
}

// issueIdentityToken signs a long-lived login token for the account.
func issueIdentityToken(deps *AppDeps, account user.User) (string, *errs.CustomError) {
	payload := &jwt.Payload{
		ID:   account.ID,
		UID:  account.UID,
		Name: account.Name,
	}

	token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
	if err != nil {
		logx.Error(err, "jwt generation failed", "uid", account.UID)
		return "", errs.NewError(errs.ErrUnknown)
	}
	return token, nil
}

// profileData shapes the account fields returned to its owner. Unlike roster
// broadcasts, this view includes the email.
func profileData(account user.User) map[string]any {
	return map[string]any{
		"uid":         account.UID,
		"name":        account.Name,
		"email":       account.Email,
		"rank":        account.Rank,
		"color":       account.Color,
		"isOwner":     account.IsOwner,
		"level":       account.Level,
		"bio":         account.Bio,
		"avatar":      account.AvatarURL,
		"lastLoginAt": account.LastLoginAt.UTC().Format(time.RFC3339),
	}
}
