/*
Package handler provides the HTTP handlers and routing setup for the OnlyFriends server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"onlyfriends/internal/pkg/auth/jwt"
	"onlyfriends/internal/pkg/limiter"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/resp"
)

const (
	SignupRate  = 0.05
	SignupBurst = 2
	LoginRate   = 0.2
	LoginBurst  = 5
	JoinRate    = 0.2
	JoinBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	signupLimiter := limiter.NewIPRateLimiter(rate.Limit(SignupRate), SignupBurst)
	loginLimiter := limiter.NewIPRateLimiter(rate.Limit(LoginRate), LoginBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Info("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "OnlyFriends Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/pow", HandlePowChallenge(deps))
			auth.Post("/pow", HandlePowVerify(deps))

			rateLimitedSignup := signupLimiter.Middleware(HandleSignup(deps))
			auth.Post("/signup", rateLimitedSignup.ServeHTTP)

			rateLimitedLogin := loginLimiter.Middleware(HandleLogin(deps))
			auth.Post("/login", rateLimitedLogin.ServeHTTP)
			auth.Post("/change-password", HandleChangePassword(deps))
		})

		api.Route("/user", func(user chi.Router) {
			user.Get("/profile", HandleGetUserProfile(deps))
			user.Post("/profile", HandleUpdateUserProfile(deps))
			user.Post("/avatar/presign", HandlePresignAvatarURL(deps))
			user.Get("/avatar", HandleAvatarDownload(deps))
		})

		api.Route("/room", func(room chi.Router) {
			room.Post("/join", HandleJoinRoom(deps))
			room.Get("/logs", HandleGetRoomLogs(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, joinLimiter, deps))

	return r
}
