package api

import (
	"net/http"
	"time"

	"sofia-backend/internal/config"
	"sofia-backend/internal/handlers"
	"sofia-backend/internal/store"
	"sofia-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds the handlers the router wires up.
type RouterDependencies struct {
	Config          *config.Config
	Store           store.Store
	AuthHandler     *handlers.AuthHandler
	UserHandlers    *handlers.UserHandlers
	ChatHandlers    *handlers.ChatHandlers
	HistoryHandlers *handlers.HistoryHandlers
	LibraryHandlers *handlers.LibraryHandlers
}

// NewRouter creates and configures the main application router.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// Base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// The browser client runs on a different origin during development.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMiddleware := JwtAuthMiddleware(deps.Config.JWTSecret, deps.Store)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public auth routes, rate limited per IP.
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(1, 5))
		r.Post("/api/signup", deps.AuthHandler.HandleSignup)
		r.Post("/api/login", deps.AuthHandler.HandleLogin)
	})

	// Email verification link lands here from the user's mail client.
	r.Get("/confirm/{token}", deps.AuthHandler.HandleConfirmEmail)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/send_verification_email", deps.AuthHandler.HandleSendVerificationEmail)
		r.Get("/get_user_info", deps.UserHandlers.HandleGetUserInfo)

		r.Post("/chat", deps.ChatHandlers.HandleChat)
		r.Post("/update_usage", deps.ChatHandlers.HandleUpdateUsage)

		r.Route("/api/chats", func(r chi.Router) {
			r.Get("/", deps.HistoryHandlers.HandleListChats)
			r.Post("/", deps.HistoryHandlers.HandleSaveChat)
			r.Put("/{chatID}", deps.HistoryHandlers.HandleRenameChat)
			r.Delete("/{chatID}", deps.HistoryHandlers.HandleDeleteChat)
		})

		r.Route("/library", func(r chi.Router) {
			r.Post("/upload", deps.LibraryHandlers.HandleUpload)
			r.Get("/files", deps.LibraryHandlers.HandleListFiles)
			r.Delete("/files/{fileID}", deps.LibraryHandlers.HandleDeleteFile)
		})

		r.Post("/logout", deps.UserHandlers.HandleLogout)
		r.Post("/logout-all", deps.UserHandlers.HandleLogoutAll)
		r.Delete("/delete_account", deps.UserHandlers.HandleDeleteAccount)
	})

	return r
}
