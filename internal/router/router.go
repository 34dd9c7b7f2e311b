package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studycircle-backend/internal/config"
	"studycircle-backend/internal/handlers"
	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/websocket"
)

type Deps struct {
	Config        *config.Config
	JWT           *middleware.JWTAuth
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Sessions      *handlers.StudySessionHandler
	Posts         *handlers.PostHandler
	Social        *handlers.SocialHandler
	Presence      *handlers.PresenceHandler
	Notifications *handlers.NotificationHandler
	Hub           *websocket.Hub
}

func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.Config.FrontendURL))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	authLimiter := middleware.NewRateLimiter(20, 10)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/refresh", d.Auth.Refresh)
			r.Post("/logout", d.Auth.Logout)
			r.Post("/google", d.Auth.GoogleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.JWT.Middleware)

			r.Route("/study-sessions", func(r chi.Router) {
				r.Post("/", d.Sessions.Create)
				r.Get("/", d.Sessions.List)
				r.Delete("/{id}", d.Sessions.Delete)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/feed", d.Posts.GetSocialFeed)
				r.Get("/daily", d.Posts.GetDaily)
				r.Post("/daily/recompute", d.Posts.RecomputeDaily)
				r.Post("/{id}/like", d.Posts.Like)
				r.Delete("/{id}/like", d.Posts.Unlike)
			})

			r.Route("/users", func(r chi.Router) {
				r.Route("/me", func(r chi.Router) {
					r.Get("/", d.Users.GetMe)
					r.Patch("/", d.Users.UpdateMe)
					r.Delete("/", d.Users.DeleteMe)
					r.Put("/password", d.Users.ChangePassword)
					r.Get("/streak", d.Users.GetStreak)
					r.Get("/posts", d.Posts.GetUserPosts)
				})
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Users.GetUser)
					r.Get("/posts", d.Posts.GetUserPosts)
					r.Post("/follow", d.Social.Follow)
					r.Delete("/follow", d.Social.Unfollow)
					r.Get("/follow", d.Social.FollowStatus)
					r.Get("/followers", d.Social.ListFollowers)
					r.Get("/following", d.Social.ListFollowing)
				})
			})

			r.Route("/studying", func(r chi.Router) {
				r.Get("/", d.Presence.WatchList)
				r.Post("/start", d.Presence.Start)
				r.Post("/stop", d.Presence.Stop)
				r.Post("/pause", d.Presence.Pause)
				r.Post("/resume", d.Presence.Resume)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", d.Notifications.List)
				r.Post("/{id}/read", d.Notifications.MarkRead)
				r.Post("/read-all", d.Notifications.MarkAllRead)
			})

			r.Get("/ws", d.Hub.HandleWS)
		})
	})

	return r
}
