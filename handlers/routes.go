package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"todoapi/database"
	"todoapi/utils"
)

// Deps are the shared resources handed to every handler.
type Deps struct {
	DB          *database.DB
	Sessions    *utils.SessionStore
	Mailer      utils.Mailer
	CORSOrigins []string
}

// NewRouter mounts every route of the API.
func NewRouter(d Deps) http.Handler {
	if d.Mailer == nil {
		d.Mailer = utils.LogMailer{}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(APIVersionHeader)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-API-Version"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", RootHandler)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		HealthHandler(w, r, d.DB, d.Sessions)
	})

	requireAuth := RequireAuth(d.Sessions)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
			RegisterHandler(w, r, d.DB, d.Mailer)
		})
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			LoginHandler(w, r, d.DB, d.Sessions)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
				LogoutHandler(w, r, d.Sessions)
			})
			r.Post("/logout-all", func(w http.ResponseWriter, r *http.Request) {
				LogoutAllHandler(w, r, d.Sessions)
			})
			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				MeHandler(w, r, d.DB)
			})
		})
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ListTasksHandler(w, r, d.DB)
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			CreateTaskHandler(w, r, d.DB)
		})
		r.Get("/{task_id}", func(w http.ResponseWriter, r *http.Request) {
			GetTaskHandler(w, r, d.DB)
		})
		update := func(w http.ResponseWriter, r *http.Request) {
			UpdateTaskHandler(w, r, d.DB)
		}
		r.Put("/{task_id}", update)
		r.Patch("/{task_id}", update)
		r.Delete("/{task_id}", func(w http.ResponseWriter, r *http.Request) {
			DeleteTaskHandler(w, r, d.DB)
		})
	})

	r.Route("/api/tags", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ListTagsHandler(w, r, d.DB)
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			CreateTagHandler(w, r, d.DB)
		})
		r.Delete("/{tag_id}", func(w http.ResponseWriter, r *http.Request) {
			DeleteTagHandler(w, r, d.DB)
		})
	})

	return r
}
