package service

import (
	"github.com/go-chi/chi/v5"

	"inventory_admin/internal/app"
	"inventory_admin/internal/pkg/auth"
	"inventory_admin/internal/pkg/logger"
)

// Service encapsulates the HTTP server configuration of the dashboard backend-for-frontend:
// the application logic, its HTTP handlers, the run address and a logger.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up the chi router. Session and password endpoints are public; resource
// endpoints require a signed-in operator.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())

	router.Route("/api", func(r chi.Router) {
		r.Get("/session", service.handlers.sessionHandler)
		r.Post("/session", service.handlers.loginHandler)
		r.Delete("/session", service.handlers.logoutHandler)

		r.Post("/password/forgot", service.handlers.forgotPasswordHandler)
		r.Get("/password/validate", service.handlers.validateResetTokenHandler)
		r.Post("/password/reset", service.handlers.resetPasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(func() bool { return service.app.Session().Authenticated }))
			r.Get("/dashboard", service.handlers.dashboardHandler)
			r.Get("/resources", service.handlers.resourcesHandler)
			r.Route("/resources/{resource}", func(r chi.Router) {
				r.Get("/", service.handlers.listHandler)
				r.Post("/", service.handlers.createHandler)
				r.Get("/export", service.handlers.exportHandler)
				r.Get("/options", service.handlers.optionsHandler)
				r.Delete("/messages", service.handlers.dismissHandler)
				r.Put("/{id}", service.handlers.updateHandler)
				r.Delete("/{id}", service.handlers.deleteHandler)
			})
		})
	})
	return router
}
