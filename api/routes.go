package api

import (
	"github.com/go-chi/chi/v5"
)

// setupPublicRoutes serves the portfolio pages and sign in
func setupPublicRoutes(r chi.Router, handlers *routeHandlers) {
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Get("/health", handlers.healthHandler.health())

		// Project Handler endpoints
		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Get("/project/{projectID}", handlers.projectHandler.getProject())

		r.Post("/auth/login", handlers.authHandler.login())
	})
}

// setupAdminRoutes sets up the admin workspace routes with authentication
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, maxUploadBytes int64) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Post("/auth/logout", handlers.authHandler.logout())

		r.Route("/admin", func(r chi.Router) {
			r.Get("/workspace", handlers.adminHandler.getWorkspace())
			r.Get("/notifications", handlers.adminHandler.notifications())

			r.Post("/projects/refresh", handlers.adminHandler.refreshProjects())
			r.Post("/projects/{projectID}/edit", handlers.adminHandler.editProject())
			r.Post("/projects/{projectID}/delete", handlers.adminHandler.requestDelete())

			r.Post("/draft/new", handlers.adminHandler.newDraft())
			r.Patch("/draft", handlers.adminHandler.patchDraft())
			r.Put("/draft/media/{field}", handlers.adminHandler.setMedia())
			r.With(maxBodySize(maxUploadBytes)).Post("/draft/media/{field}/files", handlers.adminHandler.selectFiles())
			r.Delete("/draft/media/{field}/files", handlers.adminHandler.clearFiles())
			r.Post("/draft/lists/{list}", handlers.adminHandler.addListItem())
			r.Delete("/draft/lists/{list}/{index}", handlers.adminHandler.removeListItem())
			r.Post("/draft/submit", handlers.adminHandler.submitDraft())

			r.Post("/deletion/confirm", handlers.adminHandler.confirmDelete())
			r.Post("/deletion/cancel", handlers.adminHandler.cancelDelete())
		})
	})
}
