package api

import "time"

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		healthHandler:  newHealthHandler(deps.Ping, startupTime),
		projectHandler: newProjectHandler(deps.Projects),
		authHandler:    newAuthHandler(deps.Authenticator, deps.Registry),
		adminHandler:   newAdminHandler(deps.Registry, deps.MaxUploadBytes),
	}
}
