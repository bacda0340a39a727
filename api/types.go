package api

import (
	"time"

	"github.com/rpupo63/portfolio-admin-backend/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler  healthHandler
	projectHandler projectHandler
	authHandler    authHandler
	adminHandler   adminHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error    string   `json:"error" example:"Internal Server Error"`
	Status   string   `json:"status" example:"error"`
	Field    string   `json:"field,omitempty" example:"name"`
	Details  string   `json:"details,omitempty" example:"Additional error details"`
	Cause    string   `json:"cause,omitempty" example:"Underlying error cause"`
	Orphaned []string `json:"orphaned,omitempty"`
}

// ProjectCollection is the public gallery payload.
type ProjectCollection struct {
	Projects []models.Project `json:"projects"`
	Total    int              `json:"total"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	StartupTime time.Time `json:"startup_time"`
	Uptime      string    `json:"uptime"`
	Database    string    `json:"database"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mediaRequest struct {
	Mode string  `json:"mode"`
	URL  *string `json:"url"`
}

type listItemRequest struct {
	Value string `json:"value"`
}
