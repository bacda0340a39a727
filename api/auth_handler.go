package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-admin-backend/admin"
	"github.com/rpupo63/portfolio-admin-backend/errs"
	"github.com/rpupo63/portfolio-admin-backend/services"
)

type authHandler struct {
	responder     Responder
	logger        zerolog.Logger
	authenticator services.Authenticator
	registry      *admin.Registry
}

func newAuthHandler(authenticator services.Authenticator, registry *admin.Registry) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:     NewResponder(logger),
		logger:        logger,
		authenticator: authenticator,
		registry:      registry,
	}
}

// login exchanges admin credentials for a session
// @Summary Admin sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} services.Session
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid credentials"
// @Router /auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("login", err))
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("email"))
			return
		}
		if req.Password == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("password"))
			return
		}

		session, err := h.authenticator.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("userID", session.UserID).Msg("admin signed in")
		h.responder.WriteJSON(w, session)
	}
}

// logout ends the Supabase session and discards the admin's workspace.
func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := ctxGetUserID(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.Unauthorized)
			return
		}
		token, _ := ctxGetAccessToken(r.Context())

		if err := h.authenticator.SignOut(r.Context(), token); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.registry.Drop(userID)

		h.logger.Info().Str("userID", userID).Msg("admin signed out")
		w.WriteHeader(http.StatusNoContent)
	}
}
