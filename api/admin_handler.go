package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-admin-backend/admin"
	"github.com/rpupo63/portfolio-admin-backend/errs"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

// adminHandler maps each admin request onto the caller's workspace. Every
// mutating endpoint answers with the updated workspace view.
type adminHandler struct {
	responder      Responder
	logger         zerolog.Logger
	registry       *admin.Registry
	maxUploadBytes int64
}

func newAdminHandler(registry *admin.Registry, maxUploadBytes int64) adminHandler {
	logger := log.With().Str("handlerName", "adminHandler").Logger()

	return adminHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		registry:       registry,
		maxUploadBytes: maxUploadBytes,
	}
}

type submitResponse struct {
	Outcome   admin.Outcome `json:"outcome"`
	Workspace admin.View    `json:"workspace"`
}

type deleteResponse struct {
	DeletedID int64      `json:"deleted_id"`
	Workspace admin.View `json:"workspace"`
}

func (h adminHandler) workspace(r *http.Request) (*admin.Workspace, error) {
	userID, err := ctxGetUserID(r.Context())
	if err != nil {
		return nil, errs.Unauthorized
	}
	return h.registry.Get(userID), nil
}

// handle runs fn against the caller's workspace and writes the view.
func (h adminHandler) handle(fn func(w *admin.Workspace, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.workspace(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := fn(ws, r); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ws.View())
	}
}

// getWorkspace returns the caller's workspace, loading the list on first use
// @Summary Admin workspace
// @Tags Admin
// @Produce json
// @Success 200 {object} admin.View
// @Failure 401 {object} ErrorResponse
// @Router /admin/workspace [get]
func (h adminHandler) getWorkspace() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		// A failed first load is reported through list_error.
		if err := ws.EnsureLoaded(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("initial project load failed")
		}
		return nil
	})
}

func (h adminHandler) refreshProjects() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		return ws.List.Refresh(r.Context())
	})
}

func (h adminHandler) newDraft() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		return ws.Form.Reset()
	})
}

func (h adminHandler) editProject() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		projectID, err := projectIDParam(r)
		if err != nil {
			return err
		}
		found, err := ws.List.RequestEdit(projectID)
		if err != nil {
			return err
		}
		if !found {
			return errs.NewNotFound("project")
		}
		return nil
	})
}

func (h adminHandler) patchDraft() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		var patch admin.FieldPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			return errs.NewMalformedPayloadError("draft", err)
		}
		return ws.Form.SetFields(patch)
	})
}

func (h adminHandler) setMedia() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		field := admin.MediaField(chi.URLParam(r, "field"))
		var req mediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.NewMalformedPayloadError("media", err)
		}
		if req.Mode != "" {
			if err := ws.Form.SetMediaMode(field, storage.Mode(req.Mode)); err != nil {
				return err
			}
		}
		if req.URL != nil {
			return ws.Form.SetMediaURL(field, *req.URL)
		}
		return nil
	})
}

// selectFiles accepts multipart "files" parts. Gallery selections
// accumulate; main image and video keep the last file.
// @Summary Select media files
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param field path string true "main_image, sub_images or video"
// @Success 200 {object} admin.View
// @Failure 413 {object} ErrorResponse "Request Entity Too Large"
// @Router /admin/draft/media/{field}/files [post]
func (h adminHandler) selectFiles() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		field := admin.MediaField(chi.URLParam(r, "field"))
		if !field.Valid() {
			return errs.NewUnknownFieldError(string(field))
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return errs.NewMaxBodySizeExceededError(h.maxUploadBytes)
			}
			return errs.NewMalformedPayloadError("multipart", err)
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			return errs.NewMissingRequiredFieldError("files")
		}

		files := make([]storage.File, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return errs.NewMalformedPayloadError("multipart", err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return errs.NewMalformedPayloadError("multipart", err)
			}
			files = append(files, storage.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
		return ws.Form.SelectFiles(field, files...)
	})
}

func (h adminHandler) clearFiles() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		return ws.Form.ClearFiles(admin.MediaField(chi.URLParam(r, "field")))
	})
}

func (h adminHandler) addListItem() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		var req listItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.NewMalformedPayloadError("list item", err)
		}
		return ws.Form.AddListItem(admin.ListField(chi.URLParam(r, "list")), req.Value)
	})
}

func (h adminHandler) removeListItem() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			return errs.NewInvalidFieldError("index", "must be an integer")
		}
		return ws.Form.RemoveListItem(admin.ListField(chi.URLParam(r, "list")), index)
	})
}

// submitDraft uploads pending media and saves the draft
// @Summary Submit draft
// @Description Resolves media, inserts or updates the record, refreshes the list and resets the form
// @Tags Admin
// @Produce json
// @Success 200 {object} submitResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Missing name or company_name"
// @Failure 409 {object} ErrorResponse "Conflict - Submission in progress"
// @Failure 502 {object} ErrorResponse "Bad Gateway - Upload rejected"
// @Router /admin/draft/submit [post]
func (h adminHandler) submitDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.workspace(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		// Started uploads and the table write finish even if the client goes away.
		outcome, err := ws.Form.Submit(context.WithoutCancel(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		status := http.StatusOK
		if outcome.Op == "added" {
			status = http.StatusCreated
		}
		h.responder.WriteJSONStatus(w, status, submitResponse{Outcome: outcome, Workspace: ws.View()})
	}
}

func (h adminHandler) requestDelete() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		projectID, err := projectIDParam(r)
		if err != nil {
			return err
		}
		return ws.List.RequestDelete(projectID)
	})
}

func (h adminHandler) confirmDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.workspace(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		id, err := ws.Deletion.Confirm(context.WithoutCancel(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, deleteResponse{DeletedID: id, Workspace: ws.View()})
	}
}

func (h adminHandler) cancelDelete() http.HandlerFunc {
	return h.handle(func(ws *admin.Workspace, r *http.Request) error {
		return ws.Deletion.Cancel()
	})
}

func (h adminHandler) notifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.workspace(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, ws.Inbox.Drain())
	}
}
