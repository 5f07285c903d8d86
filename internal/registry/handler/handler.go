// Package handler exposes the plugin registry over the admin API.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "certgate/pkg/domain-errors"
	"certgate/pkg/platform/httputil"
	"certgate/pkg/requestcontext"

	"certgate/internal/registry/models"
)

// Service defines the interface for registry operations.
type Service interface {
	TypeNames() []string
	IDs(typ string) ([]string, bool)
	PluginInfo(typ, id string) (*models.PluginInfo, bool)
	AddPluginInfo(ctx context.Context, typ, id string, info *models.PluginInfo, persist bool)
	RemovePluginInfo(ctx context.Context, typ, id string)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/types", h.HandleTypes)
	r.Get("/registry/types/{type}", h.HandleIDs)
	r.Get("/registry/types/{type}/{id}", h.HandleGet)
	r.Put("/registry/types/{type}/{id}", h.HandlePut)
	r.Delete("/registry/types/{type}/{id}", h.HandleDelete)
}

type pluginResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ClassName   string `json:"class_name"`
}

// HandleTypes handles GET /registry/types.
func (h *Handler) HandleTypes(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{
		"types": h.service.TypeNames(),
	})
}

// HandleIDs handles GET /registry/types/{type}.
func (h *Handler) HandleIDs(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	ids, ok := h.service.IDs(typ)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown registry type "+typ))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// HandleGet handles GET /registry/types/{type}/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	info, ok := h.service.PluginInfo(typ, id)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no plugin "+id+" under type "+typ))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pluginResponse{
		Name:        info.Name,
		Description: info.Description,
		ClassName:   info.ClassName,
	})
}

// HandlePut handles PUT /registry/types/{type}/{id}. Registrations through
// the API are always persisted.
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	typ := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[pluginResponse](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.ClassName == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "class_name must not be empty"))
		return
	}

	h.service.AddPluginInfo(ctx, typ, id, &models.PluginInfo{
		Name:        req.Name,
		Description: req.Description,
		ClassName:   req.ClassName,
	}, true)

	h.logger.InfoContext(ctx, "registered plugin descriptor",
		"request_id", requestID,
		"type", typ,
		"id", id,
	)
	httputil.WriteJSON(w, http.StatusCreated, req)
}

// HandleDelete handles DELETE /registry/types/{type}/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.service.RemovePluginInfo(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
