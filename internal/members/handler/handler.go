// Package handler wires group membership endpoints to the members service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"certgate/pkg/platform/httputil"
	"certgate/pkg/requestcontext"

	"certgate/internal/members/models"
)

// Service defines the interface for membership operations.
type Service interface {
	ListMembers(ctx context.Context, groupID, filter string, start, size int) (*models.Page, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	AddMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
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

// Register mounts membership endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/groups/{groupID}/members", h.HandleList)
	r.Post("/groups/{groupID}/members", h.HandleAdd)
	r.Get("/groups/{groupID}/members/{memberID}", h.HandleGet)
	r.Delete("/groups/{groupID}/members/{memberID}", h.HandleRemove)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

// HandleList handles GET /groups/{groupID}/members.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := pathParam(r, "groupID")

	query := r.URL.Query()
	start, _ := strconv.Atoi(query.Get("start"))
	size, _ := strconv.Atoi(query.Get("size"))

	page, err := h.service.ListMembers(ctx, groupID, query.Get("filter"), start, size)
	if err != nil {
		h.logger.ErrorContext(ctx, "member listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"group", groupID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleGet handles GET /groups/{groupID}/members/{memberID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := pathParam(r, "groupID")

	member, err := h.service.GetMember(ctx, groupID, pathParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

// HandleAdd handles POST /groups/{groupID}/members.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	groupID := pathParam(r, "groupID")

	req, ok := httputil.DecodeAndPrepare[addMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	member, err := h.service.AddMember(ctx, groupID, req.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "member addition rejected",
			"request_id", requestID,
			"group", groupID,
			"uid", req.UserID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

// HandleRemove handles DELETE /groups/{groupID}/members/{memberID}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := pathParam(r, "groupID")

	if err := h.service.RemoveMember(ctx, groupID, pathParam(r, "memberID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathParam returns a decoded path segment. Group names may contain spaces,
// which arrive percent-encoded.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
