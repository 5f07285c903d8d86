// Package handler exposes access expression evaluation over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "certgate/pkg/domain-errors"
	"certgate/pkg/platform/httputil"
	"certgate/pkg/platform/middleware/auth"
	"certgate/pkg/requestcontext"

	"certgate/internal/evaluator"
	"certgate/internal/token"
)

// Service defines the interface for expression evaluation.
type Service interface {
	EvaluateToken(ctx context.Context, tok token.AuthToken, typ, op, value string) (bool, error)
	Descriptors() []evaluator.Descriptor
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

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authz/evaluators", h.HandleEvaluators)
	r.Post("/authz/evaluate", h.HandleEvaluate)
}

type evaluateRequest struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type evaluateResponse struct {
	Allowed bool `json:"allowed"`
}

// HandleEvaluators handles GET /authz/evaluators.
func (h *Handler) HandleEvaluators(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]evaluator.Descriptor{
		"evaluators": h.service.Descriptors(),
	})
}

// HandleEvaluate handles POST /authz/evaluate. The expression is decided
// against the caller's own verified token claims.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claims, ok := auth.GetClaims(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[evaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	allowed, err := h.service.EvaluateToken(ctx, claims, req.Type, req.Operator, req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "evaluation rejected",
			"request_id", requestID,
			"type", req.Type,
			"operator", req.Operator,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "expression evaluated",
		"request_id", requestID,
		"type", req.Type,
		"operator", req.Operator,
		"allowed", allowed,
	)
	httputil.WriteJSON(w, http.StatusOK, evaluateResponse{Allowed: allowed})
}
