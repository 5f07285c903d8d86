// Package evaluator decides access expressions of the form
// "<type> <operator> <value>" against a presented token or an established
// session. Concrete evaluators register by type; the dispatcher owns operator
// validation so individual evaluators only see expressions they support.
package evaluator

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "certgate/pkg/domain-errors"

	"certgate/internal/token"
)

// AccessEvaluator decides one expression type. Implementations must treat a
// type mismatch and any resolution failure as a deny, never an error.
type AccessEvaluator interface {
	// Type is the expression type this evaluator handles, e.g. "group".
	Type() string
	// Description is a human-readable summary for listings.
	Description() string
	// SupportedOperators lists the relational operators this evaluator
	// accepts.
	SupportedOperators() []string
	// EvaluateToken decides the expression against a presented token.
	EvaluateToken(ctx context.Context, tok token.AuthToken, typ, op, value string) bool
	// EvaluateSession decides the expression against the authenticated
	// principal carried in ctx.
	EvaluateSession(ctx context.Context, typ, op, value string) bool
}

// Registry is the evaluator dispatch table.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]AccessEvaluator
	tracer     trace.Tracer
	logger     *slog.Logger
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		evaluators: make(map[string]AccessEvaluator),
		tracer:     otel.Tracer("certgate/evaluator"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the evaluator for its type.
func (r *Registry) Register(e AccessEvaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[e.Type()] = e
}

// Get returns the evaluator registered for a type.
func (r *Registry) Get(typ string) (AccessEvaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[typ]
	return e, ok
}

// Descriptor summarizes one registered evaluator for listings.
type Descriptor struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Operators   []string `json:"operators"`
}

// Descriptors returns a listing snapshot of all registered evaluators.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptors := make([]Descriptor, 0, len(r.evaluators))
	for _, e := range r.evaluators {
		descriptors = append(descriptors, Descriptor{
			Type:        e.Type(),
			Description: e.Description(),
			Operators:   e.SupportedOperators(),
		})
	}
	return descriptors
}

// Types returns a snapshot of registered evaluator types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.evaluators))
	for typ := range r.evaluators {
		types = append(types, typ)
	}
	return types
}

// EvaluateToken dispatches an expression against a token. An unknown type or
// an operator the evaluator does not support is a caller error, reported as
// such rather than silently denied.
func (r *Registry) EvaluateToken(ctx context.Context, tok token.AuthToken, typ, op, value string) (bool, error) {
	e, err := r.resolve(typ, op)
	if err != nil {
		return false, err
	}

	ctx, span := r.startSpan(ctx, "evaluate_token", typ, op)
	defer span.End()

	return e.EvaluateToken(ctx, tok, typ, op, value), nil
}

// EvaluateSession dispatches an expression against the session principal.
func (r *Registry) EvaluateSession(ctx context.Context, typ, op, value string) (bool, error) {
	e, err := r.resolve(typ, op)
	if err != nil {
		return false, err
	}

	ctx, span := r.startSpan(ctx, "evaluate_session", typ, op)
	defer span.End()

	return e.EvaluateSession(ctx, typ, op, value), nil
}

func (r *Registry) resolve(typ, op string) (AccessEvaluator, error) {
	e, ok := r.Get(typ)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown evaluator type "+typ)
	}
	if !slices.Contains(e.SupportedOperators(), op) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "operator "+op+" not supported by evaluator "+typ)
	}
	return e, nil
}

func (r *Registry) startSpan(ctx context.Context, name, typ, op string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "evaluator."+name, trace.WithAttributes(
		attribute.String("evaluator.type", typ),
		attribute.String("evaluator.operator", op),
	))
}
