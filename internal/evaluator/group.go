package evaluator

import (
	"context"
	"log/slog"
	"strings"

	"certgate/internal/directory"
	"certgate/internal/token"
	"certgate/pkg/requestcontext"
)

const (
	// GroupType is the expression type handled by the group evaluator.
	GroupType = "group"

	opEquals    = "="
	opNotEquals = "!="
)

// GroupEvaluator decides group-membership expressions. When the token embeds
// a group list that list is authoritative and no directory lookup happens;
// otherwise membership is resolved against the directory. Session evaluation
// always goes to the directory because sessions carry no embedded list.
type GroupEvaluator struct {
	dir    directory.Directory
	logger *slog.Logger
}

type GroupOption func(*GroupEvaluator)

func WithGroupLogger(logger *slog.Logger) GroupOption {
	return func(e *GroupEvaluator) {
		e.logger = logger
	}
}

func NewGroupEvaluator(dir directory.Directory, opts ...GroupOption) *GroupEvaluator {
	e := &GroupEvaluator{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *GroupEvaluator) Type() string {
	return GroupType
}

func (e *GroupEvaluator) Description() string {
	return "group membership evaluator"
}

func (e *GroupEvaluator) SupportedOperators() []string {
	return []string{opEquals, opNotEquals}
}

// EvaluateToken decides "group <op> <name>" for a presented token.
// Any failure to resolve the subject or its membership is a deny.
func (e *GroupEvaluator) EvaluateToken(ctx context.Context, tok token.AuthToken, typ, op, value string) bool {
	if typ != GroupType {
		return false
	}

	uid, ok := token.SubjectID(tok)
	if !ok {
		e.logger.WarnContext(ctx, "token carries no subject claim, denying")
		return false
	}
	group := stripQuotes(value)

	if embedded, ok := tok.GetStringList(token.ClaimGroups); ok {
		matched := false
		for _, entry := range embedded {
			if stripQuotes(entry) == group {
				matched = true
				break
			}
		}
		return applyOperator(op, matched)
	}

	matched, err := e.dir.IsMemberOf(ctx, uid, group)
	if err != nil {
		e.logger.WarnContext(ctx, "membership lookup failed, denying",
			"uid", uid,
			"group", group,
			"error", err,
		)
		return false
	}
	return applyOperator(op, matched)
}

// EvaluateSession decides "group <op> <name>" for the authenticated principal
// in ctx.
func (e *GroupEvaluator) EvaluateSession(ctx context.Context, typ, op, value string) bool {
	if typ != GroupType {
		return false
	}

	user := requestcontext.Principal(ctx)
	if user == nil {
		e.logger.WarnContext(ctx, "no principal on session, denying")
		return false
	}
	group := stripQuotes(value)

	matched, err := e.dir.IsMemberOf(ctx, user.ID, group)
	if err != nil {
		e.logger.WarnContext(ctx, "membership lookup failed, denying",
			"uid", user.ID,
			"group", group,
			"error", err,
		)
		return false
	}
	return applyOperator(op, matched)
}

// applyOperator maps a membership fact through the relational operator.
// Unknown operators never reach evaluators; the dispatcher rejects them.
func applyOperator(op string, matched bool) bool {
	if op == opNotEquals {
		return !matched
	}
	return matched
}

// stripQuotes removes one layer of surrounding double quotes, the form some
// issuers use for group names containing spaces.
func stripQuotes(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}
	return value
}
