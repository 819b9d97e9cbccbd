package festadmin

import "context"

// AccessGate decides whether an actor may trigger a mutating operation.
// Evaluation order is fixed: authentication validity, then role match, then
// approval status. The order matters for error fidelity: a caller with the
// wrong role must never be told "approval pending".
type AccessGate struct {
	logger Logger
}

// GateOption customizes gate construction.
type GateOption func(*AccessGate)

// WithGateLogger overrides the logger used for denied decisions.
func WithGateLogger(logger Logger) GateOption {
	return func(g *AccessGate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewAccessGate returns the default gate implementation.
func NewAccessGate(opts ...GateOption) *AccessGate {
	gate := &AccessGate{logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(gate)
		}
	}
	return gate
}

// Authorize evaluates the actor against the operation's required role. The
// decision is pure: no side effects beyond logging denials.
func (g *AccessGate) Authorize(ctx context.Context, actor *ActorContext, required Role, action string) error {
	if actor == nil || actor.ActorID == "" {
		return withMeta(ErrUnauthenticated, map[string]any{
			"action": action,
		})
	}

	if !IsValidRole(actor.Role) || !IsAtLeast(actor.Role, required) {
		g.logger.Info("access denied: role mismatch actor=%s action=%s", actor.ActorID, action)
		return withMeta(ErrForbidden, map[string]any{
			"actor_id": actor.ActorID,
			"action":   action,
		})
	}

	if required == RoleAdmin && actor.ApprovalStatus != ApprovalActive {
		g.logger.Info("access denied: approval pending actor=%s action=%s", actor.ActorID, action)
		return withMeta(ErrApprovalPending, map[string]any{
			"actor_id": actor.ActorID,
			"action":   action,
		})
	}

	return nil
}

// RequireActor extracts the actor from the context and authorizes it in one
// step; commands use this as their first statement.
func (g *AccessGate) RequireActor(ctx context.Context, required Role, action string) (*ActorContext, error) {
	actor, _ := ActorFromContext(ctx)
	if err := g.Authorize(ctx, actor, required, action); err != nil {
		return nil, err
	}
	return actor, nil
}
