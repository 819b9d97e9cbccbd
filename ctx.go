package festadmin

import "context"

var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// ActorContext describes the authenticated principal executing an operation.
type ActorContext struct {
	ActorID        string `json:"actor_id"`
	Role           Role   `json:"role"`
	ApprovalStatus Status `json:"approval_status,omitempty"`
	Email          string `json:"email,omitempty"`
}

// Ref converts the actor context into audit attribution.
func (a *ActorContext) Ref() ActorRef {
	if a == nil {
		return ActorRef{Type: "system"}
	}
	return ActorRef{
		ID:   a.ActorID,
		Type: a.Role,
	}
}

// WithActor sets the ActorContext in the given context
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context.
func ActorFromContext(ctx context.Context) (*ActorContext, bool) {
	raw, ok := ctx.Value(actorCtxKey).(*ActorContext)
	return raw, ok
}
