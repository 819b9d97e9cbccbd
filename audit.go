package festadmin

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Audit action names are part of the compliance contract; reporting tools
// depend on them staying stable.
const (
	ActionEventCreated         = "EVENT_CREATED"
	ActionEventUpdated         = "EVENT_UPDATED"
	ActionEventRetired         = "EVENT_RETIRED"
	ActionSponsorshipRequested = "SPONSORSHIP_REQUESTED"
	ActionSponsorshipApproved  = "SPONSORSHIP_APPROVED"
	ActionSponsorshipRejected  = "SPONSORSHIP_REJECTED"
	ActionSponsorshipRetired   = "SPONSORSHIP_RETIRED"
	ActionAdminRegistered      = "ADMIN_REGISTERED"
	ActionAdminApproved        = "ADMIN_APPROVED"
)

// ActorRef identifies who/what triggered a mutation.
type ActorRef struct {
	ID   string
	Type string
}

// Entry captures audit-grade information about a single mutation. Old and
// new snapshots are deep copies taken strictly before and after the change.
type Entry struct {
	Action     string
	Actor      ActorRef
	Collection string
	TargetID   string
	ParentID   string
	OldData    map[string]any
	NewData    map[string]any
	Metadata   map[string]any
	OccurredAt time.Time
}

// Recorder consumes audit entries. Implementations must treat entries as
// immutable facts: create exactly once, never update or delete.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, entry Entry) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, entry Entry) error {
	if f == nil {
		return nil
	}
	return f(ctx, entry)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, Entry) error {
	return nil
}

func normalizeRecorder(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

// Snapshot produces a deep, detached copy of an entity suitable for audit
// storage. The copy goes through JSON so later mutations of the live record
// cannot leak into a persisted entry.
func Snapshot(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to snapshot entity")
	}

	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to snapshot entity")
	}

	return out, nil
}
