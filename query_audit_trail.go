package festadmin

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type AuditTrailQuery struct {
	TargetID string `json:"target_id,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`
	Action   string `json:"action,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (q AuditTrailQuery) Type() string { return "audit.trail" }

// Validate will run validation rules; exactly one filter dimension is
// required.
func (q AuditTrailQuery) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		if err := validation.ValidateStruct(&q,
			validation.Field(&q.Page, validation.Min(0)),
			validation.Field(&q.Limit, validation.Min(0), validation.Max(DefaultAuditPageSize*10)),
		); err != nil {
			return err
		}

		filters := 0
		for _, f := range []string{q.TargetID, q.ActorID, q.Action} {
			if f != "" {
				filters++
			}
		}
		if filters != 1 {
			return validation.Errors{
				"filter": errors.New("exactly one of target_id, actor_id or action is required"),
			}
		}
		return nil
	}, "Invalid audit trail query")
}

// AuditTrailResult is one page of the trail plus the total match count.
type AuditTrailResult struct {
	Entries []*AuditLog `json:"entries"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

type AuditTrailHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewAuditTrailHandler creates a handler with sane defaults.
func NewAuditTrailHandler(repo RepositoryManager) *AuditTrailHandler {
	return &AuditTrailHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the read.
func (h *AuditTrailHandler) WithAccessGate(gate *AccessGate) *AuditTrailHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *AuditTrailHandler) WithLogger(logger Logger) *AuditTrailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AuditTrailHandler) Execute(ctx context.Context, query AuditTrailQuery) (*AuditTrailResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during audit trail query",
		)
	default:
		return h.execute(ctx, query)
	}
}

func (h *AuditTrailHandler) execute(ctx context.Context, query AuditTrailQuery) (*AuditTrailResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.gate.RequireActor(ctx, RoleAdmin, query.Type()); err != nil {
		return nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = DefaultAuditPageSize
	}

	var (
		entries []*AuditLog
		total   int
		err     error
	)

	switch {
	case query.TargetID != "":
		entries, total, err = h.repo.AuditLogs().ListByTarget(ctx, query.TargetID, page, limit)
	case query.ActorID != "":
		entries, total, err = h.repo.AuditLogs().ListByActor(ctx, query.ActorID, page, limit)
	default:
		entries, total, err = h.repo.AuditLogs().ListByAction(ctx, query.Action, page, limit)
	}

	if err != nil {
		return nil, err
	}

	return &AuditTrailResult{
		Entries: entries,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}
