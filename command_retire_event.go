package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RetireEventMessage struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

func (e RetireEventMessage) Type() string { return "event.retire" }

// Validate will run validation rules
func (e RetireEventMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.ID, validation.Required, is.UUID),
		)
	}, "Invalid retire event payload")
}

type RetireEventHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewRetireEventHandler creates a handler with sane defaults.
func NewRetireEventHandler(repo RepositoryManager) *RetireEventHandler {
	return &RetireEventHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *RetireEventHandler) WithAccessGate(gate *AccessGate) *RetireEventHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RetireEventHandler) WithLogger(logger Logger) *RetireEventHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RetireEventHandler) Execute(ctx context.Context, event RetireEventMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during event retirement",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RetireEventHandler) execute(ctx context.Context, event RetireEventMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid event id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Events().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if current.Retired() {
			return withMeta(ErrAlreadyDeleted, map[string]any{
				"collection": CollectionEvents,
				"id":         id.String(),
			})
		}

		oldData, err := Snapshot(current)
		if err != nil {
			return err
		}

		retired, err := h.repo.Events().RetireCASTx(ctx, tx, id)
		if err != nil {
			return err
		}

		newData, err := Snapshot(retired)
		if err != nil {
			return err
		}

		entry := Entry{
			Action:     ActionEventRetired,
			Actor:      actor.Ref(),
			Collection: CollectionEvents,
			TargetID:   id.String(),
			OldData:    oldData,
			NewData:    newData,
		}
		if event.Reason != "" {
			entry.Metadata = map[string]any{"reason": event.Reason}
		}

		_, err = h.repo.AuditLogs().AppendTx(ctx, tx, entry)
		return err
	})

	if err != nil {
		return TranslateStorageError(err, "event retirement transaction")
	}

	return nil
}
