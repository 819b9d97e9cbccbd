package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateEventMessage struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (e UpdateEventMessage) Type() string { return "event.update" }

// Validate will run validation rules
func (e UpdateEventMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.ID, validation.Required, is.UUID),
			validation.Field(&e.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		)
	}, "Invalid update event payload")
}

type UpdateEventHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewUpdateEventHandler creates a handler with sane defaults.
func NewUpdateEventHandler(repo RepositoryManager) *UpdateEventHandler {
	return &UpdateEventHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *UpdateEventHandler) WithAccessGate(gate *AccessGate) *UpdateEventHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateEventHandler) WithLogger(logger Logger) *UpdateEventHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateEventHandler) Execute(ctx context.Context, event UpdateEventMessage) (*Event, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during event update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateEventHandler) execute(ctx context.Context, event UpdateEventMessage) (*Event, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid event id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var updated *Event

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Events().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if current.Retired() {
			return withMeta(ErrEntityRetired, map[string]any{
				"collection": CollectionEvents,
				"id":         id.String(),
			})
		}

		oldData, err := Snapshot(current)
		if err != nil {
			return err
		}

		updated, err = h.repo.Events().UpdateDetailsTx(ctx, tx, id, EventChanges{
			Name:        event.Name,
			Description: event.Description,
			IsActive:    event.IsActive,
		})
		if err != nil {
			return err
		}

		newData, err := Snapshot(updated)
		if err != nil {
			return err
		}

		_, err = h.repo.AuditLogs().AppendTx(ctx, tx, Entry{
			Action:     ActionEventUpdated,
			Actor:      actor.Ref(),
			Collection: CollectionEvents,
			TargetID:   id.String(),
			OldData:    oldData,
			NewData:    newData,
		})
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "event update transaction")
	}

	return updated, nil
}
