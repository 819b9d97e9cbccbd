package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type CreateEventMessage struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (e CreateEventMessage) Type() string { return "event.create" }

// Validate will run validation rules
func (e CreateEventMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Category, validation.Required, validation.Length(1, 100)),
			validation.Field(&e.Description, validation.Length(0, 2000)),
		)
	}, "Invalid create event payload")
}

type CreateEventHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewCreateEventHandler creates a handler with sane defaults.
func NewCreateEventHandler(repo RepositoryManager) *CreateEventHandler {
	return &CreateEventHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *CreateEventHandler) WithAccessGate(gate *AccessGate) *CreateEventHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *CreateEventHandler) WithLogger(logger Logger) *CreateEventHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateEventHandler) Execute(ctx context.Context, event CreateEventMessage) (*Event, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during event creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateEventHandler) execute(ctx context.Context, event CreateEventMessage) (*Event, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	record := &Event{
		Name:        event.Name,
		Category:    event.Category,
		Description: event.Description,
		IsActive:    event.IsActive,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Events().CreateTx(ctx, tx, record)
		if err != nil {
			return err
		}
		record = created

		newData, err := Snapshot(record)
		if err != nil {
			return err
		}

		_, err = h.repo.AuditLogs().AppendTx(ctx, tx, Entry{
			Action:     ActionEventCreated,
			Actor:      actor.Ref(),
			Collection: CollectionEvents,
			TargetID:   record.ID.String(),
			NewData:    newData,
		})
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "event creation transaction")
	}

	return record, nil
}
