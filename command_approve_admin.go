package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ApproveAdminMessage struct {
	ID string `json:"id"`
}

func (e ApproveAdminMessage) Type() string { return "admin.approve" }

// Validate will run validation rules
func (e ApproveAdminMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.ID, validation.Required, is.UUID),
		)
	}, "Invalid approve admin payload")
}

// ApproveAdminHandler promotes a pending account to active. Only an already
// active admin clears the gate, so the first account has to be activated
// out of band.
type ApproveAdminHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewApproveAdminHandler creates a handler with sane defaults.
func NewApproveAdminHandler(repo RepositoryManager) *ApproveAdminHandler {
	return &ApproveAdminHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *ApproveAdminHandler) WithAccessGate(gate *AccessGate) *ApproveAdminHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ApproveAdminHandler) WithLogger(logger Logger) *ApproveAdminHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ApproveAdminHandler) Execute(ctx context.Context, event ApproveAdminMessage) (*Admin, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during admin approval",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ApproveAdminHandler) execute(ctx context.Context, event ApproveAdminMessage) (*Admin, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid admin id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var approved *Admin

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Admins().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		machine := NewLifecycleMachine(
			adminTxStore{repo: h.repo.Admins(), tx: tx},
			AdminApprovalTransitions(),
			WithMachineRecorder[*Admin](txRecorder(h.repo.AuditLogs(), tx)),
			WithMachineLogger[*Admin](h.logger),
		)

		approved, err = machine.Transition(ctx, actor.Ref(), current, ApprovalActive,
			WithAuditAction(ActionAdminApproved))
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "admin approval transaction")
	}

	return approved, nil
}
