package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RetireSponsorshipMessage struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

func (e RetireSponsorshipMessage) Type() string { return "sponsorship.retire" }

// Validate will run validation rules
func (e RetireSponsorshipMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.ID, validation.Required, is.UUID),
		)
	}, "Invalid retire sponsorship payload")
}

type RetireSponsorshipHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewRetireSponsorshipHandler creates a handler with sane defaults.
func NewRetireSponsorshipHandler(repo RepositoryManager) *RetireSponsorshipHandler {
	return &RetireSponsorshipHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *RetireSponsorshipHandler) WithAccessGate(gate *AccessGate) *RetireSponsorshipHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RetireSponsorshipHandler) WithLogger(logger Logger) *RetireSponsorshipHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RetireSponsorshipHandler) Execute(ctx context.Context, event RetireSponsorshipMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sponsorship retirement",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RetireSponsorshipHandler) execute(ctx context.Context, event RetireSponsorshipMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sponsorship id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Sponsorships().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		machine := NewLifecycleMachine(
			sponsorshipTxStore{repo: h.repo.Sponsorships(), tx: tx},
			SponsorshipTransitions(),
			WithMachineRecorder[*Sponsorship](txRecorder(h.repo.AuditLogs(), tx)),
			WithMachineLogger[*Sponsorship](h.logger),
		)

		opts := []TransitionOption{}
		if event.Reason != "" {
			opts = append(opts, WithTransitionReason(event.Reason))
		}

		_, err = machine.Retire(ctx, actor.Ref(), current, opts...)
		return err
	})

	if err != nil {
		return TranslateStorageError(err, "sponsorship retirement transaction")
	}

	return nil
}
