package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DecideSponsorshipMessage struct {
	ID       string `json:"id"`
	Decision Status `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func (e DecideSponsorshipMessage) Type() string { return "sponsorship.decide" }

// Validate will run validation rules
func (e DecideSponsorshipMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.ID, validation.Required, is.UUID),
			validation.Field(&e.Decision, validation.Required, validation.In(SponsorshipApproved, SponsorshipRejected)),
		)
	}, "Invalid decide sponsorship payload")
}

// DecideSponsorshipHandler settles a pending sponsorship. The decision runs
// through the lifecycle machine so the transition graph, the compare-and-swap
// write, and the audit entry all apply inside one transaction.
type DecideSponsorshipHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewDecideSponsorshipHandler creates a handler with sane defaults.
func NewDecideSponsorshipHandler(repo RepositoryManager) *DecideSponsorshipHandler {
	return &DecideSponsorshipHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *DecideSponsorshipHandler) WithAccessGate(gate *AccessGate) *DecideSponsorshipHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *DecideSponsorshipHandler) WithLogger(logger Logger) *DecideSponsorshipHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DecideSponsorshipHandler) Execute(ctx context.Context, event DecideSponsorshipMessage) (*Sponsorship, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sponsorship decision",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DecideSponsorshipHandler) execute(ctx context.Context, event DecideSponsorshipMessage) (*Sponsorship, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.gate.RequireActor(ctx, RoleAdmin, event.Type())
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sponsorship id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var decided *Sponsorship

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

		decided, err = machine.Transition(ctx, actor.Ref(), current, event.Decision, opts...)
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "sponsorship decision transaction")
	}

	return decided, nil
}
