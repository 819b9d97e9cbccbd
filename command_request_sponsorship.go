package festadmin

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequestSponsorshipMessage struct {
	EventID      string `json:"event_id"`
	SponsorName  string `json:"sponsor_name"`
	ContactEmail string `json:"contact_email"`
	Amount       int64  `json:"amount"`
	Notes        string `json:"notes,omitempty"`
}

func (e RequestSponsorshipMessage) Type() string { return "sponsorship.request" }

// Validate will run validation rules
func (e RequestSponsorshipMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.EventID, validation.Required, is.UUID),
			validation.Field(&e.SponsorName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.ContactEmail, validation.Required, is.Email),
			validation.Field(&e.Amount, validation.Min(0)),
			validation.Field(&e.Notes, validation.Length(0, 2000)),
		)
	}, "Invalid sponsorship request payload")
}

type RequestSponsorshipHandler struct {
	repo   RepositoryManager
	gate   *AccessGate
	logger Logger
}

// NewRequestSponsorshipHandler creates a handler with sane defaults.
func NewRequestSponsorshipHandler(repo RepositoryManager) *RequestSponsorshipHandler {
	return &RequestSponsorshipHandler{
		repo:   repo,
		gate:   NewAccessGate(),
		logger: defLogger{},
	}
}

// WithAccessGate overrides the gate consulted before the mutation.
func (h *RequestSponsorshipHandler) WithAccessGate(gate *AccessGate) *RequestSponsorshipHandler {
	if gate != nil {
		h.gate = gate
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestSponsorshipHandler) WithLogger(logger Logger) *RequestSponsorshipHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestSponsorshipHandler) Execute(ctx context.Context, event RequestSponsorshipMessage) (*Sponsorship, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sponsorship request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestSponsorshipHandler) execute(ctx context.Context, event RequestSponsorshipMessage) (*Sponsorship, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	// Sponsorship requests come from the public surface; any authenticated
	// caller may file one.
	actor, err := h.gate.RequireActor(ctx, RoleUser, event.Type())
	if err != nil {
		return nil, err
	}

	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid event id")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	record := &Sponsorship{
		EventID:      eventID,
		SponsorName:  event.SponsorName,
		ContactEmail: event.ContactEmail,
		Amount:       event.Amount,
		Notes:        event.Notes,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		parent, err := h.repo.Events().FindByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if parent.Retired() {
			return withMeta(ErrEntityRetired, map[string]any{
				"collection": CollectionEvents,
				"id":         eventID.String(),
			})
		}

		created, err := h.repo.Sponsorships().RequestTx(ctx, tx, record)
		if err != nil {
			return err
		}
		record = created

		newData, err := Snapshot(record)
		if err != nil {
			return err
		}

		_, err = h.repo.AuditLogs().AppendTx(ctx, tx, Entry{
			Action:     ActionSponsorshipRequested,
			Actor:      actor.Ref(),
			Collection: CollectionSponsorships,
			TargetID:   record.ID.String(),
			ParentID:   eventID.String(),
			NewData:    newData,
		})
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "sponsorship request transaction")
	}

	return record, nil
}
