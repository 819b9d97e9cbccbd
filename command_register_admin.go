package festadmin

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterAdminMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (e RegisterAdminMessage) Type() string { return "admin.register" }

// Validate will run validation rules
func (e RegisterAdminMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.FirstName, validation.Length(0, 200)),
			validation.Field(&e.LastName, validation.Length(0, 200)),
			validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
		)
	}, "Invalid register admin payload")
}

// RegisterAdminHandler creates a pending admin account. Registration is not
// gated: the account starts without privileges and stays inert until an
// active admin approves it.
type RegisterAdminHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewRegisterAdminHandler creates a handler with sane defaults.
func NewRegisterAdminHandler(repo RepositoryManager) *RegisterAdminHandler {
	return &RegisterAdminHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAdminHandler) WithLogger(logger Logger) *RegisterAdminHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAdminHandler) Execute(ctx context.Context, event RegisterAdminMessage) (*Admin, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during admin registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAdminHandler) execute(ctx context.Context, event RegisterAdminMessage) (*Admin, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	record := &Admin{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record.PasswordHash = hash
		record.Email = event.Email
		record.FirstName = event.FirstName
		record.LastName = event.LastName
		record.Username = getUsername(event.Username, event.Email)

		if record, err = h.repo.Admins().RegisterTx(ctx, tx, record); err != nil {
			return err
		}

		newData, err := Snapshot(record)
		if err != nil {
			return err
		}

		// Self-registration: the new account is its own actor in the trail.
		_, err = h.repo.AuditLogs().AppendTx(ctx, tx, Entry{
			Action:     ActionAdminRegistered,
			Actor:      ActorRef{ID: record.ID.String(), Type: record.Role},
			Collection: CollectionAdmins,
			TargetID:   record.ID.String(),
			NewData:    newData,
		})
		return err
	})

	if err != nil {
		return nil, TranslateStorageError(err, "admin registration transaction")
	}

	return record, nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
