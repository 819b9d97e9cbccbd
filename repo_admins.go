package festadmin

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var PromoteAdminSQL = `UPDATE "admins" AS "adm"
SET
	"approval_status" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"adm"."deleted_at" IS NULL
AND (
	"adm"."id" = ?
)
AND (
	"adm"."approval_status" = ?
) RETURNING *;`

var RetireAdminSQL = `UPDATE "admins" AS "adm"
SET
	"deleted_at" = CURRENT_TIMESTAMP,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"adm"."deleted_at" IS NULL
AND (
	"adm"."id" = ?
) RETURNING *;`

type Admins interface {
	repository.Repository[*Admin]

	Register(ctx context.Context, record *Admin) (*Admin, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Admin) (*Admin, error)

	// FindByIDTx includes retired rows so lifecycle guards can distinguish
	// a retired account from a missing one.
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Admin, error)

	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Admin, error)
	UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to Status) (*Admin, error)
	RetireCAS(ctx context.Context, id uuid.UUID) (*Admin, error)
	RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Admin, error)
}

type admins struct {
	repository.Repository[*Admin]
	db *bun.DB
}

var (
	_ Admins              = (*admins)(nil)
	_ StatusStore[*Admin] = (*admins)(nil)
)

func NewAdminsRepository(db *bun.DB) Admins {
	repo := repository.NewRepository[*Admin](db, repository.ModelHandlers[*Admin]{
		NewRecord: func() *Admin { return &Admin{} },
		GetID: func(a *Admin) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Admin, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &admins{
		Repository: repo,
		db:         db,
	}
}

func (a *admins) Register(ctx context.Context, record *Admin) (*Admin, error) {
	return a.RegisterTx(ctx, a.db, record)
}

// RegisterTx creates the account in the pending approval state; promotion is
// a separate transition performed by an already-active admin.
func (a *admins) RegisterTx(ctx context.Context, tx bun.IDB, record *Admin) (*Admin, error) {
	prepareAdminDefaults(record)
	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, TranslateStorageError(err, "register admin")
	}
	return created, nil
}

func (a *admins) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Admin, error) {
	return a.findWithDeleted(ctx, tx, id)
}

func (a *admins) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Admin, error) {
	return a.UpdateStatusCASTx(ctx, a.db, id, from, to)
}

func (a *admins) UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to Status) (*Admin, error) {
	res, err := a.Repository.RawTx(ctx, tx, PromoteAdminSQL, string(to), id.String(), string(from))
	if err != nil {
		return nil, TranslateStorageError(err, "update admin approval")
	}

	if len(res) == 0 {
		current, ferr := a.findWithDeleted(ctx, tx, id)
		if ferr != nil {
			return nil, ferr
		}
		if current.DeletedAt != nil {
			return nil, withMeta(ErrEntityRetired, map[string]any{
				"collection": CollectionAdmins,
				"id":         id.String(),
			})
		}
		return nil, withMeta(ErrStaleState, map[string]any{
			"collection": CollectionAdmins,
			"id":         id.String(),
			"expected":   from,
			"actual":     current.ApprovalStatus,
		})
	}

	return res[0], nil
}

func (a *admins) RetireCAS(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return a.RetireCASTx(ctx, a.db, id)
}

func (a *admins) RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Admin, error) {
	res, err := a.Repository.RawTx(ctx, tx, RetireAdminSQL, id.String())
	if err != nil {
		return nil, TranslateStorageError(err, "retire admin")
	}

	if len(res) == 0 {
		current, ferr := a.findWithDeleted(ctx, tx, id)
		if ferr != nil {
			return nil, ferr
		}
		if current.DeletedAt != nil {
			return nil, withMeta(ErrAlreadyDeleted, map[string]any{
				"collection": CollectionAdmins,
				"id":         id.String(),
			})
		}
		return nil, withMeta(ErrStaleState, map[string]any{
			"collection": CollectionAdmins,
			"id":         id.String(),
		})
	}

	return res[0], nil
}

func (a *admins) findWithDeleted(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Admin, error) {
	record := &Admin{}
	err := tx.NewSelect().
		Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, withMeta(ErrNotFound, map[string]any{
				"collection": CollectionAdmins,
				"id":         id.String(),
			})
		}
		return nil, TranslateStorageError(err, "find admin")
	}

	return record, nil
}

func prepareAdminDefaults(record *Admin) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleAdmin
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
