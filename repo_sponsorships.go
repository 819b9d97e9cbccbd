package festadmin

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Conditional updates are written as raw SQL so the status precondition and
// the soft-delete filter stay in a single statement; this is the
// linearization point for concurrent transitions.
var DecideSponsorshipSQL = `UPDATE "sponsorships" AS "spn"
SET
	"status" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"spn"."deleted_at" IS NULL
AND (
	"spn"."id" = ?
)
AND (
	"spn"."status" = ?
) RETURNING *;`

var RetireSponsorshipSQL = `UPDATE "sponsorships" AS "spn"
SET
	"deleted_at" = CURRENT_TIMESTAMP,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"spn"."deleted_at" IS NULL
AND (
	"spn"."id" = ?
) RETURNING *;`

type Sponsorships interface {
	repository.Repository[*Sponsorship]

	Request(ctx context.Context, record *Sponsorship) (*Sponsorship, error)
	RequestTx(ctx context.Context, tx bun.IDB, record *Sponsorship) (*Sponsorship, error)

	// FindByIDTx includes retired rows so lifecycle guards can distinguish
	// a retired entity from a missing one.
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Sponsorship, error)

	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Sponsorship, error)
	UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to Status) (*Sponsorship, error)
	RetireCAS(ctx context.Context, id uuid.UUID) (*Sponsorship, error)
	RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Sponsorship, error)
}

type sponsorships struct {
	repository.Repository[*Sponsorship]
	db *bun.DB
}

var (
	_ Sponsorships              = (*sponsorships)(nil)
	_ StatusStore[*Sponsorship] = (*sponsorships)(nil)
)

func NewSponsorshipsRepository(db *bun.DB) Sponsorships {
	repo := repository.NewRepository[*Sponsorship](db, repository.ModelHandlers[*Sponsorship]{
		NewRecord: func() *Sponsorship { return &Sponsorship{} },
		GetID: func(s *Sponsorship) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Sponsorship, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sponsorships{
		Repository: repo,
		db:         db,
	}
}

func (a *sponsorships) Request(ctx context.Context, record *Sponsorship) (*Sponsorship, error) {
	return a.RequestTx(ctx, a.db, record)
}

func (a *sponsorships) RequestTx(ctx context.Context, tx bun.IDB, record *Sponsorship) (*Sponsorship, error) {
	prepareSponsorshipDefaults(record)
	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, TranslateStorageError(err, "create sponsorship request")
	}
	return created, nil
}

func (a *sponsorships) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Sponsorship, error) {
	return a.findWithDeleted(ctx, tx, id)
}

func (a *sponsorships) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Sponsorship, error) {
	return a.UpdateStatusCASTx(ctx, a.db, id, from, to)
}

func (a *sponsorships) UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to Status) (*Sponsorship, error) {
	res, err := a.Repository.RawTx(ctx, tx, DecideSponsorshipSQL, string(to), id.String(), string(from))
	if err != nil {
		return nil, TranslateStorageError(err, "decide sponsorship")
	}

	if len(res) == 0 {
		return nil, a.explainMissedUpdate(ctx, tx, id, from)
	}

	return res[0], nil
}

func (a *sponsorships) RetireCAS(ctx context.Context, id uuid.UUID) (*Sponsorship, error) {
	return a.RetireCASTx(ctx, a.db, id)
}

func (a *sponsorships) RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Sponsorship, error) {
	res, err := a.Repository.RawTx(ctx, tx, RetireSponsorshipSQL, id.String())
	if err != nil {
		return nil, TranslateStorageError(err, "retire sponsorship")
	}

	if len(res) == 0 {
		current, ferr := a.findWithDeleted(ctx, tx, id)
		if ferr != nil {
			return nil, ferr
		}
		if current.DeletedAt != nil {
			return nil, withMeta(ErrAlreadyDeleted, map[string]any{
				"collection": CollectionSponsorships,
				"id":         id.String(),
			})
		}
		return nil, withMeta(ErrStaleState, map[string]any{
			"collection": CollectionSponsorships,
			"id":         id.String(),
		})
	}

	return res[0], nil
}

// explainMissedUpdate turns a zero-row conditional update into the taxonomy
// error the caller can act on: gone, retired, or lost the race.
func (a *sponsorships) explainMissedUpdate(ctx context.Context, tx bun.IDB, id uuid.UUID, expected Status) error {
	current, err := a.findWithDeleted(ctx, tx, id)
	if err != nil {
		return err
	}

	if current.DeletedAt != nil {
		return withMeta(ErrEntityRetired, map[string]any{
			"collection": CollectionSponsorships,
			"id":         id.String(),
		})
	}

	return withMeta(ErrStaleState, map[string]any{
		"collection": CollectionSponsorships,
		"id":         id.String(),
		"expected":   expected,
		"actual":     current.Status,
	})
}

func (a *sponsorships) findWithDeleted(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Sponsorship, error) {
	record := &Sponsorship{}
	err := tx.NewSelect().
		Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, withMeta(ErrNotFound, map[string]any{
				"collection": CollectionSponsorships,
				"id":         id.String(),
			})
		}
		return nil, TranslateStorageError(err, "find sponsorship")
	}

	return record, nil
}

func prepareSponsorshipDefaults(record *Sponsorship) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
