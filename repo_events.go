package festadmin

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UniquenessPolicy decides which records participate in the (name, category)
// uniqueness check for events.
type UniquenessPolicy string

const (
	// UniquenessLive scopes the constraint to non-deleted records, so a
	// retired name can be recreated under the same category. Default.
	UniquenessLive UniquenessPolicy = "live"
	// UniquenessGlobal extends the constraint to retired records too; a name
	// is burned forever once used.
	UniquenessGlobal UniquenessPolicy = "global"
)

var RetireEventSQL = `UPDATE "events" AS "evt"
SET
	"deleted_at" = CURRENT_TIMESTAMP,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"evt"."deleted_at" IS NULL
AND (
	"evt"."id" = ?
) RETURNING *;`

// EventChanges carries the mutable fields of an update; nil members are
// left untouched.
type EventChanges struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (c EventChanges) empty() bool {
	return c.Name == nil && c.Description == nil && c.IsActive == nil
}

type Events interface {
	repository.Repository[*Event]

	Create(ctx context.Context, record *Event, criteria ...repository.InsertCriteria) (*Event, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Event, criteria ...repository.InsertCriteria) (*Event, error)

	// FindByIDTx includes retired rows so callers can distinguish a retired
	// event from a missing one.
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Event, error)

	UpdateDetails(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error)
	UpdateDetailsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes EventChanges) (*Event, error)

	RetireCAS(ctx context.Context, id uuid.UUID) (*Event, error)
	RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Event, error)

	FindLive(ctx context.Context, name, category string) (*Event, error)
}

type events struct {
	repository.Repository[*Event]
	db     *bun.DB
	policy UniquenessPolicy
}

var _ Events = (*events)(nil)

type EventsOption func(*events)

// WithUniquenessPolicy picks the uniqueness scope explicitly. The two
// policies have different re-creation ergonomics, so this is a deliberate
// choice rather than a driver accident.
func WithUniquenessPolicy(policy UniquenessPolicy) EventsOption {
	return func(e *events) {
		if policy == UniquenessLive || policy == UniquenessGlobal {
			e.policy = policy
		}
	}
}

func NewEventsRepository(db *bun.DB, opts ...EventsOption) Events {
	repo := repository.NewRepository[*Event](db, repository.ModelHandlers[*Event]{
		NewRecord: func() *Event { return &Event{} },
		GetID: func(e *Event) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *Event, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})

	repoEvents := &events{
		Repository: repo,
		db:         db,
		policy:     UniquenessLive,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoEvents)
		}
	}

	return repoEvents
}

func (a *events) Create(ctx context.Context, record *Event, criteria ...repository.InsertCriteria) (*Event, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *events) CreateTx(ctx context.Context, tx bun.IDB, record *Event, criteria ...repository.InsertCriteria) (*Event, error) {
	prepareEventDefaults(record)

	// Pre-check for error quality; the storage unique index remains the
	// correctness backstop under concurrent creation.
	if err := a.checkAndReserve(ctx, tx, record.Name, record.Category, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, TranslateStorageError(err, "create event")
	}
	return created, nil
}

func (a *events) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Event, error) {
	record := &Event{}
	err := tx.NewSelect().
		Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, withMeta(ErrNotFound, map[string]any{
				"collection": CollectionEvents,
				"id":         id.String(),
			})
		}
		return nil, TranslateStorageError(err, "find event")
	}

	return record, nil
}

func (a *events) UpdateDetails(ctx context.Context, id uuid.UUID, changes EventChanges) (*Event, error) {
	return a.UpdateDetailsTx(ctx, a.db, id, changes)
}

func (a *events) UpdateDetailsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes EventChanges) (*Event, error) {
	current, err := a.findLiveByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if changes.empty() {
		return current, nil
	}

	columns := []string{"updated_at"}
	if changes.Name != nil {
		if *changes.Name != current.Name {
			if err := a.checkAndReserve(ctx, tx, *changes.Name, current.Category, id); err != nil {
				return nil, err
			}
		}
		current.Name = *changes.Name
		columns = append(columns, "name")
	}
	if changes.Description != nil {
		current.Description = *changes.Description
		columns = append(columns, "description")
	}
	if changes.IsActive != nil {
		current.IsActive = *changes.IsActive
		columns = append(columns, "is_active")
	}

	res, err := tx.NewUpdate().
		Model(current).
		Column(columns...).
		Where("?TableAlias.id = ?", id.String()).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, TranslateStorageError(err, "update event")
	}

	if rows, rerr := res.RowsAffected(); rerr == nil && rows == 0 {
		return nil, withMeta(ErrStaleState, map[string]any{
			"collection": CollectionEvents,
			"id":         id.String(),
		})
	}

	return current, nil
}

func (a *events) RetireCAS(ctx context.Context, id uuid.UUID) (*Event, error) {
	return a.RetireCASTx(ctx, a.db, id)
}

func (a *events) RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Event, error) {
	res, err := a.Repository.RawTx(ctx, tx, RetireEventSQL, id.String())
	if err != nil {
		return nil, TranslateStorageError(err, "retire event")
	}

	if len(res) == 0 {
		current := &Event{}
		err := tx.NewSelect().
			Model(current).
			WhereAllWithDeleted().
			Where("?TableAlias.id = ?", id.String()).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
				return nil, withMeta(ErrNotFound, map[string]any{
					"collection": CollectionEvents,
					"id":         id.String(),
				})
			}
			return nil, TranslateStorageError(err, "find event")
		}

		if current.DeletedAt != nil {
			return nil, withMeta(ErrAlreadyDeleted, map[string]any{
				"collection": CollectionEvents,
				"id":         id.String(),
			})
		}

		return nil, withMeta(ErrStaleState, map[string]any{
			"collection": CollectionEvents,
			"id":         id.String(),
		})
	}

	return res[0], nil
}

func (a *events) FindLive(ctx context.Context, name, category string) (*Event, error) {
	record := &Event{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.category = ?", category).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, withMeta(ErrNotFound, map[string]any{
				"collection": CollectionEvents,
				"name":       name,
				"category":   category,
			})
		}
		return nil, TranslateStorageError(err, "find event")
	}

	return record, nil
}

// checkAndReserve verifies the composite key is free under the configured
// policy. Soft-deleted rows are invisible to the default select, so the
// live policy comes for free; the global policy opts back in.
func (a *events) checkAndReserve(ctx context.Context, tx bun.IDB, name, category string, excludeID uuid.UUID) error {
	q := tx.NewSelect().
		Model((*Event)(nil)).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.category = ?", category)

	if a.policy == UniquenessGlobal {
		q = q.WhereAllWithDeleted()
	}

	if excludeID != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excludeID.String())
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return TranslateStorageError(err, "check event uniqueness")
	}

	if exists {
		return withMeta(ErrDuplicateKey, map[string]any{
			"collection": CollectionEvents,
			"name":       name,
			"category":   category,
			"policy":     string(a.policy),
		})
	}

	return nil
}

func (a *events) findLiveByID(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Event, error) {
	record := &Event{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, withMeta(ErrNotFound, map[string]any{
				"collection": CollectionEvents,
				"id":         id.String(),
			})
		}
		return nil, TranslateStorageError(err, "find event")
	}

	return record, nil
}

func prepareEventDefaults(record *Event) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
