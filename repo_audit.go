package festadmin

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultAuditPageSize bounds trail queries that omit a limit.
const DefaultAuditPageSize = 50

// AuditLogs is the append-only audit trail repository. It deliberately does
// not expose update or delete operations.
type AuditLogs interface {
	Recorder

	Append(ctx context.Context, entry Entry) (*AuditLog, error)
	AppendTx(ctx context.Context, tx bun.IDB, entry Entry) (*AuditLog, error)

	ListByTarget(ctx context.Context, targetID string, page, limit int) ([]*AuditLog, int, error)
	ListByActor(ctx context.Context, actorID string, page, limit int) ([]*AuditLog, int, error)
	ListByAction(ctx context.Context, action string, page, limit int) ([]*AuditLog, int, error)
}

type auditLogs struct {
	repo repository.Repository[*AuditLog]
	db   *bun.DB
}

var _ AuditLogs = (*auditLogs)(nil)
var _ Recorder = (*auditLogs)(nil)

// NewAuditLogsRepository wires the audit trail against the storage
// collaborator.
func NewAuditLogsRepository(db *bun.DB) AuditLogs {
	repo := repository.NewRepository[*AuditLog](db, repository.ModelHandlers[*AuditLog]{
		NewRecord: func() *AuditLog { return &AuditLog{} },
		GetID: func(r *AuditLog) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *AuditLog, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &auditLogs{
		repo: repo,
		db:   db,
	}
}

// Record implements Recorder so the repository can back a LifecycleMachine
// directly.
func (a *auditLogs) Record(ctx context.Context, entry Entry) error {
	_, err := a.Append(ctx, entry)
	return err
}

func (a *auditLogs) Append(ctx context.Context, entry Entry) (*AuditLog, error) {
	return a.AppendTx(ctx, a.db, entry)
}

func (a *auditLogs) AppendTx(ctx context.Context, tx bun.IDB, entry Entry) (*AuditLog, error) {
	record := logFromEntry(entry)
	created, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, TranslateStorageError(err, "append audit log")
	}
	return created, nil
}

func (a *auditLogs) ListByTarget(ctx context.Context, targetID string, page, limit int) ([]*AuditLog, int, error) {
	return a.list(ctx, "target_id", targetID, page, limit)
}

func (a *auditLogs) ListByActor(ctx context.Context, actorID string, page, limit int) ([]*AuditLog, int, error) {
	return a.list(ctx, "actor_id", actorID, page, limit)
}

func (a *auditLogs) ListByAction(ctx context.Context, action string, page, limit int) ([]*AuditLog, int, error) {
	return a.list(ctx, "action", action, page, limit)
}

// list returns entries in chronological order with a stable id tiebreaker so
// trails read as the sequence of mutations that actually happened.
func (a *auditLogs) list(ctx context.Context, column, value string, page, limit int) ([]*AuditLog, int, error) {
	if limit <= 0 {
		limit = DefaultAuditPageSize
	}
	if page < 1 {
		page = 1
	}

	var records []*AuditLog
	count, err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias."+column+" = ?", value).
		Order("created_at ASC", "id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, TranslateStorageError(err, "list audit trail")
	}

	return records, count, nil
}

// scrubSnapshot removes credential material before a snapshot is persisted.
// The trail records who changed what, never secrets.
func scrubSnapshot(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	if _, ok := data["password_hash"]; !ok {
		return data
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == "password_hash" {
			continue
		}
		out[k] = v
	}
	return out
}

func logFromEntry(entry Entry) *AuditLog {
	record := &AuditLog{
		ID:         uuid.New(),
		Action:     entry.Action,
		ActorID:    entry.Actor.ID,
		ActorType:  entry.Actor.Type,
		Collection: entry.Collection,
		TargetID:   entry.TargetID,
		ParentID:   entry.ParentID,
		OldData:    scrubSnapshot(entry.OldData),
		NewData:    scrubSnapshot(entry.NewData),
		Metadata:   entry.Metadata,
	}

	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	record.CreatedAt = &occurred

	return record
}
