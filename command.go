package festadmin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// commandTimeout bounds every mutating transaction.
const commandTimeout = time.Second * 10

// sponsorshipTxStore binds the sponsorships repository to an open
// transaction so the lifecycle machine persists through it.
type sponsorshipTxStore struct {
	repo Sponsorships
	tx   bun.IDB
}

func (s sponsorshipTxStore) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Sponsorship, error) {
	return s.repo.UpdateStatusCASTx(ctx, s.tx, id, from, to)
}

func (s sponsorshipTxStore) RetireCAS(ctx context.Context, id uuid.UUID) (*Sponsorship, error) {
	return s.repo.RetireCASTx(ctx, s.tx, id)
}

// adminTxStore is the admins counterpart of sponsorshipTxStore.
type adminTxStore struct {
	repo Admins
	tx   bun.IDB
}

func (s adminTxStore) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (*Admin, error) {
	return s.repo.UpdateStatusCASTx(ctx, s.tx, id, from, to)
}

func (s adminTxStore) RetireCAS(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.repo.RetireCASTx(ctx, s.tx, id)
}

// txRecorder writes audit entries through the transaction that carries the
// mutation, so entry and mutation commit or roll back together.
func txRecorder(logs AuditLogs, tx bun.IDB) Recorder {
	return RecorderFunc(func(ctx context.Context, entry Entry) error {
		_, err := logs.AppendTx(ctx, tx, entry)
		return err
	})
}
