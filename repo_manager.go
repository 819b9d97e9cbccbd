package festadmin

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Admins() Admins
	Events() Events
	Sponsorships() Sponsorships
	AuditLogs() AuditLogs
}

type mngr struct {
	db           *bun.DB
	admins       Admins
	events       Events
	sponsorships Sponsorships
	auditLogs    AuditLogs
}

// ManagerOption customizes manager construction.
type ManagerOption func(*mngr)

// WithManagerUniquenessPolicy forwards the uniqueness scope to the events
// repository.
func WithManagerUniquenessPolicy(policy UniquenessPolicy) ManagerOption {
	return func(m *mngr) {
		m.events = NewEventsRepository(m.db, WithUniquenessPolicy(policy))
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:           db,
		admins:       NewAdminsRepository(db),
		events:       NewEventsRepository(db),
		sponsorships: NewSponsorshipsRepository(db),
		auditLogs:    NewAuditLogsRepository(db),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m mngr) Validate() error {
	if m.admins == nil {
		return errors.New("repository admins should be initialized")
	}

	if m.events == nil {
		return errors.New("repository events should be initialized")
	}

	if m.sponsorships == nil {
		return errors.New("repository sponsorships should be initialized")
	}

	if m.auditLogs == nil {
		return errors.New("repository auditLogs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Admins() Admins {
	return m.admins
}

func (m mngr) Events() Events {
	return m.events
}

func (m mngr) Sponsorships() Sponsorships {
	return m.sponsorships
}

func (m mngr) AuditLogs() AuditLogs {
	return m.auditLogs
}
