package festadmin_test

import (
	"context"
	"database/sql"

	festadmin "github.com/goliatone/go-festadmin"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements festadmin.RepositoryManager. RunInTx runs
// the closure against a zero transaction handle so command flows can be
// driven entirely through repository mocks.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Admins() festadmin.Admins {
	args := m.Called()
	return args.Get(0).(festadmin.Admins)
}

func (m *MockRepositoryManager) Events() festadmin.Events {
	args := m.Called()
	return args.Get(0).(festadmin.Events)
}

func (m *MockRepositoryManager) Sponsorships() festadmin.Sponsorships {
	args := m.Called()
	return args.Get(0).(festadmin.Sponsorships)
}

func (m *MockRepositoryManager) AuditLogs() festadmin.AuditLogs {
	args := m.Called()
	return args.Get(0).(festadmin.AuditLogs)
}

// MockEvents instruments the methods commands exercise; the embedded
// interface satisfies the rest.
type MockEvents struct {
	mock.Mock
	festadmin.Events
}

func (m *MockEvents) CreateTx(ctx context.Context, tx bun.IDB, record *festadmin.Event, criteria ...repository.InsertCriteria) (*festadmin.Event, error) {
	args := m.Called(ctx, tx, record)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEvents) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*festadmin.Event, error) {
	args := m.Called(ctx, tx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEvents) UpdateDetailsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes festadmin.EventChanges) (*festadmin.Event, error) {
	args := m.Called(ctx, tx, id, changes)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEvents) RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*festadmin.Event, error) {
	args := m.Called(ctx, tx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSponsorships struct {
	mock.Mock
	festadmin.Sponsorships
}

func (m *MockSponsorships) RequestTx(ctx context.Context, tx bun.IDB, record *festadmin.Sponsorship) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, tx, record)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSponsorships) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, tx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSponsorships) UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to festadmin.Status) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, tx, id, from, to)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSponsorships) RetireCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, tx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAdmins struct {
	mock.Mock
	festadmin.Admins
}

func (m *MockAdmins) RegisterTx(ctx context.Context, tx bun.IDB, record *festadmin.Admin) (*festadmin.Admin, error) {
	args := m.Called(ctx, tx, record)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmins) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*festadmin.Admin, error) {
	args := m.Called(ctx, tx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmins) UpdateStatusCASTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to festadmin.Status) (*festadmin.Admin, error) {
	args := m.Called(ctx, tx, id, from, to)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAuditLogs struct {
	mock.Mock
	festadmin.AuditLogs
}

func (m *MockAuditLogs) AppendTx(ctx context.Context, tx bun.IDB, entry festadmin.Entry) (*festadmin.AuditLog, error) {
	args := m.Called(ctx, tx, entry)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSponsorshipStore implements festadmin.StatusStore[*festadmin.Sponsorship].
type MockSponsorshipStore struct {
	mock.Mock
}

func (m *MockSponsorshipStore) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to festadmin.Status) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, id, from, to)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSponsorshipStore) RetireCAS(ctx context.Context, id uuid.UUID) (*festadmin.Sponsorship, error) {
	args := m.Called(ctx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*festadmin.Sponsorship), args.Error(1)
	}
	return nil, args.Error(1)
}
