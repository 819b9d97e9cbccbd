package festadmin_test

import (
	"context"
	"testing"

	festadmin "github.com/goliatone/go-festadmin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterAdminHashesPasswordAndAudits(t *testing.T) {
	repo := &MockRepositoryManager{}
	admins := &MockAdmins{}
	audit := &MockAuditLogs{}

	repo.On("Admins").Return(admins)
	repo.On("AuditLogs").Return(audit)

	returned := &festadmin.Admin{
		ID:             uuid.New(),
		Role:           festadmin.RoleAdmin,
		ApprovalStatus: festadmin.ApprovalPending,
		Email:          "new.admin@fest.test",
	}
	admins.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(2).(*festadmin.Admin)
			returned.Username = in.Username
			returned.PasswordHash = in.PasswordHash
		}).
		Return(returned, nil).Once()

	audit.On("AppendTx", mock.Anything, mock.Anything, mock.MatchedBy(func(entry festadmin.Entry) bool {
		return entry.Action == festadmin.ActionAdminRegistered &&
			entry.Collection == festadmin.CollectionAdmins &&
			entry.Actor.ID == entry.TargetID
	})).Return(&festadmin.AuditLog{}, nil).Once()

	handler := festadmin.NewRegisterAdminHandler(repo).WithLogger(testLogger{})

	created, err := handler.Execute(context.Background(), festadmin.RegisterAdminMessage{
		Email:    "new.admin@fest.test",
		Password: "long-enough-password",
	})
	require.NoError(t, err)

	assert.Equal(t, "new.admin", created.Username, "username defaults to the email local part")
	assert.Equal(t, festadmin.ApprovalPending, created.ApprovalStatus, "registration never yields an active account")
	assert.NotEqual(t, "long-enough-password", created.PasswordHash)
	assert.NoError(t, festadmin.ComparePasswordAndHash("long-enough-password", created.PasswordHash))

	admins.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestRegisterAdminValidatesPayload(t *testing.T) {
	handler := festadmin.NewRegisterAdminHandler(&MockRepositoryManager{}).WithLogger(testLogger{})

	_, err := handler.Execute(context.Background(), festadmin.RegisterAdminMessage{
		Email:    "not-an-email",
		Password: "long-enough-password",
	})
	require.Error(t, err)

	_, err = handler.Execute(context.Background(), festadmin.RegisterAdminMessage{
		Email:    "new.admin@fest.test",
		Password: "short",
	})
	require.Error(t, err)
}
