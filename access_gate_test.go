package festadmin_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	festadmin "github.com/goliatone/go-festadmin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeRequiresActor(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	err := gate.Authorize(context.Background(), nil, festadmin.RoleAdmin, "event.create")
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrUnauthenticated))

	err = gate.Authorize(context.Background(), &festadmin.ActorContext{}, festadmin.RoleAdmin, "event.create")
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrUnauthenticated))
}

func TestAuthorizeRoleCheckedBeforeApproval(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	// Wrong role and pending approval at the same time: the caller must see
	// the role denial, never the approval workflow.
	actor := &festadmin.ActorContext{
		ActorID:        "user-1",
		Role:           festadmin.RoleUser,
		ApprovalStatus: festadmin.ApprovalPending,
	}

	err := gate.Authorize(context.Background(), actor, festadmin.RoleAdmin, "event.create")
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrForbidden))
	assert.False(t, errors.Is(err, festadmin.ErrApprovalPending))
}

func TestAuthorizePendingAdminIsDenied(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	actor := &festadmin.ActorContext{
		ActorID:        "admin-1",
		Role:           festadmin.RoleAdmin,
		ApprovalStatus: festadmin.ApprovalPending,
	}

	err := gate.Authorize(context.Background(), actor, festadmin.RoleAdmin, "sponsorship.decide")
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrApprovalPending))
}

func TestAuthorizeActiveAdminPasses(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	actor := &festadmin.ActorContext{
		ActorID:        "admin-1",
		Role:           festadmin.RoleAdmin,
		ApprovalStatus: festadmin.ApprovalActive,
	}

	require.NoError(t, gate.Authorize(context.Background(), actor, festadmin.RoleAdmin, "sponsorship.decide"))
}

func TestAuthorizeApprovalOnlyGatesAdminOperations(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	// A pending admin can still perform user-level operations; approval only
	// guards admin-required ones.
	actor := &festadmin.ActorContext{
		ActorID:        "admin-1",
		Role:           festadmin.RoleAdmin,
		ApprovalStatus: festadmin.ApprovalPending,
	}

	require.NoError(t, gate.Authorize(context.Background(), actor, festadmin.RoleUser, "sponsorship.request"))
}

func TestRequireActorReadsContext(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	_, err := gate.RequireActor(context.Background(), festadmin.RoleUser, "sponsorship.request")
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrUnauthenticated))

	ctx := festadmin.WithActor(context.Background(), &festadmin.ActorContext{
		ActorID: "user-1",
		Role:    festadmin.RoleUser,
	})

	actor, err := gate.RequireActor(ctx, festadmin.RoleUser, "sponsorship.request")
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ActorID)
}

func TestAuthorizeDenialsDoNotShareState(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	deny := func(id string) *goerrors.Error {
		actor := &festadmin.ActorContext{ActorID: id, Role: festadmin.RoleUser}
		err := gate.Authorize(context.Background(), actor, festadmin.RoleAdmin, "event.create")
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		return richErr
	}

	errA := deny("actor-A")
	errB := deny("actor-B")

	// Each denial carries its own metadata; caller A must never see caller
	// B's identity, and the shared sentinel must stay untouched.
	assert.NotSame(t, errA, errB)
	assert.Equal(t, "actor-A", errA.Metadata["actor_id"])
	assert.Equal(t, "actor-B", errB.Metadata["actor_id"])
	assert.Nil(t, festadmin.ErrForbidden.Metadata)

	assert.True(t, errors.Is(errA, festadmin.ErrForbidden))
	assert.True(t, errors.Is(errB, festadmin.ErrForbidden))
}

func TestAuthorizeConcurrentDenials(t *testing.T) {
	gate := festadmin.NewAccessGate(festadmin.WithGateLogger(testLogger{}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			id := fmt.Sprintf("actor-%d", i)
			actor := &festadmin.ActorContext{ActorID: id, Role: festadmin.RoleUser}
			err := gate.Authorize(context.Background(), actor, festadmin.RoleAdmin, "event.create")

			var richErr *goerrors.Error
			if !assert.True(t, goerrors.As(err, &richErr)) {
				return
			}
			assert.Equal(t, id, richErr.Metadata["actor_id"])
		}(i)
	}
	wg.Wait()
}

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, festadmin.IsAtLeast(festadmin.RoleAdmin, festadmin.RoleUser))
	assert.True(t, festadmin.IsAtLeast(festadmin.RoleAdmin, festadmin.RoleAdmin))
	assert.False(t, festadmin.IsAtLeast(festadmin.RoleUser, festadmin.RoleAdmin))
	assert.False(t, festadmin.IsValidRole("root"))

	for _, role := range festadmin.GetAllRoles() {
		assert.True(t, festadmin.IsValidRole(role))
	}
}

func TestParseRole(t *testing.T) {
	role, ok := festadmin.ParseRole("admin")
	require.True(t, ok)
	assert.Equal(t, festadmin.RoleAdmin, role)

	_, ok = festadmin.ParseRole("root")
	assert.False(t, ok)
}
