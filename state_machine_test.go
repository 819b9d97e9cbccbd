package festadmin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	festadmin "github.com/goliatone/go-festadmin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingSponsorship() *festadmin.Sponsorship {
	return &festadmin.Sponsorship{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		SponsorName:  "Acme Corp",
		ContactEmail: "sponsor@acme.test",
		Amount:       5000,
		Status:       festadmin.SponsorshipPending,
	}
}

type captureRecorder struct {
	entries []festadmin.Entry
	err     error
}

func (r *captureRecorder) Record(_ context.Context, entry festadmin.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func newSponsorshipMachine(store *MockSponsorshipStore, rec festadmin.Recorder) festadmin.LifecycleMachine[*festadmin.Sponsorship] {
	return festadmin.NewLifecycleMachine(
		store,
		festadmin.SponsorshipTransitions(),
		festadmin.WithMachineRecorder[*festadmin.Sponsorship](rec),
		festadmin.WithMachineLogger[*festadmin.Sponsorship](testLogger{}),
	)
}

func TestTransitionApprovesPendingSponsorship(t *testing.T) {
	ctx := context.Background()
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	approved := *record
	approved.Status = festadmin.SponsorshipApproved

	store.On("UpdateStatusCAS", mock.Anything, record.ID, festadmin.SponsorshipPending, festadmin.SponsorshipApproved).
		Return(&approved, nil).Once()

	actor := festadmin.ActorRef{ID: "admin-1", Type: festadmin.RoleAdmin}
	updated, err := machine.Transition(ctx, actor, record, festadmin.SponsorshipApproved)
	require.NoError(t, err)
	require.Equal(t, festadmin.SponsorshipApproved, updated.Status)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, festadmin.ActionSponsorshipApproved, entry.Action)
	assert.Equal(t, actor, entry.Actor)
	assert.Equal(t, festadmin.CollectionSponsorships, entry.Collection)
	assert.Equal(t, record.ID.String(), entry.TargetID)
	assert.Equal(t, record.EventID.String(), entry.ParentID)
	assert.Equal(t, string(festadmin.SponsorshipPending), entry.OldData["status"])
	assert.Equal(t, string(festadmin.SponsorshipApproved), entry.NewData["status"])

	store.AssertExpectations(t)
}

func TestTransitionRejectsNonAdjacentTarget(t *testing.T) {
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	record.Status = festadmin.SponsorshipApproved

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, record, festadmin.SponsorshipRejected)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrIllegalTransition))
	assert.Empty(t, rec.entries)
	store.AssertNotCalled(t, "UpdateStatusCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionRejectsUnknownTarget(t *testing.T) {
	machine := newSponsorshipMachine(&MockSponsorshipStore{}, &captureRecorder{})

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, pendingSponsorship(), festadmin.Status("archived"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrIllegalTransition))
}

func TestTransitionToCurrentStatusIsNoOp(t *testing.T) {
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(&MockSponsorshipStore{}, rec)

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, pendingSponsorship(), festadmin.SponsorshipPending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrNoOpTransition))
	assert.Empty(t, rec.entries)
}

func TestTransitionOnRetiredEntityFails(t *testing.T) {
	machine := newSponsorshipMachine(&MockSponsorshipStore{}, &captureRecorder{})

	record := pendingSponsorship()
	now := time.Now()
	record.DeletedAt = &now

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, record, festadmin.SponsorshipApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrEntityRetired))
}

func TestTransitionPropagatesStaleState(t *testing.T) {
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	store.On("UpdateStatusCAS", mock.Anything, record.ID, festadmin.SponsorshipPending, festadmin.SponsorshipApproved).
		Return(nil, festadmin.ErrStaleState).Once()

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, record, festadmin.SponsorshipApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrStaleState))
	assert.Empty(t, rec.entries, "losing racer must not produce an audit entry")
	store.AssertExpectations(t)
}

func TestTransitionSurfacesAuditWriteFailure(t *testing.T) {
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{err: errors.New("audit store down")}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	approved := *record
	approved.Status = festadmin.SponsorshipApproved

	store.On("UpdateStatusCAS", mock.Anything, record.ID, festadmin.SponsorshipPending, festadmin.SponsorshipApproved).
		Return(&approved, nil).Once()

	updated, err := machine.Transition(context.Background(), festadmin.ActorRef{}, record, festadmin.SponsorshipApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrAuditWriteFailed))
	// The mutation is durable; the caller still gets the updated entity for
	// reconciliation.
	require.NotNil(t, updated)
	assert.Equal(t, festadmin.SponsorshipApproved, updated.Status)
}

func TestTransitionReasonLandsInMetadataNotSnapshot(t *testing.T) {
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	rejected := *record
	rejected.Status = festadmin.SponsorshipRejected

	store.On("UpdateStatusCAS", mock.Anything, record.ID, festadmin.SponsorshipPending, festadmin.SponsorshipRejected).
		Return(&rejected, nil).Once()

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, record, festadmin.SponsorshipRejected,
		festadmin.WithTransitionReason("budget exhausted"),
		festadmin.WithTransitionMetadata(map[string]any{"ticket": "FIN-42"}),
	)
	require.NoError(t, err)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, festadmin.ActionSponsorshipRejected, entry.Action)
	assert.Equal(t, "budget exhausted", entry.Metadata["reason"])
	assert.Equal(t, "FIN-42", entry.Metadata["ticket"])
	assert.NotContains(t, entry.NewData, "reason")
	assert.NotContains(t, entry.NewData, "ticket")
}

func TestRetireRecordsDerivedAction(t *testing.T) {
	store := &MockSponsorshipStore{}
	rec := &captureRecorder{}
	machine := newSponsorshipMachine(store, rec)

	record := pendingSponsorship()
	now := time.Now()
	retired := *record
	retired.DeletedAt = &now

	store.On("RetireCAS", mock.Anything, record.ID).Return(&retired, nil).Once()

	_, err := machine.Retire(context.Background(), festadmin.ActorRef{}, record)
	require.NoError(t, err)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, festadmin.ActionSponsorshipRetired, rec.entries[0].Action)
	assert.NotNil(t, rec.entries[0].NewData["deleted_at"])
	store.AssertExpectations(t)
}

func TestRetireTwiceFails(t *testing.T) {
	store := &MockSponsorshipStore{}
	machine := newSponsorshipMachine(store, &captureRecorder{})

	record := pendingSponsorship()
	now := time.Now()
	record.DeletedAt = &now

	_, err := machine.Retire(context.Background(), festadmin.ActorRef{}, record)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrAlreadyDeleted))
	store.AssertNotCalled(t, "RetireCAS", mock.Anything, mock.Anything)
}

func TestTransitionNilEntityFails(t *testing.T) {
	machine := newSponsorshipMachine(&MockSponsorshipStore{}, &captureRecorder{})

	_, err := machine.Transition(context.Background(), festadmin.ActorRef{}, nil, festadmin.SponsorshipApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, festadmin.ErrIllegalTransition))

	assert.Equal(t, festadmin.Status(""), machine.CurrentStatus(nil))
}

func TestSnapshotIsDetached(t *testing.T) {
	record := pendingSponsorship()

	snap, err := festadmin.Snapshot(record)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", snap["sponsor_name"])

	record.SponsorName = "Changed Corp"
	assert.Equal(t, "Acme Corp", snap["sponsor_name"], "snapshot must not alias the live record")
}
