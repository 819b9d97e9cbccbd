package festadmin

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifecycle is implemented by every record whose business state is tracked
// through a status enumeration plus a one-way retirement flag.
type Lifecycle interface {
	RecordID() uuid.UUID
	LifecycleCollection() string
	LifecycleStatus() Status
	SetLifecycleStatus(Status)
	Retired() bool
	ParentRef() *uuid.UUID
}

// StatusStore persists status changes with compare-and-swap semantics: the
// update applies only while the current persisted status still equals the
// expected pre-transition status. Implementations return ErrStaleState when
// the precondition no longer holds and ErrAlreadyDeleted when a retirement
// raced another retirement.
type StatusStore[T Lifecycle] interface {
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status) (T, error)
	RetireCAS(ctx context.Context, id uuid.UUID) (T, error)
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the recorded audit entry.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithAuditAction overrides the derived audit action name.
func WithAuditAction(action string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.action = action
	}
}

// LifecycleMachine validates and applies status transitions for one entity
// kind, recording exactly one audit entry per successful change.
type LifecycleMachine[T Lifecycle] interface {
	Transition(ctx context.Context, actor ActorRef, entity T, target Status, opts ...TransitionOption) (T, error)
	Retire(ctx context.Context, actor ActorRef, entity T, opts ...TransitionOption) (T, error)
	CurrentStatus(entity T) Status
}

// MachineOption customizes machine construction.
type MachineOption[T Lifecycle] func(*lifecycleMachine[T])

// WithMachineClock injects a custom clock (useful for tests).
func WithMachineClock[T Lifecycle](clock func() time.Time) MachineOption[T] {
	return func(m *lifecycleMachine[T]) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithMachineRecorder sets the Recorder that receives transition entries.
func WithMachineRecorder[T Lifecycle](r Recorder) MachineOption[T] {
	return func(m *lifecycleMachine[T]) {
		m.recorder = normalizeRecorder(r)
	}
}

// WithMachineLogger overrides the machine logger.
func WithMachineLogger[T Lifecycle](logger Logger) MachineOption[T] {
	return func(m *lifecycleMachine[T]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewLifecycleMachine returns the default implementation backed by the
// provided store and transition graph.
func NewLifecycleMachine[T Lifecycle](store StatusStore[T], graph TransitionGraph, opts ...MachineOption[T]) LifecycleMachine[T] {
	m := &lifecycleMachine[T]{
		store:    store,
		graph:    graph,
		now:      time.Now,
		recorder: noopRecorder{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

type lifecycleMachine[T Lifecycle] struct {
	store    StatusStore[T]
	graph    TransitionGraph
	now      func() time.Time
	recorder Recorder
	logger   Logger
}

type transitionOptions struct {
	metadata TransitionMetadata
	action   string
}

func buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (m *lifecycleMachine[T]) Transition(ctx context.Context, actor ActorRef, entity T, target Status, opts ...TransitionOption) (T, error) {
	var zero T

	if isNilEntity(entity) {
		return zero, withMeta(ErrIllegalTransition, map[string]any{
			"target": target,
			"reason": "entity is nil",
		})
	}

	from := entity.LifecycleStatus()

	if entity.Retired() {
		return zero, withMeta(ErrEntityRetired, map[string]any{
			"collection": entity.LifecycleCollection(),
			"id":         entity.RecordID().String(),
		})
	}

	if target == "" || !m.graph.Knows(target) {
		return zero, withMeta(ErrIllegalTransition, map[string]any{
			"from":   from,
			"to":     target,
			"reason": "unknown target status",
		})
	}

	if from == target {
		return zero, withMeta(ErrNoOpTransition, map[string]any{
			"status": from,
		})
	}

	if !m.graph.Allows(from, target) {
		return zero, withMeta(ErrIllegalTransition, map[string]any{
			"from": from,
			"to":   target,
		})
	}

	options := buildTransitionOptions(opts...)

	oldData, err := Snapshot(entity)
	if err != nil {
		return zero, err
	}

	updated, err := m.store.UpdateStatusCAS(ctx, entity.RecordID(), from, target)
	if err != nil {
		return zero, err
	}

	entity.SetLifecycleStatus(updated.LifecycleStatus())

	newData, err := Snapshot(updated)
	if err != nil {
		return updated, m.auditFailure(entity, options.action, err)
	}

	action := options.action
	if action == "" {
		action = deriveAction(entity.LifecycleCollection(), string(target))
	}

	if err := m.record(ctx, actor, entity, action, oldData, newData, options.metadata); err != nil {
		return updated, err
	}

	return updated, nil
}

func (m *lifecycleMachine[T]) Retire(ctx context.Context, actor ActorRef, entity T, opts ...TransitionOption) (T, error) {
	var zero T

	if isNilEntity(entity) {
		return zero, withMeta(ErrIllegalTransition, map[string]any{
			"reason": "entity is nil",
		})
	}

	if entity.Retired() {
		return zero, withMeta(ErrAlreadyDeleted, map[string]any{
			"collection": entity.LifecycleCollection(),
			"id":         entity.RecordID().String(),
		})
	}

	options := buildTransitionOptions(opts...)

	oldData, err := Snapshot(entity)
	if err != nil {
		return zero, err
	}

	updated, err := m.store.RetireCAS(ctx, entity.RecordID())
	if err != nil {
		return zero, err
	}

	newData, err := Snapshot(updated)
	if err != nil {
		return updated, m.auditFailure(entity, options.action, err)
	}

	action := options.action
	if action == "" {
		action = deriveAction(entity.LifecycleCollection(), "retired")
	}

	if err := m.record(ctx, actor, entity, action, oldData, newData, options.metadata); err != nil {
		return updated, err
	}

	return updated, nil
}

func (m *lifecycleMachine[T]) CurrentStatus(entity T) Status {
	if isNilEntity(entity) {
		return ""
	}
	return entity.LifecycleStatus()
}

// record writes the audit entry for an already-applied mutation. A failure
// here must not be reported as plain success: the mutation is durable but
// unaudited, so the caller gets ErrAuditWriteFailed to reconcile out of band.
func (m *lifecycleMachine[T]) record(ctx context.Context, actor ActorRef, entity T, action string, oldData, newData map[string]any, meta TransitionMetadata) error {
	if actor == (ActorRef{}) {
		actor = ActorRef{Type: "system"}
	}

	entry := Entry{
		Action:     action,
		Actor:      actor,
		Collection: entity.LifecycleCollection(),
		TargetID:   entity.RecordID().String(),
		OldData:    oldData,
		NewData:    newData,
		OccurredAt: m.now(),
	}

	if parent := entity.ParentRef(); parent != nil {
		entry.ParentID = parent.String()
	}

	if meta.Reason != "" || len(meta.Metadata) > 0 {
		entry.Metadata = map[string]any{}
		if meta.Reason != "" {
			entry.Metadata["reason"] = meta.Reason
		}
		for k, v := range meta.Metadata {
			entry.Metadata[k] = v
		}
	}

	if err := m.recorder.Record(ctx, entry); err != nil {
		m.logger.Error("audit write failed action=%s target=%s: %v", action, entry.TargetID, err)
		return withMeta(ErrAuditWriteFailed, map[string]any{
			"action":     action,
			"collection": entry.Collection,
			"target_id":  entry.TargetID,
		})
	}

	return nil
}

func (m *lifecycleMachine[T]) auditFailure(entity T, action string, err error) error {
	m.logger.Error("audit snapshot failed target=%s: %v", entity.RecordID(), err)
	return withMeta(ErrAuditWriteFailed, map[string]any{
		"action":     action,
		"collection": entity.LifecycleCollection(),
		"target_id":  entity.RecordID().String(),
	})
}

// deriveAction turns ("sponsorships", "approved") into SPONSORSHIP_APPROVED.
func deriveAction(collection, suffix string) string {
	kind := strings.ToUpper(strings.TrimSuffix(collection, "s"))
	return kind + "_" + strings.ToUpper(suffix)
}

func isNilEntity(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
