// Package festadmin provides the administration core for fest backends:
// lifecycle state machines for mutable records, an append-only audit trail,
// and the session/authorization plumbing that guards every privileged
// mutation.
//
// Entity lifecycles:
//   - Sponsorships carry a Status field that is persisted via Bun. The
//     transition graph (pending -> approved|rejected) lives in a
//     LifecycleMachine so adjacency rules, no-op detection, and
//     retired-entity guards are enforced in one place instead of scattered
//     conditionals.
//   - Admin accounts reuse the same machinery for their approval lifecycle;
//     only active admins clear the AccessGate for mutating operations.
//   - Soft deletes are one-way. Repositories exclude retired rows by default,
//     and conditional updates (compare-and-swap on status) linearize
//     concurrent transitions; the loser observes ErrStaleState.
//
// Audit trail:
//   - Recorder captures an immutable {action, actor, target, old/new
//     snapshot, timestamp} record around every mutation. Snapshots are deep
//     copies taken strictly before and after the change. When a mutation
//     lands but the audit write fails, callers receive ErrAuditWriteFailed
//     rather than a bare success.
//
// Sessions:
//   - SessionClient wraps outbound calls with a bearer credential and
//     coalesces concurrent renewal attempts into a single exchange. A second
//     rejection after a fresh credential invalidates the local session.
package festadmin
