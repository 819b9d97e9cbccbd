package festadmin

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CollectionAdmins is the storage collection for admin accounts
const CollectionAdmins = "admins"

// CollectionEvents is the storage collection for taxonomy events
const CollectionEvents = "events"

// CollectionSponsorships is the storage collection for sponsorship requests
const CollectionSponsorships = "sponsorships"

// Admin is the administrator account model
type Admin struct {
	bun.BaseModel  `bun:"table:admins,alias:adm"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           Role           `bun:"role,notnull" json:"role,omitempty"`
	ApprovalStatus Status         `bun:"approval_status,notnull" json:"approval_status,omitempty"`
	FirstName      string         `bun:"first_name" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus sets the default approval status for new records
func (a *Admin) EnsureStatus() {
	if a.ApprovalStatus == "" {
		a.ApprovalStatus = ApprovalPending
	}
}

// IsActive reports whether the admin cleared approval
func (a *Admin) IsActive() bool {
	return a.ApprovalStatus == ApprovalActive
}

func (a *Admin) RecordID() uuid.UUID         { return a.ID }
func (a *Admin) LifecycleCollection() string { return CollectionAdmins }
func (a *Admin) LifecycleStatus() Status     { a.EnsureStatus(); return a.ApprovalStatus }
func (a *Admin) SetLifecycleStatus(s Status) { a.ApprovalStatus = s }
func (a *Admin) Retired() bool               { return a.DeletedAt != nil }
func (a *Admin) ParentRef() *uuid.UUID       { return nil }

// Event is a named taxonomy entry scoped under a parent category.
// The pair (name, category) is unique among live records; a retired name
// may be recreated under the default uniqueness policy.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:evt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Category      string     `bun:"category,notnull" json:"category,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	IsActive      bool       `bun:"is_active" json:"is_active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Retired reports whether the event was soft deleted
func (e *Event) Retired() bool {
	return e.DeletedAt != nil
}

// Sponsorship is a sponsorship request tied to a parent event
type Sponsorship struct {
	bun.BaseModel `bun:"table:sponsorships,alias:spn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EventID       uuid.UUID  `bun:"event_id,notnull,type:uuid" json:"event_id,omitempty"`
	Event         *Event     `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
	SponsorName   string     `bun:"sponsor_name,notnull" json:"sponsor_name,omitempty"`
	ContactEmail  string     `bun:"contact_email,notnull" json:"contact_email,omitempty"`
	Amount        int64      `bun:"amount" json:"amount,omitempty"`
	Notes         string     `bun:"notes" json:"notes,omitempty"`
	Status        Status     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus sets the default status for new records
func (s *Sponsorship) EnsureStatus() {
	if s.Status == "" {
		s.Status = SponsorshipPending
	}
}

func (s *Sponsorship) RecordID() uuid.UUID          { return s.ID }
func (s *Sponsorship) LifecycleCollection() string  { return CollectionSponsorships }
func (s *Sponsorship) LifecycleStatus() Status      { s.EnsureStatus(); return s.Status }
func (s *Sponsorship) SetLifecycleStatus(st Status) { s.Status = st }
func (s *Sponsorship) Retired() bool                { return s.DeletedAt != nil }

func (s *Sponsorship) ParentRef() *uuid.UUID {
	if s.EventID == uuid.Nil {
		return nil
	}
	id := s.EventID
	return &id
}

// AuditLog is an immutable fact describing a single mutation. Rows are only
// ever inserted; there is no update, hard delete, or soft delete path.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:adt"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Action        string         `bun:"action,notnull" json:"action,omitempty"`
	ActorID       string         `bun:"actor_id" json:"actor_id,omitempty"`
	ActorType     string         `bun:"actor_type" json:"actor_type,omitempty"`
	Collection    string         `bun:"collection,notnull" json:"collection,omitempty"`
	TargetID      string         `bun:"target_id,notnull" json:"target_id,omitempty"`
	ParentID      string         `bun:"parent_id,nullzero" json:"parent_id,omitempty"`
	OldData       map[string]any `bun:"old_data" json:"old_data,omitempty"`
	NewData       map[string]any `bun:"new_data" json:"new_data,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
