package festadmin

// Status is a lifecycle status value drawn from a fixed enumeration
// specific to each entity kind.
type Status string

const (
	// SponsorshipPending is the initial status of every sponsorship request
	SponsorshipPending Status = "pending"
	// SponsorshipApproved is terminal for status changes
	SponsorshipApproved Status = "approved"
	// SponsorshipRejected is terminal for status changes
	SponsorshipRejected Status = "rejected"
)

const (
	// ApprovalPending marks a registered admin awaiting promotion
	ApprovalPending Status = "pending"
	// ApprovalActive marks an admin cleared for mutating operations
	ApprovalActive Status = "active"
)

// TransitionGraph declares the legal adjacency set per status. A status
// missing from the map is terminal for status changes (soft delete remains
// available through Retire).
type TransitionGraph map[Status]map[Status]struct{}

// Allows reports whether the graph permits moving from one status to another.
func (g TransitionGraph) Allows(from, to Status) bool {
	if allowed, ok := g[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Knows reports whether a status participates in the graph at all, either
// as a source or as a target.
func (g TransitionGraph) Knows(s Status) bool {
	if _, ok := g[s]; ok {
		return true
	}
	for _, targets := range g {
		if _, ok := targets[s]; ok {
			return true
		}
	}
	return false
}

// SponsorshipTransitions returns the sponsorship decision graph. Both
// approved and rejected are terminal.
func SponsorshipTransitions() TransitionGraph {
	return TransitionGraph{
		SponsorshipPending: {
			SponsorshipApproved: {},
			SponsorshipRejected: {},
		},
	}
}

// AdminApprovalTransitions returns the admin approval graph. Promotion is
// one-way; demotion is handled through soft delete.
func AdminApprovalTransitions() TransitionGraph {
	return TransitionGraph{
		ApprovalPending: {
			ApprovalActive: {},
		},
	}
}
