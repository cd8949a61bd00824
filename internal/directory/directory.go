// Package directory abstracts the identity/roles system the task engine
// consumes: work-assignment checks, core-task capabilities, and HR routing.
package directory

// Directory resolves user facts owned by the surrounding HR platform.
type Directory interface {
	// HasActiveAssignment reports whether the user currently holds an active
	// work assignment.
	HasActiveAssignment(userID string) bool

	// CoreTasks returns the core-task IDs of the user's current work
	// experience.
	CoreTasks(userID string) []string

	// HRRecipients returns the user IDs holding task-approval permission,
	// used for organization-wide escalation notifications.
	HRRecipients() []string
}

// Static is an in-memory Directory for tests and single-org deployments.
type Static struct {
	Active    map[string]bool
	CoreTask  map[string][]string
	HRHolders []string
}

// NewStatic returns an empty Static directory.
func NewStatic() *Static {
	return &Static{
		Active:   make(map[string]bool),
		CoreTask: make(map[string][]string),
	}
}

func (s *Static) HasActiveAssignment(userID string) bool {
	return s.Active[userID]
}

func (s *Static) CoreTasks(userID string) []string {
	return s.CoreTask[userID]
}

func (s *Static) HRRecipients() []string {
	return s.HRHolders
}
