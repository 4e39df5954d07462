package constants

import "time"

// Session and context keys
const (
	SessionCookieName   = "task_session"
	ContextKeyUserID    = "user_id"
	// ContextKeyActiveOrg holds the organization a session acts in by default
	ContextKeyActiveOrg = "active_organization_id"
	ContextKeyTask      = "task"
	ContextKeyOrg       = "organization"
	ContextKeyMember    = "organization_member"
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Validation
const (
	MinPasswordLength = 8
	MaxAIRankedTasks  = 50
)

// Scheduling
const (
	// DefaultEstimatedMinutes is the calendar duration of a task without an estimate.
	DefaultEstimatedMinutes = 60
	// GraceWindow is how long a freshly completed task keeps sorting as active on clients.
	GraceWindow = 2500 * time.Millisecond
)
