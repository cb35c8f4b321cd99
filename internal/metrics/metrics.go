// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Rejection reasons shared by recorders and callers.
const (
	ReasonMissingToken       = "missing_token"
	ReasonInvalidToken       = "invalid_token"
	ReasonUnsupportedType    = "unsupported_type"
	ReasonTooLarge           = "too_large"
	ReasonInvalidCredentials = "invalid_credentials"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Note store metrics
	IncNoteCreated()
	IncNoteUpdated()
	IncNoteDeleted()

	// Attachment metrics
	IncAttachmentStored()
	IncAttachmentRejected(reason string) // reason: "unsupported_type" or "too_large"

	// Authorization metrics
	IncAuthRejected(reason string)

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
