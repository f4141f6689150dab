package constants

// JobStatus is the canonical status for a derivation job document.
type JobStatus string

// Stable values (store these exact strings in the record store).
const (
	JobStatusPending JobStatus = "PENDING" // record created, derivation not yet queued
	JobStatusQueued  JobStatus = "QUEUED"  // source uploaded and message published
	JobStatusSuccess JobStatus = "SUCCESS" // terminal: artifacts persisted
	JobStatusError   JobStatus = "ERROR"   // terminal: last attempt failed
)

// IsTerminal reports whether no further automatic transition may occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// IsDone is a readability alias used by status queries.
func (s JobStatus) IsDone() bool { return s.IsTerminal() }

// IsValid reports whether s is one of the stable values.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusQueued, JobStatusSuccess, JobStatusError:
		return true
	}
	return false
}
