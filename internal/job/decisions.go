package job

import (
	"time"

	"github.com/joseph-ayodele/image-factory/constants"
)

// Admission is the verdict for an incoming upload request.
type Admission int

const (
	// AdmitNew starts (or restarts) a PENDING cycle and proceeds to enqueue.
	AdmitNew Admission = iota
	// AdmitExisting short-circuits: return the existing record, no side effects.
	AdmitExisting
)

// AdmissionPolicy tunes the admission table.
type AdmissionPolicy struct {
	// StalePendingAfter re-admits a PENDING record whose last update is older
	// than this (a submission crashed between create and enqueue). Zero
	// disables stale recovery.
	StalePendingAfter time.Duration
	// Reprocess is the caller's explicit opt-in to re-run a job whose last
	// cycle ended in ERROR. Re-uploads never retry ERROR automatically.
	Reprocess bool
}

// Admit applies the admission decision for an upload of a hash whose current
// record is existing (nil when absent).
//
// A PENDING record implies another request already claimed the slot, so it
// short-circuits unless stale. QUEUED and SUCCESS always short-circuit.
func Admit(existing *Job, p AdmissionPolicy, now time.Time) Admission {
	if existing == nil {
		return AdmitNew
	}
	switch existing.Status {
	case constants.JobStatusPending:
		if p.StalePendingAfter > 0 && now.Sub(existing.UpdatedAt) > p.StalePendingAfter {
			return AdmitNew
		}
		return AdmitExisting
	case constants.JobStatusError:
		if p.Reprocess {
			return AdmitNew
		}
		return AdmitExisting
	default:
		return AdmitExisting
	}
}

// DeliveryAction is the verdict for a push delivery.
type DeliveryAction int

const (
	// DeliveryDerive invokes the derivation function.
	DeliveryDerive DeliveryAction = iota
	// DeliveryDuplicate acknowledges without re-deriving (terminal record).
	DeliveryDuplicate
	// DeliveryOrphan is a delivery for a hash with no record: an ERROR record
	// must be persisted so the queue does not retry forever.
	DeliveryOrphan
)

// OnDelivery applies the delivery-time decision for the current record
// (nil when absent). Convergence comes from checking status before doing
// expensive work, not from mutual exclusion.
func OnDelivery(existing *Job) DeliveryAction {
	if existing == nil {
		return DeliveryOrphan
	}
	if existing.Status.IsTerminal() {
		return DeliveryDuplicate
	}
	return DeliveryDerive
}

// CanTransition reports whether moving from -> to keeps the status sequence
// monotone: PENDING -> QUEUED -> {SUCCESS, ERROR}, with PENDING also allowed
// to jump straight to a terminal state (submission failure, or a delivery
// racing ahead of the QUEUED write).
func CanTransition(from, to constants.JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch from {
	case constants.JobStatusPending:
		return to != constants.JobStatusPending && to.IsValid()
	case constants.JobStatusQueued:
		return to.IsTerminal()
	}
	return false
}
