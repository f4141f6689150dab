package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/image-factory/constants"
)

func jobWith(status constants.JobStatus, updatedAt time.Time) *Job {
	j := New("h", updatedAt)
	j.Status = status
	j.UpdatedAt = updatedAt
	return j
}

func TestAdmit_AbsentStartsNewCycle(t *testing.T) {
	got := Admit(nil, AdmissionPolicy{}, time.Now())
	assert.Equal(t, AdmitNew, got)
}

func TestAdmit_NonPendingShortCircuits(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []constants.JobStatus{
		constants.JobStatusQueued,
		constants.JobStatusSuccess,
		constants.JobStatusError,
	} {
		got := Admit(jobWith(status, now), AdmissionPolicy{StalePendingAfter: time.Minute}, now)
		assert.Equal(t, AdmitExisting, got, "status %s", status)
	}
}

func TestAdmit_PendingHoldsTheSlot(t *testing.T) {
	now := time.Now().UTC()
	existing := jobWith(constants.JobStatusPending, now.Add(-time.Minute))

	got := Admit(existing, AdmissionPolicy{StalePendingAfter: 15 * time.Minute}, now)
	assert.Equal(t, AdmitExisting, got)
}

func TestAdmit_StalePendingIsReclaimed(t *testing.T) {
	now := time.Now().UTC()
	existing := jobWith(constants.JobStatusPending, now.Add(-time.Hour))

	got := Admit(existing, AdmissionPolicy{StalePendingAfter: 15 * time.Minute}, now)
	assert.Equal(t, AdmitNew, got)

	// zero tolerance disables stale recovery entirely
	got = Admit(existing, AdmissionPolicy{}, now)
	assert.Equal(t, AdmitExisting, got)
}

func TestAdmit_ErrorRetriesOnlyWithExplicitReprocess(t *testing.T) {
	now := time.Now().UTC()
	existing := jobWith(constants.JobStatusError, now)

	assert.Equal(t, AdmitExisting, Admit(existing, AdmissionPolicy{}, now))
	assert.Equal(t, AdmitNew, Admit(existing, AdmissionPolicy{Reprocess: true}, now))

	// reprocess never re-admits a SUCCESS job
	done := jobWith(constants.JobStatusSuccess, now)
	assert.Equal(t, AdmitExisting, Admit(done, AdmissionPolicy{Reprocess: true}, now))
}

func TestOnDelivery(t *testing.T) {
	now := time.Now().UTC()

	assert.Equal(t, DeliveryOrphan, OnDelivery(nil))
	assert.Equal(t, DeliveryDerive, OnDelivery(jobWith(constants.JobStatusPending, now)))
	assert.Equal(t, DeliveryDerive, OnDelivery(jobWith(constants.JobStatusQueued, now)))
	assert.Equal(t, DeliveryDuplicate, OnDelivery(jobWith(constants.JobStatusSuccess, now)))
	assert.Equal(t, DeliveryDuplicate, OnDelivery(jobWith(constants.JobStatusError, now)))
}

func TestCanTransition_StatusesOnlyMoveForward(t *testing.T) {
	ok := [][2]constants.JobStatus{
		{constants.JobStatusPending, constants.JobStatusQueued},
		{constants.JobStatusPending, constants.JobStatusSuccess},
		{constants.JobStatusPending, constants.JobStatusError},
		{constants.JobStatusQueued, constants.JobStatusSuccess},
		{constants.JobStatusQueued, constants.JobStatusError},
	}
	for _, pair := range ok {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	bad := [][2]constants.JobStatus{
		{constants.JobStatusQueued, constants.JobStatusPending},
		{constants.JobStatusSuccess, constants.JobStatusPending},
		{constants.JobStatusSuccess, constants.JobStatusError},
		{constants.JobStatusError, constants.JobStatusQueued},
		{constants.JobStatusError, constants.JobStatusSuccess},
		{constants.JobStatusPending, constants.JobStatusPending},
	}
	for _, pair := range bad {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}
