package inmemory

import (
	"testing"

	"grovetender/internal/domain/grove"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordAccepted()
	r.RecordAccepted()
	r.RecordRejected(grove.RejectCooldown)
	r.RecordRejected(grove.RejectSameActor)
	r.RecordRejected(grove.RejectCooldown)
	r.RecordConflict()
	r.RecordFailure()
	r.RecordSideEvent("squirrel_chase")

	s := r.Snapshot()
	if s.WateringAccepted != 2 || s.WateringRejected != 3 || s.WateringTotal != 5 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.WriteConflicts != 1 || s.Failures != 1 {
		t.Fatalf("unexpected conflict/failure counts: %+v", s)
	}
	if s.ByRejectReason["cooldown"] != 2 || s.ByRejectReason["same_actor"] != 1 {
		t.Fatalf("unexpected reason breakdown: %+v", s.ByRejectReason)
	}
	if s.SideEventsByKind["squirrel_chase"] != 1 {
		t.Fatalf("unexpected side-event counts: %+v", s.SideEventsByKind)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRecorder()
	r.RecordRejected(grove.RejectCooldown)
	s := r.Snapshot()
	s.ByRejectReason["cooldown"] = 99
	if r.Snapshot().ByRejectReason["cooldown"] != 1 {
		t.Fatal("snapshot mutation leaked into the recorder")
	}
}
