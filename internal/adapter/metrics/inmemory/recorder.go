package inmemory

import (
	"sync"

	"grovetender/internal/domain/grove"
)

type Snapshot struct {
	WateringTotal    uint64            `json:"watering_total"`
	WateringAccepted uint64            `json:"watering_accepted"`
	WateringRejected uint64            `json:"watering_rejected"`
	WriteConflicts   uint64            `json:"write_conflicts"`
	Failures         uint64            `json:"failures"`
	ByRejectReason   map[string]uint64 `json:"by_reject_reason"`
	SideEventsByKind map[string]uint64 `json:"side_events_by_kind"`
}

type Recorder struct {
	mu         sync.Mutex
	accepted   uint64
	rejected   uint64
	conflicts  uint64
	failures   uint64
	byReason   map[string]uint64
	sideEvents map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byReason:   map[string]uint64{},
		sideEvents: map[string]uint64{},
	}
}

func (r *Recorder) RecordAccepted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted++
}

func (r *Recorder) RecordRejected(reason grove.RejectReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
	r.byReason[string(reason)]++
}

func (r *Recorder) RecordConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *Recorder) RecordSideEvent(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sideEvents[kind]++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		WateringAccepted: r.accepted,
		WateringRejected: r.rejected,
		WateringTotal:    r.accepted + r.rejected,
		WriteConflicts:   r.conflicts,
		Failures:         r.failures,
		ByRejectReason:   make(map[string]uint64, len(r.byReason)),
		SideEventsByKind: make(map[string]uint64, len(r.sideEvents)),
	}
	for k, v := range r.byReason {
		out.ByRejectReason[k] = v
	}
	for k, v := range r.sideEvents {
		out.SideEventsByKind[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
