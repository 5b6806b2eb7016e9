package ports

import "grovetender/internal/domain/grove"

type WateringMetrics interface {
	RecordAccepted()
	RecordRejected(reason grove.RejectReason)
	RecordConflict()
	RecordFailure()
	RecordSideEvent(kind string)
}
