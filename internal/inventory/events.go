package inventory

import "time"

// MovementRecordedEvent describes a committed stock movement for
// downstream consumers such as dashboard refreshers.
type MovementRecordedEvent struct {
	MovementID int64
	ProductID  int64
	Type       MovementType
	Quantity   int
	NewStock   int
	RecordedAt time.Time
}
