package inventory

import "context"

// IntegrationHandler receives inventory events after a movement commits.
type IntegrationHandler interface {
	HandleMovementRecorded(ctx context.Context, evt MovementRecordedEvent) error
}
