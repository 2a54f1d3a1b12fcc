// Package telemetry emits authentication events to external sinks.
package telemetry

import (
	"context"

	"combo-auth/internal/telemetry/domain"
)

// EventEmitter emits auth events (e.g. to Kafka). Best-effort; callers log
// and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}
