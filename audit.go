package quorumgate

import (
	"context"

	internalaudit "github.com/quorumgate/quorumgate/internal/audit"
)

// Audit event types emitted by the engine.
const (
	// AuditEventTokenIssued is an exported constant or variable used by the token engine.
	AuditEventTokenIssued = "token_issued"
	// AuditEventTokenRejected is an exported constant or variable used by the token engine.
	AuditEventTokenRejected = "token_rejected"
	// AuditEventEmergencyIssued is an exported constant or variable used by the token engine.
	AuditEventEmergencyIssued = "emergency_token_issued"
	// AuditEventEmergencyDenied is an exported constant or variable used by the token engine.
	AuditEventEmergencyDenied = "emergency_token_denied"
	// AuditEventValidationFailed is an exported constant or variable used by the token engine.
	AuditEventValidationFailed = "validation_failed"
	// AuditEventRequestRejected is an exported constant or variable used by the token engine.
	AuditEventRequestRejected = "request_rejected"
	// AuditEventDedupeHit is an exported constant or variable used by the token engine.
	AuditEventDedupeHit = "dedupe_hit"
	// AuditEventKeyRotated is an exported constant or variable used by the token engine.
	AuditEventKeyRotated = "key_rotated"
)

// emitAudit forwards one event to the async dispatcher, which stamps the
// emission time. A nil dispatcher means auditing is disabled.
func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	e.audit.Emit(ctx, event)
}

func (e *Engine) auditRequestEvent(ctx context.Context, eventType string, req *AuthenticationRequest, success bool, errText string) {
	event := AuditEvent{
		EventType: eventType,
		Success:   success,
		Error:     errText,
	}
	if req != nil {
		event.RequestID = req.ID
		if req.Metadata != nil {
			event.Origin = req.Metadata.Origin
			event.Department = req.Metadata.Department
			event.IP = req.Metadata.IPAddress
		}
	}
	e.emitAudit(ctx, event)
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
