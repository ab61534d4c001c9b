package goRights

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/goRights/internal/audit"
	"github.com/MrEthical07/goRights/role"
)

// Audit event types.
const (
	AuditEventGrant   = "authz.grant"
	AuditEventDeny    = "authz.deny"
	AuditEventAbstain = "authz.abstain"
	AuditEventReload  = "rights.reload"
	AuditEventUpdate  = "rights.update"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON lines to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func (e *Engine) emitDecision(ctx context.Context, p Principal, action, resourceName string, d Decision, err error) {
	if e == nil || e.audit == nil {
		return
	}

	var eventType string
	switch d {
	case Grant:
		if !e.config.Audit.EmitGrants {
			return
		}
		eventType = AuditEventGrant
	case Deny:
		eventType = AuditEventDeny
	default:
		eventType = AuditEventAbstain
	}

	event := internalaudit.NewEvent(eventType)
	event.Action = action
	event.Resource = resourceName
	event.Decision = d.String()
	event.Success = d == Grant
	if p != nil {
		event.PrincipalID = principalID(p)
		event.Tier = e.tierOf(p).String()
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRights(ctx context.Context, eventType string, tier role.Tier, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := internalaudit.NewEvent(eventType)
	if eventType == AuditEventUpdate {
		event.Tier = tier.String()
	}
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}
	event.Metadata = metadata
	e.audit.Emit(ctx, event)
}

func principalID(p Principal) string {
	if id, ok := p.(Identified); ok {
		return id.PrincipalID()
	}
	return ""
}
