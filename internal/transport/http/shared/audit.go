package shared

import (
	"context"
	"log/slog"
	"net/http"

	"perfdash/internal/domain/audit"
	"perfdash/internal/transport/http/middleware"
)

type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// RecordAudit stamps entry with the request's actor, id and client address
// and records it. Failures are logged; the request has already succeeded.
func RecordAudit(r *http.Request, auditor Auditor, entry audit.Entry) {
	if auditor == nil {
		return
	}
	if user, ok := middleware.GetUser(r.Context()); ok && entry.ActorID == "" {
		entry.ActorID = user.ID
	}
	entry.RequestID = middleware.GetRequestID(r.Context())
	entry.IP = middleware.ClientIP(r)
	if err := auditor.Record(context.WithoutCancel(r.Context()), entry); err != nil {
		slog.Warn("audit record failed", "action", entry.Action, "entity_id", entry.EntityID, "request_id", entry.RequestID, "err", err)
	}
}
