package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/andrewkuryan/brownie/internal/uuid"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditSignatureRejected AuditEvent = "signature_rejected"
	AuditGuestProvisioned  AuditEvent = "guest_provisioned"
	AuditContactAdded      AuditEvent = "contact_added"
	AuditContactVerified   AuditEvent = "contact_verified"
	AuditCodeResent        AuditEvent = "code_resent"
	AuditUserFulfilled     AuditEvent = "user_fulfilled"
	AuditLoginInit         AuditEvent = "login_init"
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginFailure      AuditEvent = "login_failure"
	AuditLoginExpired      AuditEvent = "login_expired"
	AuditLogout            AuditEvent = "logout"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	now     func() time.Time
}

func newAuditLogger(logger *slog.Logger, metrics *metricsCollector) *auditLogger {
	return &auditLogger{
		logger:  logger.With("component", "audit"),
		metrics: metrics,
		now:     time.Now,
	}
}

// log writes a structured audit entry. Public keys are never logged in
// full; callers pass the session fingerprint instead.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("event_id", uuid.New()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	al.metrics.recordEvent(event)
}

// logUser is a convenience for events tied to a user id.
func (al *auditLogger) logUser(event AuditEvent, r *http.Request, userID int, extra ...slog.Attr) {
	attrs := append([]slog.Attr{slog.Int("user_id", userID)}, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := append([]slog.Attr{slog.String("reason", reason)}, extra...)
	al.log(event, r, attrs...)
}

// fingerprint shortens a public key for logs.
func fingerprint(publicKey string) string {
	const n = 16
	if len(publicKey) <= n {
		return publicKey
	}
	return publicKey[len(publicKey)-n:]
}
