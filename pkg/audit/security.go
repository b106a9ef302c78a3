// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
)

// maxLoggedTextLen bounds untrusted text copied into audit events.
const maxLoggedTextLen = 500

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQuestionInjection is logged when libinjection flags a user question.
	// Questions are never blocked; this is a signal for review.
	EventQuestionInjection SecurityEventType = "question_injection_suspected"
	// EventUnsafeStatement is logged when model output fails the read-only gate.
	EventUnsafeStatement SecurityEventType = "unsafe_statement_rejected"
	// EventQueryExecution is logged for each executed statement (can be high volume).
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// QuestionInjectionDetails contains specifics of a flagged question.
type QuestionInjectionDetails struct {
	Question    string `json:"question"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// UnsafeStatementDetails contains the rejected model output and the reason.
type UnsafeStatementDetails struct {
	Question  string `json:"question"`
	ModelText string `json:"model_text"`
	Reason    string `json:"reason"`
}

// QueryExecutionDetails describes one executed statement.
type QueryExecutionDetails struct {
	SQL      string `json:"sql"`
	Success  bool   `json:"success"`
	RowCount int    `json:"row_count"`
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity string, details any) SecurityEvent {
	return SecurityEvent{
		EventID:   uuid.New(),
		Timestamp: a.now(),
		EventType: eventType,
		RequestID: llm.RequestIDFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
}

func encodeEvent(event SecurityEvent) string {
	// Marshaling these known types cannot fail
	eventJSON, _ := json.Marshal(event)
	return string(eventJSON)
}

// LogQuestionInjection records a question that libinjection classifies as SQL
// injection. Logged at WARN: the question only reaches the model, never the database.
//
// Example usage:
//
//	if finding := sql.ScreenQuestion(q); finding != nil {
//	    auditor.LogQuestionInjection(ctx, q, finding.Fingerprint)
//	}
func (a *SecurityAuditor) LogQuestionInjection(ctx context.Context, question, fingerprint string) {
	details := QuestionInjectionDetails{
		Question:    logging.TruncateString(question, maxLoggedTextLen),
		Fingerprint: fingerprint,
	}
	event := a.newEvent(ctx, EventQuestionInjection, "warning", details)

	a.logger.Warn("Injection-like question detected",
		zap.String("event_json", encodeEvent(event)),
		zap.String("event_id", event.EventID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("fingerprint", fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogUnsafeStatement records model output rejected by the read-only gate.
// The rejected text never executes, so this is a warning rather than critical.
func (a *SecurityAuditor) LogUnsafeStatement(ctx context.Context, question, modelText string, reason error) {
	details := UnsafeStatementDetails{
		Question:  logging.TruncateString(question, maxLoggedTextLen),
		ModelText: logging.TruncateString(modelText, maxLoggedTextLen),
	}
	if reason != nil {
		details.Reason = reason.Error()
	}
	event := a.newEvent(ctx, EventUnsafeStatement, "warning", details)

	a.logger.Warn("Unsafe statement rejected",
		zap.String("event_json", encodeEvent(event)),
		zap.String("event_id", event.EventID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("reason", details.Reason),
		zap.String("model_text", details.ModelText),
		zap.String("severity", event.Severity),
	)
}

// LogQueryExecution records an executed statement for the audit trail.
// This is logged at INFO level. Note: This can generate high log volume in production.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, statement string, success bool, rowCount int) {
	details := QueryExecutionDetails{
		SQL:      logging.SanitizeQuery(statement),
		Success:  success,
		RowCount: rowCount,
	}
	event := a.newEvent(ctx, EventQueryExecution, "info", details)

	a.logger.Info("Query executed",
		zap.String("event_json", encodeEvent(event)),
		zap.String("event_id", event.EventID.String()),
		zap.String("request_id", event.RequestID),
		zap.Bool("success", success),
		zap.Int("row_count", rowCount),
		zap.String("severity", event.Severity),
	)
}
