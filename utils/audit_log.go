package utils

import (
	"fmt"
	"time"

	"sneakstudy/models"

	"gorm.io/gorm"
)

var auditDB *gorm.DB

func InitAuditLog(dbInstance *gorm.DB) {
	auditDB = dbInstance
}

type AuditLogEntry struct {
	EventType   models.AuditEventType   `json:"event_type"`
	EventAction models.AuditEventAction `json:"event_action"`
	UserID      string                  `json:"user_id"`
	IPAddress   string                  `json:"ip_address"`
	UserAgent   string                  `json:"user_agent"`
	Resource    string                  `json:"resource"`
	Status      string                  `json:"status"`
	ErrorMsg    string                  `json:"error_msg"`
}

func LogAuditEvent(entry AuditLogEntry) error {
	if auditDB == nil {
		return fmt.Errorf("audit log database not initialized")
	}

	log := &models.AuditLog{
		EventType:   string(entry.EventType),
		EventAction: string(entry.EventAction),
		UserID:      entry.UserID,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Resource:    entry.Resource,
		Status:      entry.Status,
		ErrorMsg:    entry.ErrorMsg,
		CreatedAt:   time.Now(),
	}

	return auditDB.Create(log).Error
}

// LogAuthEvent records a login/logout/session event against the identity
// provider.
func LogAuthEvent(action models.AuditEventAction, userID, ipAddress, userAgent string, success bool, errorMsg string) error {
	status := "success"
	if !success {
		status = "error"
	}

	return LogAuditEvent(AuditLogEntry{
		EventType:   models.AuditEventAuth,
		EventAction: action,
		UserID:      userID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Resource:    "authentication",
		Status:      status,
		ErrorMsg:    errorMsg,
	})
}

// LogLinkingEvent records a connect/disconnect/refresh event for the
// OpenRouter credential.
func LogLinkingEvent(action models.AuditEventAction, userID, ipAddress, userAgent string, success bool, errorMsg string) error {
	status := "success"
	if !success {
		status = "error"
	}

	return LogAuditEvent(AuditLogEntry{
		EventType:   models.AuditEventOAuth,
		EventAction: action,
		UserID:      userID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Resource:    "openrouter_credential",
		Status:      status,
		ErrorMsg:    errorMsg,
	})
}
