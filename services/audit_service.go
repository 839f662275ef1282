package services

import (
	"context"
	"encoding/json"
	"sync"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/models"

	"go.uber.org/zap"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID    string
	UserEmail string
	IPAddress string
	UserAgent string
}

// Auditor writes audit_logs rows through the persistence service without blocking the request
type Auditor struct {
	store backend.Store
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewAuditor(store backend.Store, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{store: store, log: log}
}

// LogEvent records an operator action asynchronously
func (a *Auditor) LogEvent(
	ctx context.Context,
	actor AuditContext,
	action models.AuditAction,
	resourceType string,
	resourceID string,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	entry := &models.AuditLog{
		UserID:       ptrIfNotEmpty(actor.UserID),
		UserEmail:    actor.UserEmail,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Description:  description,
		OldValues:    encodeValues(oldValues),
		NewValues:    encodeValues(newValues),
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	}

	// The request may finish before the write does
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.store.Insert(ctx, entry.TableName(), entry); err != nil {
			a.log.Warn("failed to create audit log",
				zap.String("action", string(action)),
				zap.String("resource_type", resourceType),
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until pending audit writes finish
func (a *Auditor) Wait() {
	a.wg.Wait()
}

// ResourceHistory returns the audit trail of one submission, newest first
func (a *Auditor) ResourceHistory(ctx context.Context, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := a.store.Select(ctx, models.AuditLog{}.TableName(), &logs, backend.Query{
		Filter: map[string]interface{}{"resource_type": resourceType, "resource_id": resourceID},
	})
	return logs, err
}

func encodeValues(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
