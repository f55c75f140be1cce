package models

import (
	"encoding/json"
	"time"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// AuditLogModel is an append-only audit row. Before and After hold JSON
// snapshots; nil snapshots are stored as NULL.
type AuditLogModel struct {
	ID                     uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID               uuid.UUID           `gorm:"type:uuid;not null;index"`
	ActorID                *uuid.UUID          `gorm:"type:uuid"`
	ActorType              identity.ActorType  `gorm:"type:varchar(20);not null"`
	AccessType             identity.AccessType `gorm:"type:varchar(20);not null"`
	ImpersonationSessionID *string             `gorm:"type:varchar(100)"`
	Action                 audit.Action        `gorm:"type:varchar(50);not null"`
	EntityType             string              `gorm:"type:varchar(50);not null"`
	EntityID               string              `gorm:"type:varchar(100);not null"`
	Before                 *string             `gorm:"column:before_data;type:text"`
	After                  *string             `gorm:"column:after_data;type:text"`
	IPAddress              string              `gorm:"type:varchar(64)"`
	UserAgent              string              `gorm:"type:varchar(500)"`
	CreatedAt              time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// FromDomain populates the persistence model from an audit entry
func (m *AuditLogModel) FromDomain(e *audit.Entry) error {
	before, err := marshalSnapshot(e.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(e.After)
	if err != nil {
		return err
	}
	m.ID = e.ID
	m.TenantID = e.TenantID
	if e.ActorID != uuid.Nil {
		id := e.ActorID
		m.ActorID = &id
	}
	m.ActorType = e.ActorType
	m.AccessType = e.AccessType
	m.ImpersonationSessionID = e.ImpersonationSessionID
	m.Action = e.Action
	m.EntityType = e.EntityType
	m.EntityID = e.EntityID
	m.Before = before
	m.After = after
	m.IPAddress = e.IPAddress
	m.UserAgent = e.UserAgent
	m.CreatedAt = e.CreatedAt
	return nil
}

// ToDomain converts the row back to an entry. Snapshots come back as
// generic JSON values.
func (m *AuditLogModel) ToDomain() *audit.Entry {
	e := &audit.Entry{
		ID:                     m.ID,
		TenantID:               m.TenantID,
		ActorType:              m.ActorType,
		AccessType:             m.AccessType,
		ImpersonationSessionID: m.ImpersonationSessionID,
		Action:                 m.Action,
		EntityType:             m.EntityType,
		EntityID:               m.EntityID,
		Before:                 unmarshalSnapshot(m.Before),
		After:                  unmarshalSnapshot(m.After),
		IPAddress:              m.IPAddress,
		UserAgent:              m.UserAgent,
		CreatedAt:              m.CreatedAt.UTC(),
	}
	if m.ActorID != nil {
		e.ActorID = *m.ActorID
	}
	return e
}

func marshalSnapshot(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func unmarshalSnapshot(s *string) any {
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(*s), &v); err != nil {
		return *s
	}
	return v
}
