package models

import (
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// CompanyModel is the persistence model for the Company (tenant).
type CompanyModel struct {
	BaseModel
	Name             string    `gorm:"type:varchar(200);not null"`
	OwnerUserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Currency         string    `gorm:"type:varchar(3);not null"`
	Timezone         string    `gorm:"type:varchar(64);not null"`
	Locale           string    `gorm:"type:varchar(16);not null"`
	InvoicePrefix    string    `gorm:"type:varchar(10);not null"`
	RecurringBilling bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *identity.Company {
	return &identity.Company{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		OwnerUserID: m.OwnerUserID,
		Settings: identity.CompanySettings{
			Currency:      m.Currency,
			Timezone:      m.Timezone,
			Locale:        m.Locale,
			InvoicePrefix: m.InvoicePrefix,
		},
		RecurringBilling: m.RecurringBilling,
	}
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *identity.Company) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.OwnerUserID = c.OwnerUserID
	m.Currency = c.Settings.Currency
	m.Timezone = c.Settings.Timezone
	m.Locale = c.Settings.Locale
	m.InvoicePrefix = c.Settings.InvoicePrefix
	m.RecurringBilling = c.RecurringBilling
}

// CompanyMemberModel is the persistence model for a direct membership.
// (tenant_id, user_id) is unique.
type CompanyMemberModel struct {
	TenantModel
	UserID uuid.UUID             `gorm:"type:uuid;not null"`
	Role   identity.Role         `gorm:"type:varchar(20);not null"`
	Status identity.MemberStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CompanyMemberModel) TableName() string {
	return "company_members"
}

// ToDomain converts the persistence model to a domain CompanyMember
func (m *CompanyMemberModel) ToDomain() *identity.CompanyMember {
	return &identity.CompanyMember{
		TenantEntity: m.ToDomainTenantEntity(),
		UserID:       m.UserID,
		Role:         m.Role,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain CompanyMember
func (m *CompanyMemberModel) FromDomain(cm *identity.CompanyMember) {
	m.FromDomainTenantEntity(cm.TenantEntity)
	m.UserID = cm.UserID
	m.Role = cm.Role
	m.Status = cm.Status
}

// FirmMemberModel is a user of an accounting firm
type FirmMemberModel struct {
	BaseModel
	FirmID uuid.UUID             `gorm:"type:uuid;not null;index"`
	UserID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Role   identity.Role         `gorm:"type:varchar(20);not null"`
	Status identity.MemberStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (FirmMemberModel) TableName() string {
	return "firm_members"
}

// FromDomain populates the persistence model from a domain FirmMember
func (m *FirmMemberModel) FromDomain(fm *identity.FirmMember) {
	m.FromDomainBaseEntity(fm.BaseEntity)
	m.FirmID = fm.FirmID
	m.UserID = fm.UserID
	m.Role = fm.Role
	m.Status = fm.Status
}

// FirmAssignmentModel links an accounting firm to a company
type FirmAssignmentModel struct {
	TenantModel
	FirmID uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Status identity.AssignmentStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (FirmAssignmentModel) TableName() string {
	return "firm_assignments"
}

// ToDomain converts the persistence model to a domain FirmAssignment
func (m *FirmAssignmentModel) ToDomain() *identity.FirmAssignment {
	return &identity.FirmAssignment{
		TenantEntity: m.ToDomainTenantEntity(),
		FirmID:       m.FirmID,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain FirmAssignment
func (m *FirmAssignmentModel) FromDomain(a *identity.FirmAssignment) {
	m.FromDomainTenantEntity(a.TenantEntity)
	m.FirmID = a.FirmID
	m.Status = a.Status
}
