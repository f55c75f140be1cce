package models

import (
	"time"

	"github.com/bizcore/backend/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for an issued invoice
type InvoiceModel struct {
	TenantModel
	Number       string           `gorm:"type:varchar(64);not null"`
	CustomerName string           `gorm:"type:varchar(200);not null"`
	Amount       decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	Currency     string           `gorm:"type:varchar(3);not null"`
	Status       invoicing.Status `gorm:"type:varchar(20);not null"`
	IssuedBy     uuid.UUID        `gorm:"type:uuid;not null"`
	IssuedAt     time.Time        `gorm:"not null"`
	CancelledAt  *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		TenantEntity: m.ToDomainTenantEntity(),
		Number:       m.Number,
		CustomerName: m.CustomerName,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Status:       m.Status,
		IssuedBy:     m.IssuedBy,
		IssuedAt:     m.IssuedAt.UTC(),
	}
	if m.CancelledAt != nil {
		at := m.CancelledAt.UTC()
		inv.CancelledAt = &at
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainTenantEntity(inv.TenantEntity)
	m.Number = inv.Number
	m.CustomerName = inv.CustomerName
	m.Amount = inv.Amount
	m.Currency = inv.Currency
	m.Status = inv.Status
	m.IssuedBy = inv.IssuedBy
	m.IssuedAt = inv.IssuedAt
	m.CancelledAt = inv.CancelledAt
}
