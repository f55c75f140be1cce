package identity

import (
	"strings"

	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CompanySettings holds tenant-editable preferences
type CompanySettings struct {
	Currency      string `json:"currency"`
	Timezone      string `json:"timezone"`
	Locale        string `json:"locale"`
	InvoicePrefix string `json:"invoice_prefix"`
}

// DefaultCompanySettings returns the settings applied to a new company
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		Currency:      "BRL",
		Timezone:      "America/Sao_Paulo",
		Locale:        "pt-BR",
		InvoicePrefix: "INV",
	}
}

// Company is the tenant: an isolated customer account.
// Its identity and owner never change after creation.
type Company struct {
	shared.BaseEntity
	Name        string
	OwnerUserID uuid.UUID
	Settings    CompanySettings

	// RecurringBilling is plan-gated, so it is kept out of Settings
	RecurringBilling bool
}

// NewCompany creates a new company owned by ownerUserID
func NewCompany(name string, ownerUserID uuid.UUID) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("company name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.ErrInvalidInput.WithMessage("company name cannot exceed 200 characters")
	}
	if ownerUserID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("company owner is required")
	}

	return &Company{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		OwnerUserID: ownerUserID,
		Settings:    DefaultCompanySettings(),
	}, nil
}

// UpdateSettings replaces the settings and returns the previous value
func (c *Company) UpdateSettings(settings CompanySettings) (CompanySettings, error) {
	if len(settings.Currency) != 3 {
		return c.Settings, shared.ErrInvalidInput.WithMessage("currency must be a 3-letter ISO code")
	}
	if len(settings.InvoicePrefix) > 10 {
		return c.Settings, shared.ErrInvalidInput.WithMessage("invoice prefix cannot exceed 10 characters")
	}
	previous := c.Settings
	settings.Currency = strings.ToUpper(settings.Currency)
	c.Settings = settings
	c.Touch()
	return previous, nil
}

// SetRecurringBilling switches recurring invoicing and returns the previous value
func (c *Company) SetRecurringBilling(enabled bool) bool {
	previous := c.RecurringBilling
	if previous != enabled {
		c.RecurringBilling = enabled
		c.Touch()
	}
	return previous
}
