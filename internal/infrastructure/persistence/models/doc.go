// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities carry no GORM tags
// 2. Persistence models hold all GORM annotations and table mappings
// 3. ToDomain / FromDomain convert between the two
//
// Structure:
// - base.go: BaseModel, TenantModel
// - tenancy.go: companies, memberships, accounting firms
// - billing.go: plans, subscriptions, usage counters, service credits
// - invoice.go: invoices
// - audit.go: append-only audit log
package models
