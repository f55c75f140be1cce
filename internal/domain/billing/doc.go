// Package billing provides the domain model for plans, subscriptions and metering
// in the multi-tenant platform.
//
// This package is responsible for:
//   - The plan catalog: per-plan limits (-1 = unlimited) and feature flags
//   - The single authoritative subscription per tenant
//   - Monthly usage counters and time-boxed service credits
//   - Deriving the overall plan state (ACTIVE, WARNING, GRACE, BLOCKED, EXPIRED)
//
// Key Types:
//   - Plan / PlanCatalog: static plan definitions, also seeded into the database
//   - Subscription: tenant to plan binding with status, payment state and expiry
//   - UsageCounter: (tenant, key, period) -> used value, incremented atomically
//   - ServiceCredit: bonus quota consumed oldest-expiry-first once a limit is reached
//
// DerivePlanState is a pure function; caching and repository access live in the
// application layer.
package billing
