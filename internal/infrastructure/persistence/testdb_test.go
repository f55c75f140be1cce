package persistence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqliteSchema mirrors the migrations/*.up.sql files with SQLite types
const sqliteSchema = `
CREATE TABLE companies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_user_id TEXT NOT NULL,
	currency TEXT NOT NULL,
	timezone TEXT NOT NULL,
	locale TEXT NOT NULL,
	invoice_prefix TEXT NOT NULL,
	recurring_billing BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE company_members (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES companies(id),
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (tenant_id, user_id)
);
CREATE TABLE firm_members (
	id TEXT PRIMARY KEY,
	firm_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE firm_assignments (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES companies(id),
	firm_id TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE plans (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price_monthly NUMERIC NOT NULL,
	price_yearly NUMERIC NOT NULL,
	rank INTEGER NOT NULL,
	features TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE plan_entitlements (
	plan_code TEXT NOT NULL REFERENCES plans(code),
	entitlement_key TEXT NOT NULL,
	limit_value INTEGER,
	PRIMARY KEY (plan_code, entitlement_key)
);
CREATE TABLE subscriptions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL UNIQUE,
	plan_code TEXT NOT NULL,
	status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	expires_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE usage_counters (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	entitlement_key TEXT NOT NULL,
	period_start DATETIME NOT NULL,
	used_value INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL,
	UNIQUE (tenant_id, entitlement_key, period_start)
);
CREATE TABLE service_credits (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	credit_type TEXT NOT NULL,
	remaining_value INTEGER NOT NULL CHECK (remaining_value >= 0),
	valid_until DATETIME NOT NULL,
	source TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE invoices (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	number TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL,
	status TEXT NOT NULL,
	issued_by TEXT NOT NULL,
	issued_at DATETIME NOT NULL,
	cancelled_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE audit_logs (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	actor_id TEXT,
	actor_type TEXT NOT NULL,
	access_type TEXT NOT NULL,
	impersonation_session_id TEXT,
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	before_data TEXT,
	after_data TEXT,
	ip_address TEXT,
	user_agent TEXT,
	created_at DATETIME NOT NULL
)`

// newTestDB opens an in-memory SQLite database with the production GORM
// settings. A single connection keeps every query on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig(Options{LogLevel: gormlogger.Silent}))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(sqliteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
