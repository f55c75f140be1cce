// Package audit writes audit log entries with an explicit failure policy
// per call site.
package audit

import (
	"context"
	"fmt"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy decides what happens when an audit write fails
type Policy int

const (
	// PolicyStrict returns the error so the surrounding transaction rolls back.
	// Used for every sensitive mutation.
	PolicyStrict Policy = iota
	// PolicyBestEffort logs the error and carries on. Only denial paths use it,
	// because nothing was mutated.
	PolicyBestEffort
)

func (p Policy) String() string {
	if p == PolicyBestEffort {
		return "best_effort"
	}
	return "strict"
}

type requestMetaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequestMeta attaches the caller's ip and user agent to ctx
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, requestMeta{ip: ip, userAgent: userAgent})
}

// Sink appends audit entries
type Sink struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewSink creates a sink. repo is used for best-effort writes, which
// always run outside any transaction.
func NewSink(repo audit.Repository, logger *zap.Logger) *Sink {
	return &Sink{repo: repo, logger: logger}
}

// Log appends entry through repo, which must belong to the caller's
// transaction. The error is returned so the mutation rolls back with it.
func (s *Sink) Log(ctx context.Context, repo audit.Repository, entry *audit.Entry) error {
	return s.Record(ctx, repo, entry, PolicyStrict)
}

// LogBestEffort appends entry on the sink's own connection and never fails
func (s *Sink) LogBestEffort(ctx context.Context, entry *audit.Entry) {
	_ = s.Record(ctx, s.repo, entry, PolicyBestEffort)
}

// Record appends entry applying policy
func (s *Sink) Record(ctx context.Context, repo audit.Repository, entry *audit.Entry, policy Policy) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if meta, ok := ctx.Value(requestMetaKey{}).(requestMeta); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = meta.ip
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.userAgent
		}
	}

	err := repo.Append(ctx, entry)
	if err == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("tenant_id", entry.TenantID.String()),
		zap.String("action", string(entry.Action)),
		zap.String("policy", policy.String()),
		zap.Error(err),
	}
	if policy == PolicyBestEffort {
		s.logger.Warn("Audit write failed, continuing", fields...)
		return nil
	}
	s.logger.Error("Audit write failed, rolling back mutation", fields...)
	return fmt.Errorf("append audit entry %s: %w", entry.Action, err)
}

// List returns the tenant's audit timeline
func (s *Sink) List(ctx context.Context, tenantID uuid.UUID, q audit.Query) ([]audit.Entry, int64, error) {
	q.Normalize()
	return s.repo.List(ctx, tenantID, q)
}
