package audit

import (
	"testing"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewEntry_AttributesDelegatedCaller(t *testing.T) {
	firm := uuid.New()
	session := "imp-42"
	sc := &identity.SecurityContext{
		TenantID:               uuid.New(),
		UserID:                 uuid.New(),
		AccessType:             identity.AccessTypeDelegated,
		Role:                   identity.RoleAccountant,
		FirmID:                 &firm,
		ImpersonationSessionID: &session,
	}

	e := NewEntry(sc, ActionInvoiceIssued, EntityInvoice, "inv-1").
		WithChange(nil, map[string]string{"number": "INV-1"})

	assert.Equal(t, sc.TenantID, e.TenantID)
	assert.Equal(t, sc.UserID, e.ActorID)
	assert.Equal(t, identity.ActorTypeAccountant, e.ActorType)
	assert.Equal(t, identity.AccessTypeDelegated, e.AccessType)
	assert.Equal(t, "imp-42", *e.ImpersonationSessionID)
	assert.Nil(t, e.Before)
	assert.NotNil(t, e.After)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{PageSize: 1000}
	q.Normalize()

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 50, q.PageSize)
}
