package invoicing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("issues invoice with number", func(t *testing.T) {
		inv, err := Issue(uuid.New(), uuid.New(), "AC", "Globex", decimal.RequireFromString("10.456"), "brl", now)

		require.NoError(t, err)
		assert.Equal(t, StatusIssued, inv.Status)
		assert.True(t, strings.HasPrefix(inv.Number, "AC-20260402-"))
		assert.Equal(t, "10.46", inv.Amount.StringFixed(2))
		assert.Equal(t, "BRL", inv.Currency)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := Issue(uuid.New(), uuid.New(), "", "Globex", decimal.Zero, "BRL", now)
		assert.Error(t, err)
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		_, err := Issue(uuid.New(), uuid.New(), "", " ", decimal.NewFromInt(1), "BRL", now)
		assert.Error(t, err)
	})
}

func TestInvoice_Cancel(t *testing.T) {
	now := time.Now()
	inv, err := Issue(uuid.New(), uuid.New(), "", "Globex", decimal.NewFromInt(5), "BRL", now)
	require.NoError(t, err)

	require.NoError(t, inv.Cancel(now))
	assert.Equal(t, StatusCancelled, inv.Status)
	assert.NotNil(t, inv.CancelledAt)
	assert.Error(t, inv.Cancel(now))
}
