package repository

import (
	"testing"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogRepository_CreateAndList(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAuditLogRepository(testDB)

	entries := []*model.AuditLog{
		{Event: model.AuditEventCodeGenerated, OrderID: "ORD-1", StoreID: "store-1", CodeType: "pickup", Success: true},
		{Event: model.AuditEventPickupAttempt, OrderID: "ORD-1", StoreID: "store-1", Success: false, Reason: "invalid_code"},
		{Event: model.AuditEventPickupAttempt, OrderID: "ORD-1", StoreID: "store-1", Success: true,
			Details: model.JSONMap{"verified_by": "emp-1"}},
		{Event: model.AuditEventPickupAttempt, OrderID: "ORD-2", StoreID: "store-2", Success: false, Reason: "code_not_found"},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(e))
		assert.NotEmpty(t, e.ID)
	}

	attempts, err := repo.List(AuditLogFilter{Event: model.AuditEventPickupAttempt})
	require.NoError(t, err)
	assert.Len(t, attempts, 3)

	failed := false
	store1Failures, err := repo.List(AuditLogFilter{
		Event:   model.AuditEventPickupAttempt,
		StoreID: "store-1",
		Success: &failed,
	})
	require.NoError(t, err)
	require.Len(t, store1Failures, 1)
	assert.Equal(t, "invalid_code", store1Failures[0].Reason)

	successes, err := repo.List(AuditLogFilter{OrderID: "ORD-1", Success: boolPtr(true), Event: model.AuditEventPickupAttempt})
	require.NoError(t, err)
	require.Len(t, successes, 1)
	assert.Equal(t, "emp-1", successes[0].Details["verified_by"])

	limited, err := repo.List(AuditLogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	future, err := repo.List(AuditLogFilter{Since: time.Now().UTC().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestAuditLogRepository_WithTxRollback(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAuditLogRepository(testDB)

	tx := testDB.Begin()
	require.NoError(t, repo.WithTx(tx).Create(&model.AuditLog{
		Event:   model.AuditEventCodeGenerated,
		OrderID: "ORD-1",
		StoreID: "store-1",
		Success: true,
	}))
	tx.Rollback()

	entries, err := repo.List(AuditLogFilter{OrderID: "ORD-1"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func boolPtr(b bool) *bool {
	return &b
}
