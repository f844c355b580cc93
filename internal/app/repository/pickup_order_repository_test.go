package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPickupOrderTest(t *testing.T) (*gorm.DB, PickupOrderRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewPickupOrderRepository(testDB)
}

func newPickupOrder(id, storeID string, status model.PickupOrderStatus) *model.PickupOrder {
	return &model.PickupOrder{
		ID:          id,
		OrderNumber: "N-" + id,
		StoreID:     storeID,
		Status:      status,
		Products: model.PickupProducts{
			{SKU: "RING-14K", Name: "14K 반지", Quantity: 1, Price: 320000},
		},
		TotalAmount:  320000,
		PickupMethod: model.PickupMethodCounter,
		CustomerName: "홍길동",
	}
}

func TestPickupOrderRepository_CreateAndFind(t *testing.T) {
	testDB, repo := setupPickupOrderTest(t)
	defer db.CleanupTestDB(testDB)

	order := newPickupOrder("ORD-1", "store-1", model.PickupOrderStatusReadyForPickup)
	require.NoError(t, repo.Create(order))

	found, err := repo.FindByID("ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "store-1", found.StoreID)
	require.Len(t, found.Products, 1)
	assert.Equal(t, "RING-14K", found.Products[0].SKU)

	byNumber, err := repo.FindByOrderNumber("N-ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", byNumber.ID)

	_, err = repo.FindByID("ORD-9")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPickupOrderRepository_FindByStoreID(t *testing.T) {
	testDB, repo := setupPickupOrderTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(newPickupOrder("ORD-1", "store-1", model.PickupOrderStatusReadyForPickup)))
	require.NoError(t, repo.Create(newPickupOrder("ORD-2", "store-1", model.PickupOrderStatusPreparing)))
	require.NoError(t, repo.Create(newPickupOrder("ORD-3", "store-2", model.PickupOrderStatusReadyForPickup)))

	all, err := repo.FindByStoreID("store-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ready, err := repo.FindByStoreID("store-1", model.PickupOrderStatusReadyForPickup)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "ORD-1", ready[0].ID)
}

func TestPickupOrderRepository_CreateInBatches(t *testing.T) {
	testDB, repo := setupPickupOrderTest(t)
	defer db.CleanupTestDB(testDB)

	var orders []model.PickupOrder
	for i := 1; i <= 5; i++ {
		orders = append(orders, *newPickupOrder(fmt.Sprintf("ORD-%d", i), "store-1", model.PickupOrderStatusPreparing))
	}
	require.NoError(t, repo.CreateInBatches(orders, 2))

	found, err := repo.FindByStoreID("store-1", "")
	require.NoError(t, err)
	assert.Len(t, found, 5)
}

func TestPickupOrderRepository_UpdateStatus(t *testing.T) {
	testDB, repo := setupPickupOrderTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(newPickupOrder("ORD-1", "store-1", model.PickupOrderStatusPreparing)))

	now := time.Now().UTC()
	ok, err := repo.UpdateStatus("ORD-1",
		[]model.PickupOrderStatus{model.PickupOrderStatusPreparing},
		model.PickupOrderStatusReadyForPickup, now)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID("ORD-1")
	require.NoError(t, err)
	assert.Equal(t, model.PickupOrderStatusReadyForPickup, found.Status)
	assert.NotNil(t, found.ReadyAt)

	ok, err = repo.UpdateStatus("ORD-1",
		[]model.PickupOrderStatus{model.PickupOrderStatusPreparing},
		model.PickupOrderStatusCancelled, now)
	require.NoError(t, err)
	assert.False(t, ok, "transition from a state not listed must be refused")
}

func TestPickupOrderRepository_MarkAsPickedUp(t *testing.T) {
	testDB, repo := setupPickupOrderTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(newPickupOrder("ORD-1", "store-1", model.PickupOrderStatusReadyForPickup)))
	require.NoError(t, repo.Create(newPickupOrder("ORD-2", "store-1", model.PickupOrderStatusPreparing)))

	now := time.Now().UTC()
	ok, err := repo.MarkAsPickedUp("ORD-1", now, "emp-1")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID("ORD-1")
	require.NoError(t, err)
	assert.Equal(t, model.PickupOrderStatusPickedUp, found.Status)
	assert.Equal(t, "emp-1", found.PickedUpBy)
	require.NotNil(t, found.PickedUpAt)

	ok, err = repo.MarkAsPickedUp("ORD-1", now, "emp-2")
	require.NoError(t, err)
	assert.False(t, ok, "an order is picked up at most once")

	ok, err = repo.MarkAsPickedUp("ORD-2", now, "emp-1")
	require.NoError(t, err)
	assert.False(t, ok, "an order still in preparation cannot be picked up")
}
