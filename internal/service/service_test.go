package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/store"
	"github.com/vendorpulse/vendorpulse/internal/testutil"
)

var testBase = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*Service, *testutil.FixedClock) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewFixedClock(testBase)
	eng := engine.New(s, clock, nil)
	return New(s, eng), clock
}

func createTestVendor(t *testing.T, svc *Service) *model.Vendor {
	t.Helper()
	v, err := svc.CreateVendor(context.Background(), VendorInput{
		Name:           "Acme Supplies",
		ContactDetails: "acme@example.com",
		Address:        "1 Factory Rd",
	})
	require.NoError(t, err)
	return v
}

func createTestOrder(t *testing.T, svc *Service, vendorID string, delivery time.Time) *model.PurchaseOrder {
	t.Helper()
	po, err := svc.CreatePurchaseOrder(context.Background(), OrderInput{
		VendorID:     vendorID,
		DeliveryDate: delivery,
		Items:        []byte(`[{"product_name":"mobile"},{"product_name":"watch"}]`),
		Quantity:     2,
		IssueDate:    testBase.Add(-3 * time.Hour),
	})
	require.NoError(t, err)
	return po
}

func getMetrics(t *testing.T, svc *Service, vendorID string) model.VendorMetrics {
	t.Helper()
	v, err := svc.GetVendor(context.Background(), vendorID)
	require.NoError(t, err)
	return v.Metrics
}

func TestCreateVendor_GeneratesIDAndCode(t *testing.T) {
	svc, _ := setupService(t)

	v := createTestVendor(t, svc)
	assert.NotEmpty(t, v.ID)
	assert.NotEmpty(t, v.VendorCode)
	assert.Equal(t, model.VendorMetrics{}, v.Metrics)
}

func TestCreateVendor_KeepsProvidedCode(t *testing.T) {
	svc, _ := setupService(t)

	v, err := svc.CreateVendor(context.Background(), VendorInput{
		Name:       "Beta Parts",
		VendorCode: "BETA-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "BETA-01", v.VendorCode)
}

func TestCreatePurchaseOrder_StartsPending(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)

	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))
	assert.Equal(t, model.StatusPending, po.Status)
	assert.Nil(t, po.QualityRating)
	assert.Nil(t, po.AcknowledgmentDate)
	assert.NotEmpty(t, po.PONumber)
	assert.True(t, po.OrderDate.Equal(testBase))

	// Creation fires no rules.
	assert.Equal(t, model.VendorMetrics{}, getMetrics(t, svc, v.ID))
}

func TestCreatePurchaseOrder_UnknownVendor(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreatePurchaseOrder(context.Background(), OrderInput{
		VendorID:     "missing",
		DeliveryDate: testBase.Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestUpdatePurchaseOrder_RatingFlowsToVendor(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))

	rating := 3.9
	updated, err := svc.UpdatePurchaseOrder(context.Background(), po.ID, OrderPatch{QualityRating: &rating})
	require.NoError(t, err)
	require.NotNil(t, updated.QualityRating)
	assert.Equal(t, 3.9, *updated.QualityRating)

	assert.Equal(t, 3.9, getMetrics(t, svc, v.ID).QualityRatingAvg)
}

func TestUpdatePurchaseOrder_CompletionUpdatesRates(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))

	status := model.StatusCompleted
	_, err := svc.UpdatePurchaseOrder(context.Background(), po.ID, OrderPatch{Status: &status})
	require.NoError(t, err)

	m := getMetrics(t, svc, v.ID)
	assert.Equal(t, 1.0, m.OnTimeDeliveryRate)
	assert.Equal(t, 1.0, m.FulfillmentRate)
}

func TestUpdatePurchaseOrder_UnknownStatus(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))

	bogus := model.Status("shipped")
	_, err := svc.UpdatePurchaseOrder(context.Background(), po.ID, OrderPatch{Status: &bogus})
	require.Error(t, err)
	assert.True(t, engine.IsInvalidState(err))
}

func TestUpdatePurchaseOrder_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	q := 5
	_, err := svc.UpdatePurchaseOrder(context.Background(), "missing", OrderPatch{Quantity: &q})
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestDeletePurchaseOrder_ResetsContributedMetrics(t *testing.T) {
	svc, clock := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))
	ctx := context.Background()

	rating := 5.0
	status := model.StatusCompleted
	_, err := svc.UpdatePurchaseOrder(ctx, po.ID, OrderPatch{QualityRating: &rating})
	require.NoError(t, err)
	_, err = svc.UpdatePurchaseOrder(ctx, po.ID, OrderPatch{Status: &status})
	require.NoError(t, err)
	_, err = svc.AcknowledgePurchaseOrder(ctx, po.ID)
	require.NoError(t, err)

	m := getMetrics(t, svc, v.ID)
	require.Equal(t, 5.0, m.QualityRatingAvg)
	require.Equal(t, 1.0, m.OnTimeDeliveryRate)
	require.Equal(t, 1.0, m.FulfillmentRate)
	require.Equal(t, 3.0, m.AverageResponseTime)

	clock.Advance(time.Hour)
	require.NoError(t, svc.DeletePurchaseOrder(ctx, po.ID))

	assert.Equal(t, model.VendorMetrics{}, getMetrics(t, svc, v.ID))
}

func TestDeletePurchaseOrder_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.DeletePurchaseOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestAcknowledgePurchaseOrder(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))

	res, err := svc.AcknowledgePurchaseOrder(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.TimeTakenHours)
	assert.Equal(t, 3.0, getMetrics(t, svc, v.ID).AverageResponseTime)
}

func TestRecordPerformance(t *testing.T) {
	svc, clock := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))
	ctx := context.Background()

	status := model.StatusCompleted
	_, err := svc.UpdatePurchaseOrder(ctx, po.ID, OrderPatch{Status: &status})
	require.NoError(t, err)

	rec, err := svc.RecordPerformance(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Metrics.FulfillmentRate)
	assert.True(t, rec.RecordedAt.Equal(clock.Now()))

	history, err := svc.ListPerformanceHistory(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1.0, history[0].Metrics.FulfillmentRate)
}

func TestUpdateVendor_PartialFields(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)

	updated, err := svc.UpdateVendor(context.Background(), v.ID, VendorInput{Address: "9 Dock St"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Supplies", updated.Name)
	assert.Equal(t, "9 Dock St", updated.Address)
}

func TestDeleteVendor_RemovesOrders(t *testing.T) {
	svc, _ := setupService(t)
	v := createTestVendor(t, svc)
	po := createTestOrder(t, svc, v.ID, testBase.Add(96*time.Hour))
	ctx := context.Background()

	require.NoError(t, svc.DeleteVendor(ctx, v.ID))

	_, err := svc.GetVendor(ctx, v.ID)
	assert.True(t, engine.IsNotFound(err))
	_, err = svc.GetPurchaseOrder(ctx, po.ID)
	assert.True(t, engine.IsNotFound(err))
}
