package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/service"
	"github.com/vendorpulse/vendorpulse/internal/store"
	"github.com/vendorpulse/vendorpulse/internal/telemetry"
	"github.com/vendorpulse/vendorpulse/internal/testutil"
)

var testBase = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupServer(t *testing.T) (*Server, *testutil.FixedClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFixedClock(testBase)
	tel := telemetry.NewRegistry()
	eng := engine.New(st, clock, tel)
	svc := service.New(st, eng)
	return NewServer(svc, tel, true), clock
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type body = map[string]any

func createVendorHTTP(t *testing.T, srv *Server) model.Vendor {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/vendors", body{
		"name":            "Acme Supplies",
		"contact_details": "acme@example.com",
		"address":         "1 Factory Rd",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Vendor](t, w)
}

func createOrderHTTP(t *testing.T, srv *Server, vendorID string) model.PurchaseOrder {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/purchase_orders", body{
		"vendor_id":     vendorID,
		"delivery_date": testBase.Add(96 * time.Hour).Format(time.RFC3339),
		"issue_date":    testBase.Add(-3 * time.Hour).Format(time.RFC3339),
		"items":         []body{{"product_name": "mobile"}},
		"quantity":      1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.PurchaseOrder](t, w)
}

func TestHealthz(t *testing.T) {
	srv, _ := setupServer(t)

	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateVendor(t *testing.T) {
	srv, _ := setupServer(t)

	v := createVendorHTTP(t, srv)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Acme Supplies", v.Name)
	assert.NotEmpty(t, v.VendorCode)
}

func TestCreateVendor_MissingName(t *testing.T) {
	srv, _ := setupServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/vendors", body{"address": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListVendors_EmptyIsArray(t *testing.T) {
	srv, _ := setupServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/vendors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetVendor_NotFound(t *testing.T) {
	srv, _ := setupServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/vendors/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateVendor(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)

	w := doJSON(t, srv, http.MethodPut, "/api/vendors/"+v.ID, body{"address": "9 Dock St"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.Vendor](t, w)
	assert.Equal(t, "Acme Supplies", updated.Name)
	assert.Equal(t, "9 Dock St", updated.Address)
}

func TestDeleteVendor(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)

	w := doJSON(t, srv, http.MethodDelete, "/api/vendors/"+v.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/vendors/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderLifecycle_MetricsFlow(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	po := createOrderHTTP(t, srv, v.ID)

	assert.Equal(t, model.StatusPending, po.Status)

	w := doJSON(t, srv, http.MethodPut, "/api/purchase_orders/"+po.ID, body{"quality_rating": 4.0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPut, "/api/purchase_orders/"+po.ID, body{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/vendors/"+v.ID+"/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	perf := decode[performanceResponse](t, w)
	assert.Equal(t, 4.0, perf.QualityRatingAvg)
	assert.Equal(t, 1.0, perf.OnTimeDeliveryRate)
	assert.Equal(t, 1.0, perf.FulfillmentRate)
}

func TestAcknowledgeOrder(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	po := createOrderHTTP(t, srv, v.ID)

	w := doJSON(t, srv, http.MethodPost, "/api/purchase_orders/"+po.ID+"/acknowledge", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[engine.AcknowledgeResult](t, w)
	assert.Equal(t, 3.0, res.TimeTakenHours)

	// Second acknowledgment conflicts.
	w = doJSON(t, srv, http.MethodPost, "/api/purchase_orders/"+po.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateOrder_InvalidStatus(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	po := createOrderHTTP(t, srv, v.ID)

	w := doJSON(t, srv, http.MethodPut, "/api/purchase_orders/"+po.ID, body{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOrder(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	po := createOrderHTTP(t, srv, v.ID)

	w := doJSON(t, srv, http.MethodDelete, "/api/purchase_orders/"+po.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/purchase_orders/"+po.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrders_VendorFilter(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	createOrderHTTP(t, srv, v.ID)

	w := doJSON(t, srv, http.MethodGet, "/api/purchase_orders?vendor_id="+v.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]model.PurchaseOrder](t, w)
	assert.Len(t, orders, 1)

	w = doJSON(t, srv, http.MethodGet, "/api/purchase_orders?vendor_id=other", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders = decode[[]model.PurchaseOrder](t, w)
	assert.Empty(t, orders)
}

func TestPerformanceHistory(t *testing.T) {
	srv, _ := setupServer(t)
	v := createVendorHTTP(t, srv)
	po := createOrderHTTP(t, srv, v.ID)

	w := doJSON(t, srv, http.MethodPut, "/api/purchase_orders/"+po.ID, body{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/vendors/"+v.ID+"/history", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/vendors/"+v.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]model.PerformanceRecord](t, w)
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].Metrics.FulfillmentRate)
}
