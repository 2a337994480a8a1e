package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/model"
)

// createTestStore creates a temp-file store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestVendor builds a vendor with zeroed metrics.
func createTestVendor(id, code string) model.Vendor {
	return model.Vendor{
		ID:             id,
		Name:           "Acme Supplies",
		ContactDetails: "acme@example.com",
		Address:        "1 Factory Rd",
		VendorCode:     code,
	}
}

// createTestOrder builds a pending, unrated, unacknowledged order.
func createTestOrder(id, poNumber, vendorID string, base time.Time) model.PurchaseOrder {
	return model.PurchaseOrder{
		ID:           id,
		PONumber:     poNumber,
		VendorID:     vendorID,
		OrderDate:    base,
		DeliveryDate: base.Add(96 * time.Hour),
		Items:        []byte(`[{"product_name":"mobile"},{"product_name":"watch"}]`),
		Quantity:     2,
		Status:       model.StatusPending,
		IssueDate:    base.Add(-3 * time.Hour),
	}
}
