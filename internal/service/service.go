// Package service orchestrates vendor and purchase-order lifecycle
// operations around the metrics engine.
//
// Every metric-affecting write follows the two-phase pattern: load the
// current snapshot, build the intended new snapshot, let the engine evaluate
// its rules, then persist the row - all inside one transaction.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/store"
)

// Service exposes the application's write and read operations.
type Service struct {
	store  *store.Store
	engine *engine.Engine
}

// New creates a service around a store and an engine.
func New(st *store.Store, eng *engine.Engine) *Service {
	return &Service{store: st, engine: eng}
}

// VendorInput carries the caller-supplied vendor fields.
type VendorInput struct {
	Name           string
	ContactDetails string
	Address        string
	VendorCode     string
}

// OrderInput carries the caller-supplied purchase-order fields.
// Status is not an input: orders always start pending.
type OrderInput struct {
	VendorID     string
	PONumber     string
	DeliveryDate time.Time
	Items        json.RawMessage
	Quantity     int
	IssueDate    time.Time
}

// OrderPatch describes a partial update. Nil fields are left unchanged.
type OrderPatch struct {
	DeliveryDate  *time.Time
	Items         json.RawMessage
	Quantity      *int
	Status        *model.Status
	QualityRating *float64
}

// CreateVendor inserts a new vendor with zeroed metrics. A blank vendor code
// gets a generated one.
func (s *Service) CreateVendor(ctx context.Context, in VendorInput) (*model.Vendor, error) {
	v := model.Vendor{
		ID:             uuid.NewString(),
		Name:           model.NormalizeName(in.Name),
		ContactDetails: in.ContactDetails,
		Address:        in.Address,
		VendorCode:     in.VendorCode,
	}
	if v.VendorCode == "" {
		v.VendorCode = uuid.NewString()
	}
	if err := store.CreateVendor(ctx, s.store.DB(), v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVendor returns a vendor by id.
func (s *Service) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	v, err := store.GetVendor(ctx, s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &engine.Error{Code: engine.ErrCodeNotFound, Message: "vendor does not exist", VendorID: id}
	}
	return v, err
}

// ListVendors returns all vendors.
func (s *Service) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	return store.ListVendors(ctx, s.store.DB())
}

// UpdateVendor updates a vendor's descriptive fields. Metric fields are
// owned by the engine and cannot be set through this path.
func (s *Service) UpdateVendor(ctx context.Context, id string, in VendorInput) (*model.Vendor, error) {
	v, err := s.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		v.Name = model.NormalizeName(in.Name)
	}
	if in.ContactDetails != "" {
		v.ContactDetails = in.ContactDetails
	}
	if in.Address != "" {
		v.Address = in.Address
	}
	if in.VendorCode != "" {
		v.VendorCode = in.VendorCode
	}
	if err := store.UpdateVendor(ctx, s.store.DB(), *v); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVendor removes a vendor and, via cascade, its orders and history.
func (s *Service) DeleteVendor(ctx context.Context, id string) error {
	err := store.DeleteVendor(ctx, s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return &engine.Error{Code: engine.ErrCodeNotFound, Message: "vendor does not exist", VendorID: id}
	}
	return err
}

// CreatePurchaseOrder inserts a new order. Orders start pending, unrated,
// and unacknowledged; no recalculation rule fires on a first-ever save.
func (s *Service) CreatePurchaseOrder(ctx context.Context, in OrderInput) (*model.PurchaseOrder, error) {
	if _, err := s.GetVendor(ctx, in.VendorID); err != nil {
		return nil, err
	}

	items := in.Items
	if len(items) == 0 {
		items = json.RawMessage(`[]`)
	}

	po := model.PurchaseOrder{
		ID:           uuid.NewString(),
		PONumber:     in.PONumber,
		VendorID:     in.VendorID,
		OrderDate:    s.engine.Clock().Now(),
		DeliveryDate: in.DeliveryDate,
		Items:        items,
		Quantity:     in.Quantity,
		Status:       model.StatusPending,
		IssueDate:    in.IssueDate,
	}
	if po.PONumber == "" {
		po.PONumber = uuid.NewString()
	}
	if po.IssueDate.IsZero() {
		po.IssueDate = po.OrderDate
	}

	if err := store.CreatePurchaseOrder(ctx, s.store.DB(), po); err != nil {
		return nil, err
	}
	return &po, nil
}

// GetPurchaseOrder returns an order by id.
func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	po, err := store.GetPurchaseOrder(ctx, s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.NewNotFound(id)
	}
	return po, err
}

// ListPurchaseOrders returns all orders, optionally filtered by vendor.
func (s *Service) ListPurchaseOrders(ctx context.Context, vendorID string) ([]model.PurchaseOrder, error) {
	if vendorID != "" {
		return store.ListPurchaseOrdersByVendor(ctx, s.store.DB(), vendorID)
	}
	return store.ListPurchaseOrders(ctx, s.store.DB())
}

// UpdatePurchaseOrder applies a partial update to an order. The prior and
// incoming snapshots are handed to the engine before the row is written, and
// the rule evaluation, vendor-aggregate write, and row write commit together.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, id string, patch OrderPatch) (*model.PurchaseOrder, error) {
	if patch.Status != nil && !model.ValidStatus(*patch.Status) {
		return nil, engine.NewInvalidState(id, fmt.Sprintf("unknown status %q", *patch.Status))
	}

	var updated *model.PurchaseOrder
	err := s.store.InTx(ctx, func(tx *sql.Tx) error {
		prevPO, err := store.GetPurchaseOrder(ctx, tx, id)
		if errors.Is(err, store.ErrNotFound) {
			return engine.NewNotFound(id)
		}
		if err != nil {
			return err
		}
		prev := prevPO.Snapshot()

		next := *prevPO
		if patch.DeliveryDate != nil {
			next.DeliveryDate = *patch.DeliveryDate
		}
		if patch.Items != nil {
			next.Items = patch.Items
		}
		if patch.Quantity != nil {
			next.Quantity = *patch.Quantity
		}
		if patch.Status != nil {
			next.Status = *patch.Status
		}
		if patch.QualityRating != nil {
			next.QualityRating = patch.QualityRating
		}

		if err := s.engine.OnBeforeSave(ctx, tx, &prev, next.Snapshot()); err != nil {
			return err
		}
		if err := store.UpdatePurchaseOrder(ctx, tx, next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePurchaseOrder removes an order and fires the post-delete rules.
// The delete and the metric updates share one transaction, so no reader can
// observe the row gone but the aggregate stale.
func (s *Service) DeletePurchaseOrder(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx *sql.Tx) error {
		po, err := store.GetPurchaseOrder(ctx, tx, id)
		if errors.Is(err, store.ErrNotFound) {
			return engine.NewNotFound(id)
		}
		if err != nil {
			return err
		}
		snap := po.Snapshot()

		if err := store.DeletePurchaseOrder(ctx, tx, id); err != nil {
			return err
		}
		return s.engine.OnAfterDelete(ctx, tx, snap)
	})
}

// AcknowledgePurchaseOrder stamps the acknowledgment timestamp and updates
// the vendor's average response time.
func (s *Service) AcknowledgePurchaseOrder(ctx context.Context, id string) (*engine.AcknowledgeResult, error) {
	return s.engine.Acknowledge(ctx, id)
}

// RecordPerformance snapshots a vendor's current aggregate into the
// performance history.
func (s *Service) RecordPerformance(ctx context.Context, vendorID string) (*model.PerformanceRecord, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	r := model.PerformanceRecord{
		VendorID:   vendorID,
		RecordedAt: s.engine.Clock().Now(),
		Metrics:    v.Metrics,
	}
	id, err := store.InsertPerformanceRecord(ctx, s.store.DB(), r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

// ListPerformanceHistory returns a vendor's historical snapshots.
func (s *Service) ListPerformanceHistory(ctx context.Context, vendorID string) ([]model.PerformanceRecord, error) {
	if _, err := s.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return store.ListPerformanceRecords(ctx, s.store.DB(), vendorID)
}
