package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/model"
)

const orderColumns = `id, po_number, vendor_id, order_date, delivery_date,
	items, quantity, status, quality_rating, issue_date, acknowledgment_date`

// CreatePurchaseOrder inserts a purchase order row.
func CreatePurchaseOrder(ctx context.Context, q Querier, po model.PurchaseOrder) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO purchase_orders
		(id, po_number, vendor_id, order_date, delivery_date,
		 items, quantity, status, quality_rating, issue_date, acknowledgment_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		po.ID,
		po.PONumber,
		po.VendorID,
		po.OrderDate.UTC(),
		po.DeliveryDate.UTC(),
		string(po.Items),
		po.Quantity,
		string(po.Status),
		nullFloat(po.QualityRating),
		po.IssueDate.UTC(),
		nullTime(po.AcknowledgmentDate),
	)
	if err != nil {
		return fmt.Errorf("create purchase order: %w", err)
	}
	return nil
}

// GetPurchaseOrder returns the purchase order with the given id, or ErrNotFound.
func GetPurchaseOrder(ctx context.Context, q Querier, id string) (*model.PurchaseOrder, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM purchase_orders
		WHERE id = ?
	`, id)

	po, err := scanPurchaseOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return po, nil
}

// ListPurchaseOrdersByVendor returns a vendor's orders, newest first.
func ListPurchaseOrdersByVendor(ctx context.Context, q Querier, vendorID string) ([]model.PurchaseOrder, error) {
	return listOrders(ctx, q, `
		SELECT `+orderColumns+`
		FROM purchase_orders
		WHERE vendor_id = ?
		ORDER BY order_date DESC, id ASC
	`, vendorID)
}

// ListPurchaseOrders returns all orders, newest first.
func ListPurchaseOrders(ctx context.Context, q Querier) ([]model.PurchaseOrder, error) {
	return listOrders(ctx, q, `
		SELECT `+orderColumns+`
		FROM purchase_orders
		ORDER BY order_date DESC, id ASC
	`)
}

// UpdatePurchaseOrder rewrites the mutable fields of an order.
// po_number, vendor_id, order_date, and issue_date are immutable after
// creation; acknowledgment_date is written only by SetAcknowledged.
func UpdatePurchaseOrder(ctx context.Context, q Querier, po model.PurchaseOrder) error {
	res, err := q.ExecContext(ctx, `
		UPDATE purchase_orders
		SET delivery_date = ?, items = ?, quantity = ?, status = ?, quality_rating = ?
		WHERE id = ?
	`,
		po.DeliveryDate.UTC(),
		string(po.Items),
		po.Quantity,
		string(po.Status),
		nullFloat(po.QualityRating),
		po.ID,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	return requireAffected(res, "update purchase order")
}

// SetAcknowledged stamps the acknowledgment timestamp on an order.
func SetAcknowledged(ctx context.Context, q Querier, id string, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE purchase_orders
		SET acknowledgment_date = ?
		WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("set acknowledged: %w", err)
	}
	return requireAffected(res, "set acknowledged")
}

// DeletePurchaseOrder removes an order row.
func DeletePurchaseOrder(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM purchase_orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	return requireAffected(res, "delete purchase order")
}

// CountRatedOrders counts a vendor's orders with a non-null quality rating.
func CountRatedOrders(ctx context.Context, q Querier, vendorID string) (int, error) {
	return countQuery(ctx, q, `
		SELECT COUNT(*) FROM purchase_orders
		WHERE vendor_id = ? AND quality_rating IS NOT NULL
	`, vendorID)
}

// CountOrdersByStatus counts a vendor's orders in the given status.
func CountOrdersByStatus(ctx context.Context, q Querier, vendorID string, status model.Status) (int, error) {
	return countQuery(ctx, q, `
		SELECT COUNT(*) FROM purchase_orders
		WHERE vendor_id = ? AND status = ?
	`, vendorID, string(status))
}

// CountCompletedOnTime counts a vendor's completed orders whose delivery date
// is at or after asOf.
func CountCompletedOnTime(ctx context.Context, q Querier, vendorID string, asOf time.Time) (int, error) {
	return countQuery(ctx, q, `
		SELECT COUNT(*) FROM purchase_orders
		WHERE vendor_id = ? AND status = 'completed' AND delivery_date >= ?
	`, vendorID, asOf.UTC())
}

// CountAcknowledgedOrders counts a vendor's orders that have been acknowledged.
func CountAcknowledgedOrders(ctx context.Context, q Querier, vendorID string) (int, error) {
	return countQuery(ctx, q, `
		SELECT COUNT(*) FROM purchase_orders
		WHERE vendor_id = ? AND acknowledgment_date IS NOT NULL
	`, vendorID)
}

func countQuery(ctx context.Context, q Querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

func listOrders(ctx context.Context, q Querier, query string, args ...any) ([]model.PurchaseOrder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []model.PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list purchase orders: %w", err)
		}
		orders = append(orders, *po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return orders, nil
}

func scanPurchaseOrder(row rowScanner) (*model.PurchaseOrder, error) {
	var (
		po     model.PurchaseOrder
		items  string
		status string
		rating sql.NullFloat64
		acked  sql.NullTime
	)
	err := row.Scan(
		&po.ID,
		&po.PONumber,
		&po.VendorID,
		&po.OrderDate,
		&po.DeliveryDate,
		&items,
		&po.Quantity,
		&status,
		&rating,
		&po.IssueDate,
		&acked,
	)
	if err != nil {
		return nil, err
	}
	po.Items = []byte(items)
	po.Status = model.Status(status)
	if rating.Valid {
		po.QualityRating = &rating.Float64
	}
	if acked.Valid {
		t := acked.Time
		po.AcknowledgmentDate = &t
	}
	return &po, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
