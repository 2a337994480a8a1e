package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendorpulse/vendorpulse/internal/model"
)

const vendorColumns = `id, name, contact_details, address, vendor_code,
	on_time_delivery_rate, quality_rating_avg, average_response_time, fulfillment_rate`

// CreateVendor inserts a vendor row. The four metric columns are written as
// given; new vendors start at 0.0 for all of them.
func CreateVendor(ctx context.Context, q Querier, v model.Vendor) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendors
		(id, name, contact_details, address, vendor_code,
		 on_time_delivery_rate, quality_rating_avg, average_response_time, fulfillment_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID,
		v.Name,
		v.ContactDetails,
		v.Address,
		v.VendorCode,
		v.Metrics.OnTimeDeliveryRate,
		v.Metrics.QualityRatingAvg,
		v.Metrics.AverageResponseTime,
		v.Metrics.FulfillmentRate,
	)
	if err != nil {
		return fmt.Errorf("create vendor: %w", err)
	}
	return nil
}

// GetVendor returns the vendor with the given id, or ErrNotFound.
func GetVendor(ctx context.Context, q Querier, id string) (*model.Vendor, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+vendorColumns+`
		FROM vendors
		WHERE id = ?
	`, id)

	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

// ListVendors returns all vendors ordered by name, then id for stability.
func ListVendors(ctx context.Context, q Querier) ([]model.Vendor, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+vendorColumns+`
		FROM vendors
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("list vendors: %w", err)
		}
		vendors = append(vendors, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

// UpdateVendor updates the descriptive fields of a vendor. Metric columns
// are owned by the engine and are not touched here.
func UpdateVendor(ctx context.Context, q Querier, v model.Vendor) error {
	res, err := q.ExecContext(ctx, `
		UPDATE vendors
		SET name = ?, contact_details = ?, address = ?, vendor_code = ?
		WHERE id = ?
	`, v.Name, v.ContactDetails, v.Address, v.VendorCode, v.ID)
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	return requireAffected(res, "update vendor")
}

// UpdateVendorMetrics writes the four metric columns for a vendor.
// The engine calls this inside the transaction that carries the triggering
// purchase-order mutation.
func UpdateVendorMetrics(ctx context.Context, q Querier, vendorID string, m model.VendorMetrics) error {
	res, err := q.ExecContext(ctx, `
		UPDATE vendors
		SET on_time_delivery_rate = ?, quality_rating_avg = ?,
		    average_response_time = ?, fulfillment_rate = ?
		WHERE id = ?
	`,
		m.OnTimeDeliveryRate,
		m.QualityRatingAvg,
		m.AverageResponseTime,
		m.FulfillmentRate,
		vendorID,
	)
	if err != nil {
		return fmt.Errorf("update vendor metrics: %w", err)
	}
	return requireAffected(res, "update vendor metrics")
}

// DeleteVendor removes a vendor. Purchase orders and performance records
// cascade via foreign keys.
func DeleteVendor(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	return requireAffected(res, "delete vendor")
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*model.Vendor, error) {
	var v model.Vendor
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.ContactDetails,
		&v.Address,
		&v.VendorCode,
		&v.Metrics.OnTimeDeliveryRate,
		&v.Metrics.QualityRatingAvg,
		&v.Metrics.AverageResponseTime,
		&v.Metrics.FulfillmentRate,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
