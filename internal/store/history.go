package store

import (
	"context"
	"fmt"

	"github.com/vendorpulse/vendorpulse/internal/model"
)

// InsertPerformanceRecord appends a historical snapshot of a vendor's
// aggregate metrics.
func InsertPerformanceRecord(ctx context.Context, q Querier, r model.PerformanceRecord) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO performance_records
		(vendor_id, recorded_at, on_time_delivery_rate, quality_rating_avg,
		 average_response_time, fulfillment_rate)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.VendorID,
		r.RecordedAt.UTC(),
		r.Metrics.OnTimeDeliveryRate,
		r.Metrics.QualityRatingAvg,
		r.Metrics.AverageResponseTime,
		r.Metrics.FulfillmentRate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert performance record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert performance record: last insert id: %w", err)
	}
	return id, nil
}

// ListPerformanceRecords returns a vendor's historical snapshots, newest first.
func ListPerformanceRecords(ctx context.Context, q Querier, vendorID string) ([]model.PerformanceRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, vendor_id, recorded_at, on_time_delivery_rate,
		       quality_rating_avg, average_response_time, fulfillment_rate
		FROM performance_records
		WHERE vendor_id = ?
		ORDER BY recorded_at DESC, id DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	defer rows.Close()

	var records []model.PerformanceRecord
	for rows.Next() {
		var r model.PerformanceRecord
		err := rows.Scan(
			&r.ID,
			&r.VendorID,
			&r.RecordedAt,
			&r.Metrics.OnTimeDeliveryRate,
			&r.Metrics.QualityRatingAvg,
			&r.Metrics.AverageResponseTime,
			&r.Metrics.FulfillmentRate,
		)
		if err != nil {
			return nil, fmt.Errorf("list performance records: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	return records, nil
}
